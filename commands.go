package kubescript

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/oriumgames/kubescript/script"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

// Command returns the /kubescript command:
//
//	/kubescript errors [startup|server]   list script errors
//	/kubescript reload                    reload scripts, tags and recipes
//
// Builder.Commands registers it automatically.
func (m *Manager) Command() cmd.Command {
	return cmd.New("kubescript", "Inspects and reloads scripts.", []string{"kjs"},
		errorsCommand{m: m},
		reloadCommand{m: m},
	)
}

// scriptTypeArg is a script type command argument.
type scriptTypeArg string

// Type names the argument in command usage.
func (scriptTypeArg) Type() string { return "ScriptType" }

// Options lists every script type.
func (scriptTypeArg) Options(cmd.Source) []string {
	types := script.Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

type errorsCommand struct {
	m      *Manager
	Errors cmd.SubCommand             `cmd:"errors"`
	Type   cmd.Optional[scriptTypeArg] `cmd:"type"`
}

func (c errorsCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	arg, _ := c.Type.Load()
	lines, err := c.m.errorReport(string(arg))
	if err != nil {
		o.Error(err)
		return
	}
	for _, line := range lines {
		o.Print(line)
	}
	if len(lines) == 0 {
		o.Print(text.Colourf("<green>No script errors.</green>"))
	}
}

// errorReport formats the errors of scripts of the named type, or of every
// type when name is empty.
func (m *Manager) errorReport(name string) ([]string, error) {
	types := script.Types()
	if name != "" {
		t, ok := script.ParseType(name)
		if !ok {
			return nil, fmt.Errorf("unknown script type %q", name)
		}
		types = []script.Type{t}
	}
	var lines []string
	for _, t := range types {
		lines = append(lines, m.errorLines(t)...)
	}
	return lines, nil
}

type reloadCommand struct {
	m      *Manager
	Reload cmd.SubCommand `cmd:"reload"`
}

func (c reloadCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	err := c.m.Reload()
	o.Printf("Reloaded %d recipes.", len(c.m.Recipes()))
	if err != nil {
		o.Error(text.Colourf("<red>Reload finished with errors, run /kubescript errors for details.</red>"))
	}
	if n, err := c.m.RegisterRecipes(); n > 0 || err != nil {
		o.Printf("Registered %d new recipes.", n)
	}
}

// errorLines formats the errors of scripts of type t for players.
func (m *Manager) errorLines(t script.Type) []string {
	entries := m.Errors(t)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, text.Colourf("<red>[%s]</red> %s", t, e))
	}
	return lines
}
