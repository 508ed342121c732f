package script

// Type identifies when a group of scripts runs. Every reload runs startup
// scripts first and server scripts after them.
type Type int

const (
	// Startup scripts define recipe types and record deferred tag edits.
	Startup Type = iota

	// Server scripts edit recipes and tags and handle player events.
	Server

	// typeCount is the total number of script types.
	typeCount
)

// Types returns every script type in load order.
func Types() []Type {
	return []Type{Startup, Server}
}

// String returns the lower-case name of the script type, which is also the
// name of its script directory.
func (t Type) String() string {
	switch t {
	case Startup:
		return "startup"
	case Server:
		return "server"
	default:
		return "unknown"
	}
}

// ParseType parses the name returned by String.
func ParseType(s string) (Type, bool) {
	for _, t := range Types() {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}
