package kubescript

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oriumgames/kubescript/recipe"
)

// Event names posted to scripts.
const (
	EventNameLoggedIn   = "player.logged_in"
	EventNameLoggedOut  = "player.logged_out"
	EventNameChat       = "player.chat"
	EventNameRespawn    = "player.respawned"
	EventNameItemPickup = "player.item_pickup"
	EventNameSchemas    = "recipes.schemas"
	EventNameRecipes    = "recipes"
	EventNameLoaded     = "recipes.after_load"
)

// tagEventName returns the name of the tag event of an object kind.
func tagEventName(kind string) string {
	return "tags." + kind
}

// Cancellable is implemented by events that scripts may cancel.
type Cancellable interface {
	Cancel()
}

// playerFields returns the fields shared by every player event.
func playerFields(p *player.Player) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return map[string]any{
		"player": p.Name(),
		"uuid":   p.UUID().String(),
		"xuid":   p.XUID(),
	}
}

// EventLoggedIn is posted when a player joins.
type EventLoggedIn struct {
	Player *player.Player
}

func (e *EventLoggedIn) Fields() map[string]any { return playerFields(e.Player) }

// EventLoggedOut is posted when a player quits.
type EventLoggedOut struct {
	Player *player.Player
}

func (e *EventLoggedOut) Fields() map[string]any { return playerFields(e.Player) }

// EventChat is posted when a player sends a chat message. Scripts may edit
// message or cancel the event.
type EventChat struct {
	Ctx     *player.Context
	Message *string
}

// Fields exposes the player and the message.
func (e *EventChat) Fields() map[string]any {
	f := playerFields(contextPlayer(e.Ctx))
	f["message"] = *e.Message
	return f
}

// Update applies the message a script wrote back.
func (e *EventChat) Update(f map[string]any) error {
	switch msg := f["message"].(type) {
	case string:
		*e.Message = msg
	case nil:
		*e.Message = ""
	default:
		return fmt.Errorf("message must be a string, got %T", msg)
	}
	return nil
}

// Cancel stops the message from being sent.
func (e *EventChat) Cancel() { cancelContext(e.Ctx) }

// EventRespawn is posted when a player respawns. Scripts may move the
// respawn position by editing x, y and z.
type EventRespawn struct {
	Player   *player.Player
	Position *mgl64.Vec3
	World    **world.World
}

// Fields exposes the player, the respawn position and the world name.
func (e *EventRespawn) Fields() map[string]any {
	f := playerFields(e.Player)
	f["x"], f["y"], f["z"] = e.Position[0], e.Position[1], e.Position[2]
	if e.World != nil && *e.World != nil {
		f["world"] = (*e.World).Name()
	}
	return f
}

// Update moves the respawn position. All three axes must be numbers.
func (e *EventRespawn) Update(f map[string]any) error {
	var pos mgl64.Vec3
	for i, axis := range []string{"x", "y", "z"} {
		v, ok := toFloat(f[axis])
		if !ok {
			return fmt.Errorf("respawn %s must be a number, got %T", axis, f[axis])
		}
		pos[i] = v
	}
	*e.Position = pos
	return nil
}

// EventItemPickup is posted when a player is about to pick up an item.
type EventItemPickup struct {
	Ctx   *player.Context
	Stack *item.Stack
}

// Fields exposes the player, the item id and the count.
func (e *EventItemPickup) Fields() map[string]any {
	f := playerFields(contextPlayer(e.Ctx))
	f["item"] = recipe.StackItem(*e.Stack).ID()
	f["count"] = e.Stack.Count()
	return f
}

// Cancel leaves the item on the ground.
func (e *EventItemPickup) Cancel() { cancelContext(e.Ctx) }

func contextPlayer(ctx *player.Context) *player.Player {
	if ctx == nil {
		return nil
	}
	return ctx.Val()
}

func cancelContext(ctx *player.Context) {
	if ctx != nil {
		ctx.Cancel()
	}
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
