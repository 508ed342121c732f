package kubescript

import (
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oriumgames/kubescript/script"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

// Handler posts player events to scripts and then forwards them to the
// wrapped handler. Methods it does not override go straight to the wrapped
// handler.
//
// Dragonfly calls handlers on the player's world goroutine. The script
// runtime is locked for the duration of each event.
type Handler struct {
	player.Handler
	m *Manager
}

// Compile-time check that Handler implements player.Handler.
var _ player.Handler = (*Handler)(nil)

// Join posts player.logged_in for p and returns a handler for it wrapping
// next, which may be nil. Unless Config.HideServerScriptErrors is set, the
// player is told about server script errors.
//
// Usage:
//
//	for p := range srv.Accept() {
//	    p.Handle(mngr.Join(p, nil))
//	}
func (m *Manager) Join(p *player.Player, next player.Handler) *Handler {
	if next == nil {
		next = player.NopHandler{}
	}
	m.post(EventNameLoggedIn, &EventLoggedIn{Player: p})

	if !m.cfg.HideServerScriptErrors {
		if n := len(m.Errors(script.Server)); n > 0 {
			p.Message(text.Colourf("<red>kubescript: %d server script error(s), run /kubescript errors for details</red>", n))
		}
	}
	return &Handler{Handler: next, m: m}
}

// HandleChat handles the player writing a chat message.
func (h *Handler) HandleChat(ctx *player.Context, message *string) {
	h.m.post(EventNameChat, &EventChat{Ctx: ctx, Message: message})
	if ctx.Cancelled() {
		return
	}
	h.Handler.HandleChat(ctx, message)
}

// HandleRespawn handles the player respawning.
func (h *Handler) HandleRespawn(p *player.Player, pos *mgl64.Vec3, w **world.World) {
	h.m.post(EventNameRespawn, &EventRespawn{Player: p, Position: pos, World: w})
	h.Handler.HandleRespawn(p, pos, w)
}

// HandleItemPickup handles the player picking up an item.
func (h *Handler) HandleItemPickup(ctx *player.Context, it *item.Stack) {
	h.m.post(EventNameItemPickup, &EventItemPickup{Ctx: ctx, Stack: it})
	if ctx.Cancelled() {
		return
	}
	h.Handler.HandleItemPickup(ctx, it)
}

// HandleQuit handles the player leaving the server.
func (h *Handler) HandleQuit(p *player.Player) {
	h.m.post(EventNameLoggedOut, &EventLoggedOut{Player: p})
	h.Handler.HandleQuit(p)
}
