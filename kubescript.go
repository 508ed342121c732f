// Package kubescript runs Lua scripts on Dragonfly servers. Scripts handle
// player events, add and remove crafting recipes and edit item and block
// tags.
//
// # Quick Start
//
// Initialize kubescript in your server setup:
//
//	cfg, err := kubescript.LoadConfig()
//	if err != nil {
//	    panic(err)
//	}
//	mngr := kubescript.NewBuilder().
//	    Config(cfg).
//	    Commands().
//	    Init()
//	if _, err := mngr.RegisterRecipes(); err != nil {
//	    slog.Warn("some recipes were skipped", "err", err)
//	}
//
//	for p := range srv.Accept() {
//	    p.Handle(mngr.Join(p, nil))
//	}
//
// # Scripts
//
// Scripts live in <ScriptDir>/startup and <ScriptDir>/server and register
// listeners with onEvent:
//
//	onEvent("recipes", function(event)
//	    event.remove({output = "minecraft:stick"})
//	    event.shaped("4x minecraft:stick", {"A", "A"}, {A = "#minecraft:logs"}):id("sticks")
//	    event.smelting("minecraft:glass", "#minecraft:sand", 0.1)
//	end)
//
//	onEvent("player.chat", function(event)
//	    if event.message == "secret" then event.cancel() end
//	end)
//
// # Events
//
//	player.logged_in     player, uuid, xuid
//	player.logged_out    player, uuid, xuid
//	player.chat          message (editable), cancel()
//	player.respawned     x, y, z (editable), world
//	player.item_pickup   item, count, cancel()
//	recipes.schemas      register, components (startup scripts only)
//	tags.<kind>          add, remove, removeAll, get
//	recipes              one function per recipe type, recipe, custom, remove, count
//	recipes.after_load   recipes, removed
package kubescript

// Version is the kubescript version.
const Version = "1.0.0"
