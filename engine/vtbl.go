package engine

// Vtbl is the stable function-table contract a hot-reloadable renderer
// plugin exports. It mirrors a C-style vtable: CreateRenderer constructs
// the plugin's renderer state, Load/Unload bracket a reload so the plugin
// can save and restore whatever scene state it owns across the swap, and
// Draw renders one frame through the renderer CreateRenderer returned.
type Vtbl struct {
	CreateRenderer func() (any, error)
	Load           func(scene any) error
	Unload         func(scene any) error
	Draw           func(renderer any, deltaTime float32) error
}

// VtblSymbol is the exported symbol name a plugin must define, matching
// editor.HotReloader's plugin.Lookup call.
const VtblSymbol = "Vtbl"
