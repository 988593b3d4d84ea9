package registry

// Export names of legacy `.page.*` files.
const (
	ExportPage              = "Page"
	ExportDoNotPrerender    = "doNotPrerender"
	ExportPrerender         = "prerender"
	ExportOnBeforePrerender = "onBeforePrerender"
	ExportPassToClient      = "passToClient"
	ExportTitle             = "title"
)

// Config names of pages declared with `+` files.
const (
	ConfigRoute                  = "route"
	ConfigPrerender              = "prerender"
	ConfigClientRouting          = "clientRouting"
	ConfigOnBeforePrerenderStart = "onBeforePrerenderStart"
	ConfigOnPrerenderStart       = "onPrerenderStart"
	ConfigOnBeforeRoute          = "onBeforeRoute"
)

// globalConfigNames may only be defined once for the whole build.
var globalConfigNames = map[string]bool{
	ConfigOnPrerenderStart: true,
	ConfigOnBeforeRoute:    true,
}

// nonInheritable config names apply only to the directory defining them.
var nonInheritable = map[string]bool{
	ConfigRoute: true,
}
