package logger

// Component names used with For.
const (
	ComponentCLI     = "cli"
	ComponentLight   = "light"
	ComponentRuntime = "runtime"
	ComponentPoller  = "poller"
	ComponentMetrics = "metrics"
	ComponentSource  = "source"
)
