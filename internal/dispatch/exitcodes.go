package dispatch

// Exit codes returned by the dispatcher.
const (
	ExitSuccess     = 0   // Action completed normally
	ExitRuntime     = 1   // Action failed or panicked
	ExitUsage       = 2   // Unknown action or invalid action arguments
	ExitInterrupted = 130 // Terminated by SIGINT/SIGTERM while the action ran
)

// DefaultAction is selected when the invocation carries no tokens.
const DefaultAction = "run"
