// Package output provides JSON output formatting, styled rendering, and
// structured error handling.
package output

// Exit codes for the CLI.
const (
	ExitOK         = 0 // Success, all checks passed
	ExitUsage      = 1 // Invalid arguments, flags, or missing credentials
	ExitChecks     = 2 // One or more checks failed
	ExitAuth       = 3 // Credential rejected by the service
	ExitNotFound   = 4 // Resource not found
	ExitValidation = 5 // Request rejected by input validation
	ExitNetwork    = 6 // Connection/DNS/timeout error
	ExitAPI        = 7 // Server returned an unexpected error
)

// Error codes for the JSON envelope.
const (
	CodeUsage      = "usage"
	CodeChecks     = "checks_failed"
	CodeAuth       = "auth_rejected"
	CodeNotFound   = "not_found"
	CodeValidation = "validation"
	CodeNetwork    = "network"
	CodeAPI        = "api_error"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage:
		return ExitUsage
	case CodeChecks:
		return ExitChecks
	case CodeAuth:
		return ExitAuth
	case CodeNotFound:
		return ExitNotFound
	case CodeValidation:
		return ExitValidation
	case CodeNetwork:
		return ExitNetwork
	case CodeAPI:
		return ExitAPI
	default:
		return ExitAPI
	}
}
