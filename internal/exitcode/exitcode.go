// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion, including "there are no tasks".
	Success = 0

	// UserError indicates a user error (bad args, bad page or anchor).
	UserError = 1

	// AuthError indicates an auth/config error (missing token, no default project).
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3

	// Degraded indicates the run completed but some tasks or comments
	// could not be materialized.
	Degraded = 4
)
