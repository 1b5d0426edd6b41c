// Package exitcode defines exit codes for the CLI.
package exitcode

import "tasksync/internal/service"

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown task, rejected request).
	UserError = 1

	// AuthError indicates a missing or rejected credential.
	AuthError = 2

	// BackendError indicates a network, storage or malformed-response error.
	BackendError = 3
)

// FromError maps a failed operation to an exit code.
func FromError(err error) int {
	switch service.KindOf(err) {
	case service.KindAuth:
		return AuthError
	case service.KindRejected:
		return UserError
	}
	return BackendError
}
