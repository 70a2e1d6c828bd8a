package reports

import "errors"

var (
	// ErrInvalidReport indicates a persist attempt without a tool or result.
	ErrInvalidReport = errors.New("invalid report: tool and result are required")

	// ErrInvalidPayload indicates an enqueue attempt without a client_id.
	ErrInvalidPayload = errors.New("invalid payload: client_id is required")

	// ErrUnavailable indicates a transient network/remote failure.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrPermissionDenied indicates the remote store rejected the credential.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPrecondition indicates the realtime channel cannot be
	// established (e.g. missing server-side index). Recovered by
	// falling back to polling, not a hard failure.
	ErrPrecondition = errors.New("subscription precondition failed")

	// ErrQueueStorage indicates both the primary and the fallback
	// queue storage failed.
	ErrQueueStorage = errors.New("queue storage failure")
)
