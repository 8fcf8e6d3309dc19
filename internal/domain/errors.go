package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected, caller-distinguishable conditions.
var (
	ErrChatNotFound            = errors.New("chat not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrAttachmentNotFound      = errors.New("attachment not found")
	ErrUnsupportedMediaType    = errors.New("unsupported media type")
	ErrAttachmentLimitExceeded = errors.New("attachment limit exceeded")
	ErrQuotaExhausted          = errors.New("daily expert analysis limit reached")
	ErrNoAttachmentForInference = errors.New("no persisted image found for this chat")
	ErrWorkerUnavailable       = errors.New("prediction worker could not be started")
)

// WorkerError reports a worker invocation that ran and failed.
type WorkerError struct {
	ExitCode int
	Stderr   string
}

func (e *WorkerError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("prediction worker failed with exit code %d", e.ExitCode)
	}
	return fmt.Sprintf("prediction worker failed with exit code %d: %s", e.ExitCode, e.Stderr)
}

// IsWorkerError reports whether err wraps a WorkerError.
func IsWorkerError(err error) bool {
	var we *WorkerError
	return errors.As(err, &we)
}
