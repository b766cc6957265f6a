package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the parent of every error returned for a bad queue or
	// message attribute. These are never retried.
	ErrValidation = errors.New("rsmq: invalid value")

	ErrEmptyName          = fmt.Errorf("%w: name cannot be empty", ErrValidation)
	ErrNameTooLong        = fmt.Errorf("%w: name must be at most %d characters", ErrValidation, maxNameLength)
	ErrNameCharacters     = fmt.Errorf("%w: name may only contain alphanumerics, hyphens and underscores", ErrValidation)
	ErrEmptyNamespace     = fmt.Errorf("%w: namespace cannot be empty", ErrValidation)
	ErrNamespaceSeparator = fmt.Errorf("%w: namespace cannot end with %q", ErrValidation, separator)
	ErrVisibilityRange    = fmt.Errorf("%w: visibility timeout must be in [0, %d]", ErrValidation, maxSeconds)
	ErrDelayRange         = fmt.Errorf("%w: delay must be in [0, %d]", ErrValidation, maxSeconds)
	ErrMaxSizeRange       = fmt.Errorf("%w: max size must be %d or in [%d, %d]", ErrValidation, UnlimitedSize, minMaxSize, maxMaxSize)

	// ErrQueueNotFound is returned by New when the queue does not exist and
	// creation was not allowed.
	ErrQueueNotFound = errors.New("rsmq: queue not found")

	// ErrQueueExists is returned by New when another client created the queue
	// between our existence check and our create. Callers should call New
	// again, which will adopt the existing queue.
	ErrQueueExists = errors.New("rsmq: queue already exists")

	ErrMessageTooLarge = errors.New("rsmq: message too large")

	// ErrStore wraps every failure reported by the Store, including
	// connectivity loss and context cancelation. The original cause is also
	// wrapped and can be matched with errors.Is/As.
	ErrStore = errors.New("rsmq: store error")
)

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
