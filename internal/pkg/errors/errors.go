package errors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalid              = errors.New("invalid")
	ErrBusy                 = errors.New("too many queued queries")
	ErrInternal             = errors.New("internal")
	ErrDimensionMismatch    = errors.New("vector dimension mismatch")
	ErrNotBuilt             = errors.New("index not built")
	ErrCorruptIndex         = errors.New("corrupt index artifacts")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrGenerationFailure    = errors.New("generation failure")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
