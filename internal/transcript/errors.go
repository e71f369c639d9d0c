package transcript

import (
	"errors"
	"fmt"
)

// ErrBatchFailed is returned when every item of a non-empty batch failed.
var ErrBatchFailed = errors.New("all transcripts in batch failed")

// ValidationError reports malformed input rejected before any network activity.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// FetchError wraps an upstream failure: missing captions, unavailable video,
// network fault. The upstream message is carried verbatim.
type FetchError struct {
	VideoID string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch transcript: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
