package sprite

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for arguments no amount of retrying can fix,
// such as a non-positive sprite size or an empty frame list.
var ErrInvalidInput = errors.New("invalid input")

// DecodeError reports an input buffer that could not be parsed as an image.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("could not decode image: %v", e.Err)
	}
	return fmt.Sprintf("could not decode image %q: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
