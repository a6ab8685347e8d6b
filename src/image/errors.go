package image

import (
	"errors"
	"fmt"
)

var (
	ErrBlobNotFound  = errors.New("blob not found")
	ErrIntegrity     = errors.New("blob integrity check failed")
	ErrInvalidLayout = errors.New("invalid image layout")
	ErrNoPlatform    = errors.New("no image for platform")
)

// LoadError wraps any failure while reading an image layout directory.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading image layout %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
