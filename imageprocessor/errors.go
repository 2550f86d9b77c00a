package imageprocessor

import "fmt"

// DecodeError reports a file that could not be interpreted as an image
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Kind names the failure class for logs and reports
func (e *DecodeError) Kind() string { return "decode" }

// IOError reports a file that could not be read
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Kind names the failure class for logs and reports
func (e *IOError) Kind() string { return "io" }

// newImageLoadError creates a standardized error for image loading failures
func newImageLoadError(message, path string) error {
	return &DecodeError{Path: path, Err: fmt.Errorf("%s", message)}
}
