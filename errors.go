package modinput

import "fmt"

// MalformedDataError reports a protocol document whose structure does not
// match what the host contract requires.
type MalformedDataError struct {
	Detail string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed data: %s", e.Detail)
}

func malformedDataf(format string, args ...interface{}) *MalformedDataError {
	return &MalformedDataError{Detail: fmt.Sprintf(format, args...)}
}
