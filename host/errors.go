// Package host plays the platform's side of the modular input protocol:
// it launches input binaries in each invocation mode, feeds them their
// stdin documents, and consumes their event streams and diagnostics. It
// exists for integration testing of inputs and for local development runs.
package host

import "fmt"

// HostErrorKind classifies failures while driving an input process.
type HostErrorKind int

const (
	// HostErrorSpawn covers failures to launch the input binary.
	HostErrorSpawn HostErrorKind = iota
	// HostErrorIO covers pipe read/write failures.
	HostErrorIO
	// HostErrorProtocol covers output that violates the protocol
	// (unparseable documents, payload where silence was required).
	HostErrorProtocol
	// HostErrorExit covers a nonzero exit without a structured
	// explanation on stdout.
	HostErrorExit
)

// HostError is a failure driving an input process, classified by kind and
// carrying the process's run ID for log correlation.
type HostError struct {
	Kind    HostErrorKind
	RunID   string
	Message string
	Err     error
}

func (e *HostError) Error() string {
	var kind string
	switch e.Kind {
	case HostErrorSpawn:
		kind = "spawn failed"
	case HostErrorIO:
		kind = "pipe I/O failed"
	case HostErrorProtocol:
		kind = "protocol violation"
	case HostErrorExit:
		kind = "process failed"
	default:
		kind = "unknown failure"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (run %s): %s: %v", kind, e.RunID, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (run %s): %s", kind, e.RunID, e.Message)
}

func (e *HostError) Unwrap() error { return e.Err }

// ValidationRejectedError reports that the input rejected a proposed
// configuration through the structured error document. This is the one
// failure the protocol lets a host parse programmatically.
type ValidationRejectedError struct {
	Message string
}

func (e *ValidationRejectedError) Error() string {
	return fmt.Sprintf("configuration rejected: %s", e.Message)
}
