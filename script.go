// Package modinput implements the execution harness for modular inputs:
// standalone executables a data-collection host launches as subprocesses.
// An input implements the Input interface and hands it to a Script, which
// mediates the invocation protocol — scheme discovery, argument
// validation, and event streaming over stdin/stdout, with diagnostics on
// a stderr side channel.
package modinput

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// invocationMode routes a process launch to exactly one behavior. It is
// derived once from the raw argument list, consumed immediately, and never
// persisted.
type invocationMode int

const (
	modeStream invocationMode = iota
	modeScheme
	modeValidate
	modeUnrecognized
)

const (
	schemeFlag   = "--scheme"
	validateFlag = "--validate-arguments"
)

// parseInvocationMode selects the mode from the argument list. Only the
// first token matters and it is compared case-insensitively.
func parseInvocationMode(args []string) invocationMode {
	if len(args) == 0 {
		return modeStream
	}
	switch {
	case strings.EqualFold(args[0], schemeFlag):
		return modeScheme
	case strings.EqualFold(args[0], validateFlag):
		return modeValidate
	default:
		return modeUnrecognized
	}
}

// Script runs an Input implementation through one protocol invocation and
// owns the exit-code mapping: 0 on success, 1 on any failure, nothing else.
type Script struct {
	input Input
}

// NewScript wraps an Input implementation.
func NewScript(input Input) *Script {
	return &Script{input: input}
}

// Run executes one invocation against the real process streams and returns
// the process exit code. Failures during stream setup are contained here
// and reported on stderr, so no failure crosses the process boundary
// without a diagnostic line.
func (s *Script) Run(args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, logEntry(SeverityError, panicFrames(r)))
			code = 1
		}
	}()
	ew := NewEventWriter(os.Stdout, os.Stderr)
	return s.RunWithStreams(args, os.Stdin, ew)
}

// RunWithStreams executes one invocation against explicit streams: in
// carries the host's document, ew wraps the output stream and the
// diagnostic side channel. Exactly one mode executes per call; any failure
// escaping a mode, returned or panicked, is converted into a single ERROR
// side-channel line and exit code 1.
func (s *Script) RunWithStreams(args []string, in io.Reader, ew *EventWriter) (code int) {
	defer func() {
		if r := recover(); r != nil {
			ew.Log(SeverityError, frameLine(panicFrames(r)))
			code = 1
		}
	}()

	switch parseInvocationMode(args) {
	case modeScheme:
		return s.runSchemeMode(ew)
	case modeValidate:
		return s.runValidationMode(in, ew)
	case modeStream:
		return s.runStreamMode(in, ew)
	default:
		ew.Log(SeverityError, "Invalid arguments to modular input script: "+strings.Join(args, " "))
		return 1
	}
}

// runSchemeMode emits the input's declared scheme as one XML document on
// the output stream. A nil scheme is a contract violation by the input
// author, reported distinctly in wording but with the same exit code.
func (s *Script) runSchemeMode(ew *EventWriter) int {
	scheme := s.input.Scheme()
	if scheme == nil {
		ew.Log(SeverityFatal, "Modular input script returned a null scheme.")
		return 1
	}
	if err := ew.WriteXMLDocument(scheme); err != nil {
		return s.fail(ew, err)
	}
	return 0
}

// errorDoc is the rejection document of validation mode.
type errorDoc struct {
	XMLName xml.Name `xml:"error"`
	Message string   `xml:"message"`
}

// runValidationMode reads one proposed configuration, runs the input's
// validation, and answers with silence (accept) or an error document
// (reject). Nothing may reach the output stream on the accept path: the
// absence of output is itself the success signal.
func (s *Script) runValidationMode(in io.Reader, ew *EventWriter) int {
	def, err := ParseValidationDefinition(in)
	if err != nil {
		return s.fail(ew, err)
	}
	if verr := s.validateInput(def); verr != nil {
		if err := ew.WriteXMLDocument(errorDoc{Message: verr.Error()}); err != nil {
			return s.fail(ew, err)
		}
		return 1
	}
	return 0
}

// runStreamMode parses the input definition and hands control to the
// input's event production for the lifetime of the process. No local
// recovery: failures bubble to the containment boundary.
func (s *Script) runStreamMode(in io.Reader, ew *EventWriter) int {
	def, err := ParseInputDefinition(in)
	if err != nil {
		return s.fail(ew, err)
	}
	if err := s.input.StreamEvents(def, ew); err != nil {
		return s.fail(ew, err)
	}
	if err := ew.Close(); err != nil {
		return s.fail(ew, err)
	}
	return 0
}

// validateInput runs the input's opt-in validation; inputs that do not
// implement Validator accept everything.
func (s *Script) validateInput(def *ValidationDefinition) error {
	if v, ok := s.input.(Validator); ok {
		return v.ValidateInput(def)
	}
	return nil
}

// fail converts an escaped failure into one ERROR side-channel line
// carrying the failure text and the observing call frames, and maps it to
// exit code 1. Every mode failure funnels through here; none are retried.
func (s *Script) fail(ew *EventWriter, err error) int {
	frames := append([]string{err.Error()}, captureFrames(1)...)
	ew.Log(SeverityError, frameLine(frames))
	return 1
}

// panicFrames renders a recovered panic value with the stack that raised it.
func panicFrames(r interface{}) []string {
	return append([]string{fmt.Sprintf("panic: %v", r)}, captureFrames(2)...)
}
