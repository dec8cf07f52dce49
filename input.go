package modinput

// Input is the contract a modular input implements. The harness calls
// Scheme once per --scheme invocation and StreamEvents once per stream
// invocation; StreamEvents is expected to run for the operational lifetime
// of the process, producing an unbounded sequence of events through ew.
type Input interface {
	// Scheme returns the input's declared configuration scheme. Returning
	// nil is a contract violation reported as FATAL to the host.
	Scheme() *Scheme

	// StreamEvents produces events for the configured stanzas. A returned
	// error ends the process with exit code 1 and a diagnostic trace on
	// the side channel.
	StreamEvents(def *InputDefinition, ew *EventWriter) error
}

// Validator is the opt-in second half of the contract: inputs that
// implement it get a --validate-arguments pre-flight from the host before
// new configuration is accepted. Inputs that do not implement it accept
// every proposed configuration.
type Validator interface {
	// ValidateInput inspects a proposed configuration. A returned error
	// rejects it; the error text is sent to the host as the rejection
	// message.
	ValidateInput(def *ValidationDefinition) error
}
