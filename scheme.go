package modinput

import (
	"encoding/xml"
	"fmt"
)

// StreamingMode tells the host how the input frames its events.
type StreamingMode string

const (
	StreamingModeSimple StreamingMode = "simple"
	StreamingModeXML    StreamingMode = "xml"
)

// Scheme describes the configuration parameters an input accepts. The host
// requests it once per installed input (the --scheme invocation) and uses
// it to build the configuration UI and to pre-check stanza values.
type Scheme struct {
	XMLName xml.Name `xml:"scheme"`

	// Identifier for this input kind; also the stanza prefix.
	Title string `xml:"title"`

	// Human-readable description shown by the host.
	Description string `xml:"description,omitempty"`

	// Whether the host should call back with --validate-arguments before
	// accepting new configuration.
	UseExternalValidation bool `xml:"use_external_validation"`

	// Whether one process instance serves all stanzas.
	UseSingleInstance bool `xml:"use_single_instance"`

	StreamingMode StreamingMode `xml:"streaming_mode"`

	Arguments []*Argument `xml:"endpoint>args>arg"`
}

// NewScheme creates a scheme with the host's documented defaults: external
// validation on, single-instance off, XML streaming.
func NewScheme(title string) *Scheme {
	return &Scheme{
		Title:                 title,
		UseExternalValidation: true,
		UseSingleInstance:     false,
		StreamingMode:         StreamingModeXML,
	}
}

// WithDescription sets the human-readable description.
func (s *Scheme) WithDescription(description string) *Scheme {
	s.Description = description
	return s
}

// WithUseExternalValidation sets whether the host performs the
// --validate-arguments pre-flight.
func (s *Scheme) WithUseExternalValidation(v bool) *Scheme {
	s.UseExternalValidation = v
	return s
}

// WithUseSingleInstance sets whether one process serves all stanzas.
func (s *Scheme) WithUseSingleInstance(v bool) *Scheme {
	s.UseSingleInstance = v
	return s
}

// WithStreamingMode sets the event framing mode.
func (s *Scheme) WithStreamingMode(mode StreamingMode) *Scheme {
	s.StreamingMode = mode
	return s
}

// AddArgument appends an argument to the scheme.
func (s *Scheme) AddArgument(arg *Argument) *Scheme {
	s.Arguments = append(s.Arguments, arg)
	return s
}

// Argument looks up a declared argument by name.
func (s *Scheme) Argument(name string) (*Argument, bool) {
	for _, a := range s.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// ParseScheme parses a scheme document previously produced by a --scheme
// invocation.
func ParseScheme(doc []byte) (*Scheme, error) {
	var s Scheme
	if err := xml.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("parse scheme document: %w", err)
	}
	if s.Title == "" {
		return nil, malformedDataf("scheme document has no title")
	}
	return &s, nil
}
