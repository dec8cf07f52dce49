package modinput

import (
	"encoding/xml"
	"strconv"
	"time"
)

// Event is one unit of data an input hands to the host. Only Data is
// mandatory; every other field defaults host-side when omitted.
type Event struct {
	// Event body.
	Data string

	// Event timestamp; the host assigns its own when zero.
	Time time.Time

	Source     string
	SourceType string
	Index      string
	Host       string

	// Name of the stanza this event belongs to. Required when one process
	// serves several stanzas.
	Stanza string

	// Unbroken marks this event as a fragment of a larger logical event;
	// Done marks the final fragment.
	Unbroken bool
	Done     bool
}

type doneMarker struct{}

type eventDoc struct {
	XMLName    xml.Name    `xml:"event"`
	Stanza     string      `xml:"stanza,attr,omitempty"`
	Unbroken   string      `xml:"unbroken,attr,omitempty"`
	Time       string      `xml:"time,omitempty"`
	Source     string      `xml:"source,omitempty"`
	SourceType string      `xml:"sourcetype,omitempty"`
	Index      string      `xml:"index,omitempty"`
	Host       string      `xml:"host,omitempty"`
	Data       string      `xml:"data"`
	Done       *doneMarker `xml:"done"`
}

// doc converts the event to its wire shape, rejecting events without data.
func (e *Event) doc() (*eventDoc, error) {
	if e.Data == "" {
		return nil, malformedDataf("event has no data")
	}
	d := &eventDoc{
		Stanza:     e.Stanza,
		Source:     e.Source,
		SourceType: e.SourceType,
		Index:      e.Index,
		Host:       e.Host,
		Data:       e.Data,
	}
	if e.Unbroken {
		d.Unbroken = "1"
	}
	if !e.Time.IsZero() {
		d.Time = formatEventTime(e.Time)
	}
	if e.Done {
		d.Done = &doneMarker{}
	}
	return d, nil
}

// formatEventTime renders epoch seconds with millisecond precision, the
// timestamp form the host's event parser expects.
func formatEventTime(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMilli())/1000.0, 'f', 3, 64)
}
