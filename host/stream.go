package host

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// Event is one decoded event from an input's stream-mode stdout.
type Event struct {
	Stanza     string
	Time       time.Time
	Source     string
	SourceType string
	Index      string
	Host       string
	Data       string
	Unbroken   bool
	Done       bool
}

type wireEvent struct {
	Stanza     string    `xml:"stanza,attr"`
	Unbroken   string    `xml:"unbroken,attr"`
	Time       string    `xml:"time"`
	Source     string    `xml:"source"`
	SourceType string    `xml:"sourcetype"`
	Index      string    `xml:"index"`
	Host       string    `xml:"host"`
	Data       string    `xml:"data"`
	Done       *struct{} `xml:"done"`
}

func (w *wireEvent) event() (Event, error) {
	e := Event{
		Stanza:     w.Stanza,
		Source:     w.Source,
		SourceType: w.SourceType,
		Index:      w.Index,
		Host:       w.Host,
		Data:       w.Data,
		Unbroken:   w.Unbroken == "1",
		Done:       w.Done != nil,
	}
	if w.Time != "" {
		secs, err := strconv.ParseFloat(w.Time, 64)
		if err != nil {
			return Event{}, fmt.Errorf("event has unparseable time %q: %w", w.Time, err)
		}
		e.Time = time.UnixMilli(int64(math.Round(secs * 1000))).UTC()
	}
	return e, nil
}

// decodeEventStream reads <stream><event>…</event>…</stream> from r,
// invoking fn per event as it arrives. An empty stream (the input produced
// no events before closing) is not an error. Decoding stops at the first
// error from fn, which is returned unwrapped.
func decodeEventStream(r io.Reader, fn func(Event) error) error {
	dec := xml.NewDecoder(r)
	inStream := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if inStream {
				return &HostError{Kind: HostErrorProtocol, Message: "event stream ended without closing tag"}
			}
			return nil
		}
		if err != nil {
			return &HostError{Kind: HostErrorProtocol, Message: "unparseable event stream", Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case !inStream && t.Name.Local == "stream":
				inStream = true
			case inStream && t.Name.Local == "event":
				var w wireEvent
				if err := dec.DecodeElement(&w, &t); err != nil {
					return &HostError{Kind: HostErrorProtocol, Message: "unparseable event", Err: err}
				}
				e, err := w.event()
				if err != nil {
					return &HostError{Kind: HostErrorProtocol, Message: "invalid event", Err: err}
				}
				if err := fn(e); err != nil {
					return err
				}
			default:
				return &HostError{Kind: HostErrorProtocol, Message: fmt.Sprintf("unexpected element <%s> in event stream", t.Name.Local)}
			}
		case xml.EndElement:
			if t.Name.Local == "stream" {
				return nil
			}
		}
	}
}

// unmarshalErrorDoc parses the <error><message>…</message></error>
// rejection document.
func unmarshalErrorDoc(doc []byte, resp *errorResponse) error {
	wrapper := struct {
		XMLName xml.Name `xml:"error"`
		Message string   `xml:"message"`
	}{}
	if err := xml.Unmarshal(doc, &wrapper); err != nil {
		return err
	}
	resp.Message = wrapper.Message
	return nil
}
