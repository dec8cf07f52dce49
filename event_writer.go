package modinput

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"sync"

	"github.com/shakeelmohamed/splunk-modinput-go/xmlio"
)

const (
	streamOpen  = "<stream>"
	streamClose = "</stream>"
)

// EventWriter owns both output channels of an input process: the stdout
// document/event stream the host parses, and the stderr side channel for
// line-oriented diagnostics. The two are never conflated: payload bytes go
// only to the output stream, free-form diagnostics only to the side
// channel. All methods are safe for concurrent use.
type EventWriter struct {
	mu            sync.Mutex
	out           *bufio.Writer
	docs          *xmlio.DocumentWriter
	side          io.Writer
	headerWritten bool
	closed        bool
}

// NewEventWriter creates an EventWriter over the given output stream and
// diagnostic side channel.
func NewEventWriter(out io.Writer, side io.Writer) *EventWriter {
	buffered := bufio.NewWriter(out)
	return &EventWriter{
		out:  buffered,
		docs: xmlio.NewDocumentWriter(buffered),
		side: side,
	}
}

// WriteEvent writes one event inside the <stream> wrapper, opening the
// wrapper before the first event. Each event is flushed immediately so the
// host sees data as it is produced.
func (w *EventWriter) WriteEvent(e *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("event writer is closed")
	}
	doc, err := e.doc()
	if err != nil {
		w.logLocked(SeverityWarn, err.Error())
		return err
	}
	buf, err := xml.Marshal(doc)
	if err != nil {
		w.logLocked(SeverityWarn, fmt.Sprintf("failed to serialize event: %v", err))
		return fmt.Errorf("serialize event: %w", err)
	}
	if !w.headerWritten {
		if _, err := w.out.WriteString(streamOpen); err != nil {
			return err
		}
		w.headerWritten = true
	}
	if _, err := w.out.Write(buf); err != nil {
		return err
	}
	return w.out.Flush()
}

// WriteXMLDocument marshals v in memory and writes the document to the
// output stream wholesale, so a marshal failure never leaves a truncated
// document behind.
func (w *EventWriter) WriteXMLDocument(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.docs.Write(v); err != nil {
		return err
	}
	return w.out.Flush()
}

// Log writes one diagnostic line to the side channel.
func (w *EventWriter) Log(severity, message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.logLocked(severity, message)
}

func (w *EventWriter) logLocked(severity, message string) error {
	_, err := fmt.Fprintf(w.side, "%s %s\n", severity, message)
	return err
}

// Close ends the event stream, emitting the closing wrapper if any event
// was written, and flushes. Close is idempotent; events written after it
// fail.
func (w *EventWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.headerWritten {
		if _, err := w.out.WriteString(streamClose); err != nil {
			return err
		}
	}
	return w.out.Flush()
}
