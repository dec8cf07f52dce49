// Package xmlio reads and writes whole XML documents over byte streams
// framed only by the XML itself: a document ends at its root closing tag,
// not at EOF or a length prefix.
package xmlio

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// ErrDocumentTooLarge is returned when a document exceeds the configured limits.
var ErrDocumentTooLarge = errors.New("xml document exceeds size limit")

// DocumentReader decodes XML documents from a stream one at a time.
//
// The reader consumes bytes only up to each document's closing tag and never
// reads ahead, so it is safe on a pipe that stays open after the document
// ends. Successive calls to Next decode successive documents from the same
// stream.
type DocumentReader struct {
	src    *meteredByteReader
	dec    *xml.Decoder
	limits Limits
}

// NewDocumentReader creates a DocumentReader with default limits.
func NewDocumentReader(r io.Reader) *DocumentReader {
	src := &meteredByteReader{r: r}
	return &DocumentReader{
		src:    src,
		dec:    xml.NewDecoder(src),
		limits: DefaultLimits(),
	}
}

// SetLimits updates the reader's limits.
func (dr *DocumentReader) SetLimits(limits Limits) {
	dr.limits = limits
}

// Next decodes exactly one document from the stream into v.
//
// Prolog before the root element (XML declaration, comments, whitespace) is
// skipped and counted against the document's size budget. Returns io.EOF if
// the stream ends before a root element starts, and ErrDocumentTooLarge if
// the document overruns the limits.
func (dr *DocumentReader) Next(v interface{}) error {
	dr.src.budget = dr.limits.capped()

	for {
		tok, err := dr.dec.Token()
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if err := dr.dec.DecodeElement(v, &start); err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
		return nil
	}
}

// meteredByteReader hands the XML tokenizer one byte at a time so the
// decoder never buffers past what the tokenizer has actually consumed. The
// budget is re-armed by the DocumentReader before each document.
type meteredByteReader struct {
	r      io.Reader
	budget int
	one    [1]byte
}

func (m *meteredByteReader) ReadByte() (byte, error) {
	if m.budget <= 0 {
		return 0, ErrDocumentTooLarge
	}
	for {
		n, err := m.r.Read(m.one[:])
		if n > 0 {
			m.budget--
			return m.one[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

func (m *meteredByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := m.ReadByte()
	if err != nil {
		return 0, err
	}
	p[0] = b
	return 1, nil
}

// DocumentWriter writes whole XML documents to a stream.
//
// Serialization happens fully in memory before any bytes reach the stream,
// so a marshal failure never produces a truncated document.
type DocumentWriter struct {
	writer io.Writer
	limits Limits
}

// NewDocumentWriter creates a DocumentWriter with default limits.
func NewDocumentWriter(w io.Writer) *DocumentWriter {
	return &DocumentWriter{
		writer: w,
		limits: DefaultLimits(),
	}
}

// SetLimits updates the writer's limits.
func (dw *DocumentWriter) SetLimits(limits Limits) {
	dw.limits = limits
}

// Write marshals v and writes the resulting document wholesale.
func (dw *DocumentWriter) Write(v interface{}) error {
	buf, err := xml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if len(buf) > dw.limits.capped() {
		return fmt.Errorf("document size %d exceeds limit %d: %w", len(buf), dw.limits.capped(), ErrDocumentTooLarge)
	}
	if _, err := dw.writer.Write(buf); err != nil {
		return err
	}
	return nil
}
