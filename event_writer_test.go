package modinput

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter() (*EventWriter, *bytes.Buffer, *bytes.Buffer) {
	var out, side bytes.Buffer
	return NewEventWriter(&out, &side), &out, &side
}

func TestEventWriterOpensStreamBeforeFirstEvent(t *testing.T) {
	ew, out, _ := newTestWriter()

	require.NoError(t, ew.WriteEvent(&Event{Data: "one"}))
	require.NoError(t, ew.WriteEvent(&Event{Data: "two"}))
	require.NoError(t, ew.Close())

	assert.Equal(t, "<stream><event><data>one</data></event><event><data>two</data></event></stream>", out.String())
}

func TestEventWriterCloseWithoutEventsWritesNothing(t *testing.T) {
	ew, out, side := newTestWriter()

	require.NoError(t, ew.Close())

	assert.Empty(t, out.String())
	assert.Empty(t, side.String())
}

func TestEventWriterCloseIsIdempotent(t *testing.T) {
	ew, out, _ := newTestWriter()

	require.NoError(t, ew.WriteEvent(&Event{Data: "one"}))
	require.NoError(t, ew.Close())
	require.NoError(t, ew.Close())

	assert.Equal(t, "<stream><event><data>one</data></event></stream>", out.String())
}

func TestEventWriterRejectsEventsAfterClose(t *testing.T) {
	ew, _, _ := newTestWriter()

	require.NoError(t, ew.Close())
	assert.Error(t, ew.WriteEvent(&Event{Data: "late"}))
}

func TestEventWriterRejectsEventWithoutData(t *testing.T) {
	ew, out, side := newTestWriter()

	err := ew.WriteEvent(&Event{Stanza: "test://one"})
	require.Error(t, err)
	var mde *MalformedDataError
	assert.ErrorAs(t, err, &mde)
	assert.Empty(t, out.String(), "a rejected event must not open the stream")
	assert.Contains(t, side.String(), "WARN ")
}

func TestEventWriterLogGoesOnlyToSideChannel(t *testing.T) {
	ew, out, side := newTestWriter()

	require.NoError(t, ew.Log(SeverityInfo, "collecting"))

	assert.Empty(t, out.String())
	assert.Equal(t, "INFO collecting\n", side.String())
}

func TestEventWriterWriteXMLDocument(t *testing.T) {
	ew, out, side := newTestWriter()

	require.NoError(t, ew.WriteXMLDocument(errorDoc{Message: "bad port"}))

	assert.Equal(t, "<error><message>bad port</message></error>", out.String())
	assert.Empty(t, side.String())
}

func TestEventSerializationFullShape(t *testing.T) {
	ew, out, _ := newTestWriter()

	ts := time.Date(2014, time.July, 20, 22, 22, 2, 0, time.UTC)
	require.NoError(t, ew.WriteEvent(&Event{
		Stanza:     "test://one",
		Time:       ts,
		Source:     "hilda",
		SourceType: "misc",
		Index:      "main",
		Host:       "localhost",
		Data:       "hello world",
		Unbroken:   true,
		Done:       true,
	}))
	require.NoError(t, ew.Close())

	assert.Equal(t,
		`<stream><event stanza="test://one" unbroken="1">`+
			`<time>1405894922.000</time>`+
			`<source>hilda</source>`+
			`<sourcetype>misc</sourcetype>`+
			`<index>main</index>`+
			`<host>localhost</host>`+
			`<data>hello world</data>`+
			`<done></done>`+
			`</event></stream>`,
		out.String())
}

func TestEventTimeMillisecondPrecision(t *testing.T) {
	ts := time.Date(2014, time.July, 20, 22, 22, 2, 537_000_000, time.UTC)
	assert.Equal(t, "1405894922.537", formatEventTime(ts))
}

func TestEventOmitsUnsetFields(t *testing.T) {
	ew, out, _ := newTestWriter()

	require.NoError(t, ew.WriteEvent(&Event{Data: "bare"}))
	require.NoError(t, ew.Close())

	assert.Equal(t, "<stream><event><data>bare</data></event></stream>", out.String())
}
