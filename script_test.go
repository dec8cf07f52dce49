package modinput

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalInputDoc = `<input>
  <server_host>tiny</server_host>
  <server_uri>https://127.0.0.1:8089</server_uri>
  <checkpoint_dir>/tmp/checkpoints</checkpoint_dir>
  <session_key>123102983109283019283</session_key>
  <configuration>
    <stanza name="test://one">
      <param name="interval">60</param>
    </stanza>
  </configuration>
</input>`

const minimalValidationDoc = `<items>
  <server_host>tiny</server_host>
  <server_uri>https://127.0.0.1:8089</server_uri>
  <checkpoint_dir>/tmp/checkpoints</checkpoint_dir>
  <session_key>123102983109283019283</session_key>
  <item name="test://proposed">
    <param name="port">8080</param>
  </item>
</items>`

// testInput is a configurable Input for driving the harness in tests.
type testInput struct {
	scheme   *Scheme
	streamFn func(def *InputDefinition, ew *EventWriter) error
}

func (i *testInput) Scheme() *Scheme { return i.scheme }

func (i *testInput) StreamEvents(def *InputDefinition, ew *EventWriter) error {
	if i.streamFn == nil {
		return nil
	}
	return i.streamFn(def, ew)
}

// validatingInput adds an opt-in ValidateInput implementation.
type validatingInput struct {
	testInput
	validateFn func(def *ValidationDefinition) error
}

func (i *validatingInput) ValidateInput(def *ValidationDefinition) error {
	if i.validateFn == nil {
		return nil
	}
	return i.validateFn(def)
}

// runScript drives one invocation against in-memory streams and returns
// the exit code plus everything written to stdout and stderr.
func runScript(t *testing.T, input Input, args []string, stdin io.Reader) (code int, stdout, stderr string) {
	t.Helper()
	var out, side bytes.Buffer
	ew := NewEventWriter(&out, &side)
	code = NewScript(input).RunWithStreams(args, stdin, ew)
	return code, out.String(), side.String()
}

// failOnRead fails the test if anything reads from it, proving the parse
// stopped at the document's closing tag.
type failOnRead struct{ t *testing.T }

func (f failOnRead) Read([]byte) (int, error) {
	f.t.Error("read past the end of the document")
	return 0, errors.New("read past the end of the document")
}

func TestParseInvocationMode(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want invocationMode
	}{
		{"no args is stream mode", nil, modeStream},
		{"scheme flag", []string{"--scheme"}, modeScheme},
		{"scheme flag mixed case", []string{"--Scheme"}, modeScheme},
		{"scheme flag upper case", []string{"--SCHEME"}, modeScheme},
		{"validate flag", []string{"--validate-arguments"}, modeValidate},
		{"validate flag mixed case", []string{"--Validate-Arguments"}, modeValidate},
		{"only the first token matters", []string{"--scheme", "--validate-arguments"}, modeScheme},
		{"unknown flag", []string{"--frobnicate"}, modeUnrecognized},
		{"bare word", []string{"scheme"}, modeUnrecognized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseInvocationMode(tc.args))
		})
	}
}

func TestUnrecognizedArgumentsReportAndFail(t *testing.T) {
	input := &testInput{scheme: NewScheme("test")}
	code, stdout, stderr := runScript(t, input, []string{"--frobnicate", "now"}, strings.NewReader(""))

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Equal(t, "ERROR Invalid arguments to modular input script: --frobnicate now\n", stderr)
}

func TestSchemeModeWritesSchemeDocument(t *testing.T) {
	scheme := NewScheme("random_numbers").
		WithDescription("Generates random numbers").
		AddArgument(NewArgument("min").WithDataType(DataTypeNumber).WithRequiredOnCreate(true)).
		AddArgument(NewArgument("max").WithDataType(DataTypeNumber).WithRequiredOnCreate(true))
	input := &testInput{scheme: scheme}

	code, stdout, stderr := runScript(t, input, []string{"--scheme"}, strings.NewReader(""))

	assert.Equal(t, 0, code)
	assert.Empty(t, stderr, "a successful scheme request writes nothing to the side channel")

	parsed, err := ParseScheme([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, "random_numbers", parsed.Title)
	assert.Len(t, parsed.Arguments, 2)
}

func TestSchemeModeCaseInsensitiveFlag(t *testing.T) {
	input := &testInput{scheme: NewScheme("test")}
	for _, flag := range []string{"--scheme", "--Scheme", "--SCHEME"} {
		code, stdout, _ := runScript(t, input, []string{flag}, strings.NewReader(""))
		assert.Equal(t, 0, code, flag)
		assert.Contains(t, stdout, "<title>test</title>", flag)
	}
}

func TestSchemeModeNullScheme(t *testing.T) {
	code, stdout, stderr := runScript(t, &testInput{scheme: nil}, []string{"--scheme"}, strings.NewReader(""))

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout, "a null scheme must leave the output stream untouched")
	assert.Equal(t, "FATAL Modular input script returned a null scheme.\n", stderr)
}

func TestValidationModeAccept(t *testing.T) {
	input := &validatingInput{
		testInput: testInput{scheme: NewScheme("test")},
		validateFn: func(def *ValidationDefinition) error {
			assert.Equal(t, "test://proposed", def.Name)
			assert.Equal(t, "8080", def.Value("port"))
			return nil
		},
	}

	code, stdout, stderr := runScript(t, input, []string{"--validate-arguments"}, strings.NewReader(minimalValidationDoc))

	assert.Equal(t, 0, code)
	assert.Empty(t, stdout, "silence on stdout is the acceptance signal")
	assert.Empty(t, stderr)
}

func TestValidationModeReject(t *testing.T) {
	input := &validatingInput{
		testInput: testInput{scheme: NewScheme("test")},
		validateFn: func(def *ValidationDefinition) error {
			return errors.New("bad port")
		},
	}

	code, stdout, stderr := runScript(t, input, []string{"--validate-arguments"}, strings.NewReader(minimalValidationDoc))

	assert.Equal(t, 1, code)
	assert.Equal(t, "<error><message>bad port</message></error>", stdout)
	assert.Empty(t, stderr, "a rejection is structured output, not a diagnostic")
}

func TestValidationModeDefaultAlwaysAccepts(t *testing.T) {
	// testInput does not implement Validator.
	code, stdout, _ := runScript(t, &testInput{scheme: NewScheme("test")}, []string{"--validate-arguments"}, strings.NewReader(minimalValidationDoc))

	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)
}

func TestValidationModeStopsAtDocumentEnd(t *testing.T) {
	validated := false
	input := &validatingInput{
		testInput:  testInput{scheme: NewScheme("test")},
		validateFn: func(def *ValidationDefinition) error { validated = true; return nil },
	}
	stdin := io.MultiReader(strings.NewReader(minimalValidationDoc), failOnRead{t})

	code, _, _ := runScript(t, input, []string{"--validate-arguments"}, stdin)

	assert.Equal(t, 0, code)
	assert.True(t, validated)
}

func TestValidationModeMalformedDocument(t *testing.T) {
	code, stdout, stderr := runScript(t, &testInput{scheme: NewScheme("test")}, []string{"--validate-arguments"}, strings.NewReader("<items><item></items>"))

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.True(t, strings.HasPrefix(stderr, "ERROR "), "malformed input is a side-channel failure: %q", stderr)
}

func TestStreamModePassesDefinitionAndWritesEvents(t *testing.T) {
	var got *InputDefinition
	input := &testInput{
		scheme: NewScheme("test"),
		streamFn: func(def *InputDefinition, ew *EventWriter) error {
			got = def
			return ew.WriteEvent(&Event{Stanza: "test://one", Data: "hello"})
		},
	}

	code, stdout, stderr := runScript(t, input, nil, strings.NewReader(minimalInputDoc))

	assert.Equal(t, 0, code)
	assert.Empty(t, stderr)
	require.NotNil(t, got)
	assert.Equal(t, "tiny", got.ServerHost)
	assert.Equal(t, "/tmp/checkpoints", got.CheckpointDir)
	stanza, ok := got.Stanza("test://one")
	require.True(t, ok)
	assert.Equal(t, "60", stanza.Value("interval"))

	assert.True(t, strings.HasPrefix(stdout, "<stream>"), "events are framed in a stream wrapper: %q", stdout)
	assert.True(t, strings.HasSuffix(stdout, "</stream>"), "the wrapper is closed on the success path: %q", stdout)
	assert.Contains(t, stdout, `<event stanza="test://one"><data>hello</data></event>`)
}

func TestStreamModeStopsAtDocumentEnd(t *testing.T) {
	streamed := false
	input := &testInput{
		scheme:   NewScheme("test"),
		streamFn: func(def *InputDefinition, ew *EventWriter) error { streamed = true; return nil },
	}
	stdin := io.MultiReader(strings.NewReader(minimalInputDoc), failOnRead{t})

	code, _, _ := runScript(t, input, nil, stdin)

	assert.Equal(t, 0, code)
	assert.True(t, streamed, "event production must start without waiting for trailing bytes")
}

func TestStreamModeErrorIsContained(t *testing.T) {
	input := &testInput{
		scheme:   NewScheme("test"),
		streamFn: func(def *InputDefinition, ew *EventWriter) error { return errors.New("source went away") },
	}

	code, _, stderr := runScript(t, input, nil, strings.NewReader(minimalInputDoc))

	assert.Equal(t, 1, code)
	require.True(t, strings.HasPrefix(stderr, "ERROR "), "stderr: %q", stderr)
	assert.Contains(t, stderr, "source went away\\", "the failure text is the leading frame")
	assert.Contains(t, stderr, "script_test.go", "the trace names the raising frame")
}

func TestStreamModePanicIsContained(t *testing.T) {
	input := &testInput{
		scheme:   NewScheme("test"),
		streamFn: func(def *InputDefinition, ew *EventWriter) error { panic("boom") },
	}

	code, _, stderr := runScript(t, input, nil, strings.NewReader(minimalInputDoc))

	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(stderr, "ERROR "), "stderr: %q", stderr)
	assert.Contains(t, stderr, "panic: boom\\")
}

func TestStreamModeMalformedDefinition(t *testing.T) {
	code, stdout, stderr := runScript(t, &testInput{scheme: NewScheme("test")}, nil, strings.NewReader("<input><configuration><stanza/></configuration></input>"))

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "stanza with no name")
}

func TestExactlyOneModePerInvocation(t *testing.T) {
	// A scheme invocation must not touch stdin at all.
	input := &testInput{scheme: NewScheme("test")}
	code, _, _ := runScript(t, input, []string{"--scheme"}, failOnRead{t})
	assert.Equal(t, 0, code)
}
