package modinput

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/shakeelmohamed/splunk-modinput-go/xmlio"
)

// ValidationDefinition is a proposed-but-not-yet-active configuration the
// host sends during the --validate-arguments pre-flight: the same
// connection metadata as an InputDefinition plus exactly one candidate
// stanza.
type ValidationDefinition struct {
	ServerHost    string
	ServerURI     string
	CheckpointDir string
	SessionKey    string

	// Name of the proposed stanza.
	Name string

	Parameters []Parameter
}

// Param looks up a proposed parameter by name.
func (d *ValidationDefinition) Param(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Value returns the single value of the named parameter, or "" if absent.
func (d *ValidationDefinition) Value(name string) string {
	p, ok := d.Param(name)
	if !ok {
		return ""
	}
	return p.Value()
}

type validationDefinitionDoc struct {
	XMLName       xml.Name `xml:"items"`
	ServerHost    string   `xml:"server_host"`
	ServerURI     string   `xml:"server_uri"`
	CheckpointDir string   `xml:"checkpoint_dir"`
	SessionKey    string   `xml:"session_key"`
	Item          struct {
		Name   string          `xml:"name,attr"`
		Params []paramNode     `xml:"param"`
		Lists  []paramListNode `xml:"param_list"`
	} `xml:"item"`
}

// ParseValidationDefinition reads one validation-definition document from
// the stream. The read is bounded by the document's closing tag and never
// waits for bytes past it, so the stream may stay open indefinitely.
func ParseValidationDefinition(r io.Reader) (*ValidationDefinition, error) {
	var doc validationDefinitionDoc
	if err := xmlio.NewDocumentReader(r).Next(&doc); err != nil {
		return nil, fmt.Errorf("read validation definition: %w", err)
	}

	params, err := buildParameters(fmt.Sprintf("item %q", doc.Item.Name), doc.Item.Params, doc.Item.Lists)
	if err != nil {
		return nil, err
	}
	return &ValidationDefinition{
		ServerHost:    doc.ServerHost,
		ServerURI:     doc.ServerURI,
		CheckpointDir: doc.CheckpointDir,
		SessionKey:    doc.SessionKey,
		Name:          doc.Item.Name,
		Parameters:    params,
	}, nil
}
