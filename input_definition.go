package modinput

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/shakeelmohamed/splunk-modinput-go/xmlio"
)

// InputDefinition is the configuration the host sends on stdin when it
// launches an input to collect data: connection metadata for talking back
// to the host plus the stanzas this process must serve.
type InputDefinition struct {
	ServerHost    string
	ServerURI     string
	CheckpointDir string
	SessionKey    string
	Stanzas       []Stanza
}

// Stanza looks up a configured stanza by name.
func (d *InputDefinition) Stanza(name string) (*Stanza, bool) {
	for i := range d.Stanzas {
		if d.Stanzas[i].Name == name {
			return &d.Stanzas[i], true
		}
	}
	return nil, false
}

type inputDefinitionDoc struct {
	XMLName       xml.Name     `xml:"input"`
	ServerHost    string       `xml:"server_host"`
	ServerURI     string       `xml:"server_uri"`
	CheckpointDir string       `xml:"checkpoint_dir"`
	SessionKey    string       `xml:"session_key"`
	Stanzas       []stanzaNode `xml:"configuration>stanza"`
}

type stanzaNode struct {
	Name   string          `xml:"name,attr"`
	Params []paramNode     `xml:"param"`
	Lists  []paramListNode `xml:"param_list"`
}

// ParseInputDefinition reads one input-definition document from the stream.
// The read stops at the document's closing tag; bytes after it stay in the
// stream untouched.
func ParseInputDefinition(r io.Reader) (*InputDefinition, error) {
	var doc inputDefinitionDoc
	if err := xmlio.NewDocumentReader(r).Next(&doc); err != nil {
		return nil, fmt.Errorf("read input definition: %w", err)
	}

	def := &InputDefinition{
		ServerHost:    doc.ServerHost,
		ServerURI:     doc.ServerURI,
		CheckpointDir: doc.CheckpointDir,
		SessionKey:    doc.SessionKey,
	}
	for _, sn := range doc.Stanzas {
		if sn.Name == "" {
			return nil, malformedDataf("input definition contains a stanza with no name attribute")
		}
		params, err := buildParameters(fmt.Sprintf("stanza %q", sn.Name), sn.Params, sn.Lists)
		if err != nil {
			return nil, err
		}
		def.Stanzas = append(def.Stanzas, Stanza{Name: sn.Name, Parameters: params})
	}
	return def, nil
}
