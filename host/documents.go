package host

import (
	"encoding/xml"
	"fmt"

	modinput "github.com/shakeelmohamed/splunk-modinput-go"
)

// Wire shapes for the documents the host writes onto an input's stdin.
// They mirror the shapes the plugin half parses.

type paramNode struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type paramListNode struct {
	Name   string   `xml:"name,attr"`
	Values []string `xml:"value"`
}

type stanzaNode struct {
	Name   string          `xml:"name,attr"`
	Params []paramNode     `xml:"param"`
	Lists  []paramListNode `xml:"param_list"`
}

type inputDoc struct {
	XMLName       xml.Name     `xml:"input"`
	ServerHost    string       `xml:"server_host"`
	ServerURI     string       `xml:"server_uri"`
	CheckpointDir string       `xml:"checkpoint_dir"`
	SessionKey    string       `xml:"session_key"`
	Stanzas       []stanzaNode `xml:"configuration>stanza"`
}

type itemsDoc struct {
	XMLName       xml.Name   `xml:"items"`
	ServerHost    string     `xml:"server_host"`
	ServerURI     string     `xml:"server_uri"`
	CheckpointDir string     `xml:"checkpoint_dir"`
	SessionKey    string     `xml:"session_key"`
	Item          stanzaNode `xml:"item"`
}

func splitParameters(params []modinput.Parameter) ([]paramNode, []paramListNode) {
	var singles []paramNode
	var lists []paramListNode
	for _, p := range params {
		if p.Multi {
			lists = append(lists, paramListNode{Name: p.Name, Values: p.Values})
			continue
		}
		singles = append(singles, paramNode{Name: p.Name, Value: p.Value()})
	}
	return singles, lists
}

// marshalInputDefinition renders the stream-mode stdin document.
func marshalInputDefinition(def *modinput.InputDefinition) ([]byte, error) {
	doc := inputDoc{
		ServerHost:    def.ServerHost,
		ServerURI:     def.ServerURI,
		CheckpointDir: def.CheckpointDir,
		SessionKey:    def.SessionKey,
	}
	for _, stanza := range def.Stanzas {
		singles, lists := splitParameters(stanza.Parameters)
		doc.Stanzas = append(doc.Stanzas, stanzaNode{Name: stanza.Name, Params: singles, Lists: lists})
	}
	buf, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal input definition: %w", err)
	}
	return buf, nil
}

// marshalValidationDefinition renders the validate-mode stdin document.
func marshalValidationDefinition(def *modinput.ValidationDefinition) ([]byte, error) {
	singles, lists := splitParameters(def.Parameters)
	doc := itemsDoc{
		ServerHost:    def.ServerHost,
		ServerURI:     def.ServerURI,
		CheckpointDir: def.CheckpointDir,
		SessionKey:    def.SessionKey,
		Item:          stanzaNode{Name: def.Name, Params: singles, Lists: lists},
	}
	buf, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal validation definition: %w", err)
	}
	return buf, nil
}
