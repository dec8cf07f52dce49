package modinput

// Parameter is one configuration value inside a stanza. The host sends
// single values as <param> and multi values as <param_list>.
type Parameter struct {
	Name   string
	Values []string
	Multi  bool
}

// Value returns the first value, or "" if the parameter is empty.
func (p Parameter) Value() string {
	if len(p.Values) == 0 {
		return ""
	}
	return p.Values[0]
}

// Stanza is one named block of configuration parameters.
type Stanza struct {
	Name       string
	Parameters []Parameter
}

// Param looks up a parameter by name.
func (s *Stanza) Param(name string) (Parameter, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Value returns the single value of the named parameter, or "" if the
// parameter is absent.
func (s *Stanza) Value(name string) string {
	p, ok := s.Param(name)
	if !ok {
		return ""
	}
	return p.Value()
}

// paramNode and paramListNode are the wire shapes shared by input and
// validation definition documents.
type paramNode struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type paramListNode struct {
	Name   string   `xml:"name,attr"`
	Values []string `xml:"value"`
}

// buildParameters converts decoded param nodes into the typed model,
// rejecting parameters that carry no name.
func buildParameters(where string, params []paramNode, lists []paramListNode) ([]Parameter, error) {
	out := make([]Parameter, 0, len(params)+len(lists))
	for _, p := range params {
		if p.Name == "" {
			return nil, malformedDataf("%s contains a param with no name attribute", where)
		}
		out = append(out, Parameter{Name: p.Name, Values: []string{p.Value}})
	}
	for _, l := range lists {
		if l.Name == "" {
			return nil, malformedDataf("%s contains a param_list with no name attribute", where)
		}
		out = append(out, Parameter{Name: l.Name, Values: l.Values, Multi: true})
	}
	return out, nil
}
