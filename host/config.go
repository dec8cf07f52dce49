package host

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	modinput "github.com/shakeelmohamed/splunk-modinput-go"
)

// DefaultServerURI is used when a job file leaves server_uri unset.
const DefaultServerURI = "https://127.0.0.1:8089"

// JobStanza is one configured stanza in a job file. Params holds
// single-valued parameters, ParamLists multi-valued ones.
type JobStanza struct {
	Name       string              `yaml:"name"`
	Params     map[string]string   `yaml:"params"`
	ParamLists map[string][]string `yaml:"param_lists"`
}

// JobFile describes a local run of an input: the connection metadata the
// host would supply plus the stanzas to serve.
type JobFile struct {
	ServerHost    string      `yaml:"server_host"`
	ServerURI     string      `yaml:"server_uri"`
	CheckpointDir string      `yaml:"checkpoint_dir"`
	SessionKey    string      `yaml:"session_key"`
	Stanzas       []JobStanza `yaml:"stanzas"`
}

// LoadJobFile reads and validates a YAML job file, applying defaults:
// missing server_uri gets the local default, missing checkpoint_dir the OS
// temp dir.
func LoadJobFile(path string) (*JobFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return ParseJobFile(raw)
}

// ParseJobFile parses job-file YAML, applying the same defaults as
// LoadJobFile.
func ParseJobFile(raw []byte) (*JobFile, error) {
	var job JobFile
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("parse job file: %w", err)
	}
	if job.ServerURI == "" {
		job.ServerURI = DefaultServerURI
	}
	if job.CheckpointDir == "" {
		job.CheckpointDir = os.TempDir()
	}
	for i, stanza := range job.Stanzas {
		if stanza.Name == "" {
			return nil, fmt.Errorf("job file stanza %d has no name", i)
		}
	}
	return &job, nil
}

func (s *JobStanza) parameters() []modinput.Parameter {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	listNames := make([]string, 0, len(s.ParamLists))
	for name := range s.ParamLists {
		listNames = append(listNames, name)
	}
	sort.Strings(listNames)

	params := make([]modinput.Parameter, 0, len(names)+len(listNames))
	for _, name := range names {
		params = append(params, modinput.Parameter{Name: name, Values: []string{s.Params[name]}})
	}
	for _, name := range listNames {
		params = append(params, modinput.Parameter{Name: name, Values: s.ParamLists[name], Multi: true})
	}
	return params
}

// InputDefinition converts the job file into the stream-mode configuration
// document's typed form.
func (j *JobFile) InputDefinition() *modinput.InputDefinition {
	def := &modinput.InputDefinition{
		ServerHost:    j.ServerHost,
		ServerURI:     j.ServerURI,
		CheckpointDir: j.CheckpointDir,
		SessionKey:    j.SessionKey,
	}
	for i := range j.Stanzas {
		def.Stanzas = append(def.Stanzas, modinput.Stanza{
			Name:       j.Stanzas[i].Name,
			Parameters: j.Stanzas[i].parameters(),
		})
	}
	return def
}

// ValidationDefinition converts one named stanza into the validate-mode
// pre-flight document's typed form.
func (j *JobFile) ValidationDefinition(stanza string) (*modinput.ValidationDefinition, error) {
	for i := range j.Stanzas {
		if j.Stanzas[i].Name != stanza {
			continue
		}
		return &modinput.ValidationDefinition{
			ServerHost:    j.ServerHost,
			ServerURI:     j.ServerURI,
			CheckpointDir: j.CheckpointDir,
			SessionKey:    j.SessionKey,
			Name:          j.Stanzas[i].Name,
			Parameters:    j.Stanzas[i].parameters(),
		}, nil
	}
	return nil, fmt.Errorf("job file has no stanza %q", stanza)
}
