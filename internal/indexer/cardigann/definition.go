// Package cardigann turns Cardigann-style YAML site definitions into adapters.
// A definition describes the search endpoints of a torrent site and how to
// extract result fields from its HTML or JSON responses.
package cardigann

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/slipstream/providercheck/internal/indexer/types"
)

// StringOrArray unmarshals from either a string or a list of strings.
// Lists are joined with ", ".
type StringOrArray string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringOrArray) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = StringOrArray(value.Value)
		return nil
	case yaml.SequenceNode:
		var arr []string
		if err := value.Decode(&arr); err != nil {
			return err
		}
		*s = StringOrArray(strings.Join(arr, ", "))
		return nil
	default:
		return fmt.Errorf("cannot unmarshal %v into StringOrArray", value.Kind)
	}
}

// Definition is a parsed site definition file.
type Definition struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Language    string   `yaml:"language"`
	Type        string   `yaml:"type"`     // public, semi-private, private
	Protocol    string   `yaml:"protocol"` // torrent (default), usenet
	Encoding    string   `yaml:"encoding"` // response charset, UTF-8 when empty
	Links       []string `yaml:"links"`

	Caps     Caps      `yaml:"caps"`
	Settings []Setting `yaml:"settings"`
	Search   Search    `yaml:"search"`
}

// Caps holds the capability flags the harness reads.
type Caps struct {
	// Backlog is required: an entry that does not say whether it supports
	// backlog search is malformed.
	Backlog      *bool               `yaml:"backlog"`
	Daily        bool                `yaml:"daily"`
	SearchParams types.SearchStrings `yaml:"searchparams"`
}

// Setting is a user-configurable value with a default.
type Setting struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Label   string `yaml:"label"`
	Default string `yaml:"default"`
}

// Search describes how to query the site and parse its answer.
type Search struct {
	Paths           []SearchPath             `yaml:"paths"`
	RSS             *SearchPath              `yaml:"rss"`
	Inputs          map[string]string        `yaml:"inputs"`
	KeywordsFilters []Filter                 `yaml:"keywordsfilters"`
	Headers         map[string]StringOrArray `yaml:"headers"`
	Rows            Rows                     `yaml:"rows"`
	Fields          map[string]Field         `yaml:"fields"`
	Error           []ErrorSelector          `yaml:"error"`
	Trackers        []string                 `yaml:"trackers"`
}

// SearchPath is one endpoint. Modes restricts it to some search modes.
type SearchPath struct {
	Path     string             `yaml:"path"`
	Method   string             `yaml:"method"`
	Inputs   map[string]string  `yaml:"inputs"`
	Modes    []types.SearchMode `yaml:"modes"`
	Response *Response          `yaml:"response"`
}

// Response selects the response parser.
type Response struct {
	Type string `yaml:"type"` // html (default), json
}

// Rows locates result rows in a response.
type Rows struct {
	Selector string `yaml:"selector"`
	// Attribute unwraps a nested object from each JSON row.
	Attribute string `yaml:"attribute"`
	After     int    `yaml:"after"`
	Remove    string `yaml:"remove"`
}

// Field extracts one value from a row.
type Field struct {
	Selector  string            `yaml:"selector"`
	Attribute string            `yaml:"attribute"`
	Text      string            `yaml:"text"`
	Remove    string            `yaml:"remove"`
	Optional  bool              `yaml:"optional"`
	Default   string            `yaml:"default"`
	Filters   []Filter          `yaml:"filters"`
	Case      map[string]string `yaml:"case"`
}

// Filter transforms an extracted value.
type Filter struct {
	Name string `yaml:"name"`
	Args any    `yaml:"args"`
}

// ErrorSelector marks a response as a site error when Selector matches.
type ErrorSelector struct {
	Selector string `yaml:"selector"`
	Message  string `yaml:"message"`
}

var (
	errMissingID      = errors.New("definition has no id")
	errMissingLinks   = errors.New("definition has no links")
	errMissingBacklog = errors.New("definition does not declare caps.backlog")
	errMissingPaths   = errors.New("definition has no search paths")
)

// ParseDefinition decodes and checks a definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition YAML: %w", err)
	}
	if err := def.check(); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParseDefinitionFile reads and parses a definition file.
func ParseDefinitionFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}
	return ParseDefinition(data)
}

func (d *Definition) check() error {
	switch {
	case d.ID == "":
		return errMissingID
	case len(d.Links) == 0:
		return errMissingLinks
	case len(d.Search.Paths) == 0:
		return errMissingPaths
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	return nil
}

// BaseURL returns the primary site URL without a trailing slash.
func (d *Definition) BaseURL() string {
	return strings.TrimSuffix(d.Links[0], "/")
}

// Capabilities maps the definition onto harness capability flags.
func (d *Definition) Capabilities() (types.Capabilities, error) {
	if d.Caps.Backlog == nil {
		return types.Capabilities{}, errMissingBacklog
	}
	protocol := d.Protocol
	if protocol == "" {
		protocol = string(types.KindTorrent)
	}
	kind, err := types.ParseKind(protocol)
	if err != nil {
		return types.Capabilities{}, err
	}
	return types.Capabilities{
		Kind:            kind,
		Public:          d.Type == "" || strings.EqualFold(d.Type, string(types.PrivacyPublic)),
		SupportsBacklog: *d.Caps.Backlog,
		EnableDaily:     d.Caps.Daily,
	}, nil
}

// settingDefaults returns the default value of every setting.
func (d *Definition) settingDefaults() map[string]string {
	out := make(map[string]string, len(d.Settings))
	for _, s := range d.Settings {
		out[s.Name] = s.Default
	}
	return out
}
