// Package cassette records HTTP interactions to YAML files and replays them.
package cassette

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Extension is the file extension of every cassette.
const Extension = ".yaml"

// FormatVersion is written to every cassette.
const FormatVersion = 1

// Path returns the cassette path for an adapter identifier.
func Path(dir, id string) string {
	return filepath.Join(dir, id+Extension)
}

// Cassette is an ordered log of recorded interactions.
type Cassette struct {
	Version      int            `yaml:"version"`
	Interactions []*Interaction `yaml:"interactions"`
}

// Interaction is one recorded request/response pair.
type Interaction struct {
	Request    Request   `yaml:"request"`
	Response   Response  `yaml:"response"`
	RecordedAt time.Time `yaml:"recorded_at,omitempty"`
}

// Request is the recorded side of an outgoing request.
type Request struct {
	Method  string              `yaml:"method"`
	URL     string              `yaml:"url"`
	Body    string              `yaml:"body,omitempty"`
	Headers map[string][]string `yaml:"headers,omitempty"`
}

// Response is the recorded reply.
type Response struct {
	Status  string              `yaml:"status"`
	Code    int                 `yaml:"code"`
	Headers map[string][]string `yaml:"headers,omitempty"`
	Body    string              `yaml:"body"`
}

// Headers that change between otherwise identical requests or carry credentials.
var volatileHeaders = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"Date",
	"Expires",
	"Age",
	"Cf-Ray",
	"Report-To",
	"Nel",
}

// New returns an empty cassette.
func New() *Cassette {
	return &Cassette{Version: FormatVersion}
}

// Load reads a cassette file. A missing file yields an empty cassette.
func Load(path string) (*Cassette, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, &Error{Op: "load", Path: path, Err: err}
	}

	c := New()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, &Error{Op: "load", Path: path, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	if c.Version == 0 {
		c.Version = FormatVersion
	}
	if c.Version != FormatVersion {
		return nil, &Error{Op: "load", Path: path, Err: fmt.Errorf("%w: unsupported version %d", ErrCorrupt, c.Version)}
	}
	return c, nil
}

// Save writes the cassette through a temporary file so a failed write never truncates it.
func (c *Cassette) Save(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return &Error{Op: "save", Path: path, Err: err}
	}
	if err := enc.Close(); err != nil {
		return &Error{Op: "save", Path: path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &Error{Op: "save", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return &Error{Op: "save", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &Error{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &Error{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &Error{Op: "save", Path: path, Err: err}
	}
	return nil
}

// Len returns the number of interactions.
func (c *Cassette) Len() int {
	return len(c.Interactions)
}

func cleanHeaders(h http.Header) map[string][]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, v := range h {
		out[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	for _, k := range volatileHeaders {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
