package cassette

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Mode selects how the recorder treats requests without a recorded match.
type Mode int

const (
	// ModeReplayOnly fails requests that have no recorded match.
	ModeReplayOnly Mode = iota
	// ModeNewEpisodes replays recorded matches and records everything else.
	ModeNewEpisodes
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeReplayOnly:
		return "replay-only"
	case ModeNewEpisodes:
		return "new-episodes"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a configuration mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "replay-only", "replay", "none":
		return ModeReplayOnly, nil
	case "new-episodes", "new_episodes", "":
		return ModeNewEpisodes, nil
	default:
		return 0, fmt.Errorf("unknown cassette mode %q", s)
	}
}

// MatcherFunc reports whether a recorded request matches an outgoing one.
type MatcherFunc func(recorded Request, method, url, body string) bool

// DefaultMatcher matches on method, URL and body.
func DefaultMatcher(recorded Request, method, url, body string) bool {
	return recorded.Method == method && recorded.URL == url && recorded.Body == body
}

// Options configures a Recorder.
type Options struct {
	// Transport performs real requests in ModeNewEpisodes. Defaults to a clone of http.DefaultTransport.
	Transport http.RoundTripper
	Matcher   MatcherFunc
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Recorder is an http.RoundTripper backed by one cassette file.
type Recorder struct {
	mu sync.Mutex

	path     string
	mode     Mode
	cassette *Cassette
	used     []bool
	appended int
	requests int
	lastURL  string
	stopped  bool

	base      http.RoundTripper
	live      http.RoundTripper
	verifyTLS bool

	matcher MatcherFunc
	logger  zerolog.Logger
	now     func() time.Time
}

// Open loads the cassette at path and returns a recorder for it.
func Open(path string, mode Mode, opts Options) (*Recorder, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	if opts.Matcher == nil {
		opts.Matcher = DefaultMatcher
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Recorder{
		path:      path,
		mode:      mode,
		cassette:  c,
		used:      make([]bool, c.Len()),
		base:      opts.Transport,
		verifyTLS: true,
		matcher:   opts.Matcher,
		logger:    opts.Logger.With().Str("component", "cassette").Str("cassette", path).Logger(),
		now:       opts.Now,
	}
	r.live = r.transportFor(true)

	r.logger.Debug().
		Str("mode", mode.String()).
		Int("interactions", c.Len()).
		Msg("Opened cassette")

	return r, nil
}

// Client returns an HTTP client that routes every request through the recorder.
func (r *Recorder) Client() *http.Client {
	return &http.Client{Transport: r}
}

// Path returns the cassette file path.
func (r *Recorder) Path() string {
	return r.path
}

// Mode returns the recording mode.
func (r *Recorder) Mode() Mode {
	return r.mode
}

// Len returns the number of interactions currently in the cassette.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cassette.Len()
}

// Requests returns the number of requests served since Open.
func (r *Recorder) Requests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests
}

// Appended returns the number of interactions recorded since Open.
func (r *Recorder) Appended() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appended
}

// LastURL returns the URL of the most recent request, or "".
func (r *Recorder) LastURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastURL
}

// Rewind makes every recorded interaction available for replay again.
func (r *Recorder) Rewind() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.used {
		r.used[i] = false
	}
}

// VerifyTLS returns whether real requests verify server certificates.
func (r *Recorder) VerifyTLS() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verifyTLS
}

// SetVerifyTLS sets certificate verification for real requests and returns a
// function restoring the previous setting.
func (r *Recorder) SetVerifyTLS(verify bool) (restore func()) {
	r.mu.Lock()
	prev := r.verifyTLS
	r.verifyTLS = verify
	r.live = r.transportFor(verify)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.verifyTLS = prev
		r.live = r.transportFor(prev)
	}
}

// transportFor must be called with mu held or before the recorder is shared.
func (r *Recorder) transportFor(verify bool) http.RoundTripper {
	t, ok := r.base.(*http.Transport)
	if !ok {
		return r.base
	}
	clone := t.Clone()
	if clone.TLSClientConfig == nil {
		clone.TLSClientConfig = &tls.Config{}
	}
	clone.TLSClientConfig.InsecureSkipVerify = !verify //nolint:gosec // scoped per case
	return clone
}

// RoundTrip replays a recorded response or, in ModeNewEpisodes, records a new one.
func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, &Error{Op: "match", Path: r.path, Method: req.Method, URL: req.URL.String(), Err: err}
	}
	method, url := req.Method, req.URL.String()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil, &Error{Op: "match", Path: r.path, Method: method, URL: url, Err: ErrStopped}
	}
	r.requests++
	r.lastURL = url
	if i := r.match(method, url, body); i >= 0 {
		interaction := r.cassette.Interactions[i]
		r.mu.Unlock()
		r.logger.Debug().Str("method", method).Str("url", url).Int("index", i).Msg("Replaying interaction")
		return interaction.Response.toHTTP(req), nil
	}
	if r.mode == ModeReplayOnly {
		r.mu.Unlock()
		return nil, &Error{Op: "match", Path: r.path, Method: method, URL: url, Err: ErrInteractionNotFound}
	}
	live := r.live
	r.mu.Unlock()

	out := req.Clone(req.Context())
	if body != "" {
		out.Body = io.NopCloser(strings.NewReader(body))
		out.ContentLength = int64(len(body))
	}
	resp, err := live.RoundTrip(out)
	if err != nil {
		return nil, &Error{Op: "record", Path: r.path, Method: method, URL: url, Err: err}
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &Error{Op: "record", Path: r.path, Method: method, URL: url, Err: err}
	}

	interaction := &Interaction{
		Request: Request{
			Method:  method,
			URL:     url,
			Body:    body,
			Headers: cleanHeaders(req.Header),
		},
		Response: Response{
			Status:  resp.Status,
			Code:    resp.StatusCode,
			Headers: cleanHeaders(resp.Header),
			Body:    string(respBody),
		},
		RecordedAt: r.now().UTC().Truncate(time.Second),
	}

	r.mu.Lock()
	r.cassette.Interactions = append(r.cassette.Interactions, interaction)
	r.used = append(r.used, true)
	r.appended++
	r.mu.Unlock()

	r.logger.Info().Str("method", method).Str("url", url).Int("status", resp.StatusCode).Msg("Recorded new interaction")

	return interaction.Response.toHTTP(req), nil
}

// match must be called with mu held. It returns the first unused matching
// interaction, or the last matching one once all matches have been replayed.
func (r *Recorder) match(method, url, body string) int {
	last := -1
	for i, in := range r.cassette.Interactions {
		if !r.matcher(in.Request, method, url, body) {
			continue
		}
		if !r.used[i] {
			r.used[i] = true
			return i
		}
		last = i
	}
	return last
}

// Stop writes the cassette if new interactions were recorded. An untouched
// cassette file is never rewritten.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil
	}
	r.stopped = true

	if r.appended == 0 {
		return nil
	}
	if err := r.cassette.Save(r.path); err != nil {
		return err
	}
	r.logger.Info().Int("appended", r.appended).Int("interactions", r.cassette.Len()).Msg("Saved cassette")
	return nil
}

func readBody(req *http.Request) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return "", nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (resp Response) toHTTP(req *http.Request) *http.Response {
	header := make(http.Header, len(resp.Headers))
	for k, v := range resp.Headers {
		header[k] = append([]string(nil), v...)
	}
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.Code, http.StatusText(resp.Code))
	}
	return &http.Response{
		Status:        status,
		StatusCode:    resp.Code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}
}
