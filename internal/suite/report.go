package suite

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/slipstream/providercheck/internal/overrides"
)

// Status is the outcome of one case.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// CaseResult is the outcome of one case of one suite.
type CaseResult struct {
	Case         overrides.CaseName `json:"case"`
	Variant      string             `json:"variant,omitempty"`
	Description  string             `json:"description"`
	Status       Status             `json:"status"`
	Kind         Kind               `json:"kind,omitempty"`
	Messages     []string           `json:"messages,omitempty"`
	Interactions int                `json:"interactions"`
	Recorded     int                `json:"recorded"`
	Duration     time.Duration      `json:"-"`
}

// SuiteReport collects the case results of one suite.
type SuiteReport struct {
	Name      string       `json:"name"`
	AdapterID string       `json:"adapterId"`
	Adapter   string       `json:"adapter"`
	Cassette  string       `json:"cassette"`
	Cases     []CaseResult `json:"cases"`
	Error     string       `json:"error,omitempty"`
}

// Failed returns true if any case failed or the cassette could not be saved.
func (s SuiteReport) Failed() bool {
	if s.Error != "" {
		return true
	}
	for _, c := range s.Cases {
		if c.Status == StatusFail {
			return true
		}
	}
	return false
}

// Report is the outcome of a whole run.
type Report struct {
	RunID     string        `json:"runId"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"-"`
	Suites    []SuiteReport `json:"suites"`
	Excluded  []Exclusion   `json:"excluded,omitempty"`
}

// Counts returns the number of passed, failed and skipped cases.
func (r *Report) Counts() (pass, fail, skip int) {
	for _, s := range r.Suites {
		for _, c := range s.Cases {
			switch c.Status {
			case StatusPass:
				pass++
			case StatusFail:
				fail++
			case StatusSkip:
				skip++
			}
		}
	}
	return pass, fail, skip
}

// Failed returns true if any suite failed. It decides the process exit status.
func (r *Report) Failed() bool {
	for _, s := range r.Suites {
		if s.Failed() {
			return true
		}
	}
	return false
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// maxMessages caps the messages printed per case unless verbose.
const maxMessages = 5

// WriteTable writes a human-readable summary.
func (r *Report) WriteTable(w io.Writer, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUITE\tCASE\tSTATUS\tREQUESTS\tDETAIL")
	for _, s := range r.Suites {
		for _, c := range s.Cases {
			msgs := c.Messages
			extra := 0
			if !verbose && len(msgs) > maxMessages {
				extra = len(msgs) - maxMessages
				msgs = msgs[:maxMessages]
			}
			detail := ""
			if len(msgs) > 0 {
				detail = msgs[0]
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.Name, c.Case, strings.ToUpper(string(c.Status)), c.Interactions, detail)
			for _, m := range msgs[min(1, len(msgs)):] {
				fmt.Fprintf(tw, "\t\t\t\t%s\n", m)
			}
			if extra > 0 {
				fmt.Fprintf(tw, "\t\t\t\t... %d more\n", extra)
			}
		}
		if s.Error != "" {
			fmt.Fprintf(tw, "%s\t-\tERROR\t-\t%s\n", s.Name, s.Error)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	pass, fail, skip := r.Counts()
	_, err := fmt.Fprintf(w, "\n%d suites, %d passed, %d failed, %d skipped, %d excluded\n",
		len(r.Suites), pass, fail, skip, len(r.Excluded))
	return err
}
