// Package contract validates search results against the canonical result shape.
package contract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/slipstream/providercheck/internal/indexer/types"
)

// Rule identifies which check a violation failed.
type Rule string

const (
	RuleMissingField Rule = "missing_field"
	RuleExtraField   Rule = "extra_field"
	RuleType         Rule = "type"
	RuleEmpty        Rule = "empty"
	RuleHashLength   Rule = "hash_length"
	RuleRange        Rule = "range"
	RuleMagnet       Rule = "magnet"
	RuleURL          Rule = "url"
)

// Violation is one failed check on one result.
type Violation struct {
	Field   string `json:"field"`
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// MagnetPattern is the full-match grammar for magnet links: an info hash
// followed by any number of display-name and tracker segments.
var MagnetPattern = regexp.MustCompile(`^magnet:\?xt=urn:btih:\w{32,40}(?:&dn=[\w. %+-]+|&tr=(?:tcp|https?|udp)[\w%.:/ +-]+)*$`)

var validHashLengths = map[int]bool{0: true, 32: true, 40: true}

// Validate checks one result and returns every violation found.
func Validate(r types.Result) []Violation {
	var out []Violation

	expected := make(map[string]bool, len(types.ResultFields))
	for _, f := range types.ResultFields {
		expected[f] = true
		if _, ok := r[f]; !ok {
			out = append(out, Violation{Field: f, Rule: RuleMissingField, Message: "field is missing"})
		}
	}
	for _, k := range r.Keys() {
		if !expected[k] {
			out = append(out, Violation{Field: k, Rule: RuleExtraField, Message: "unexpected field"})
		}
	}

	out = append(out, checkText(r, types.FieldTitle)...)
	if vs := checkText(r, types.FieldLink); len(vs) > 0 {
		out = append(out, vs...)
	} else if _, present := r[types.FieldLink]; present {
		out = append(out, checkLink(r.String(types.FieldLink))...)
	}

	if v, present := r[types.FieldHash]; present {
		if s, ok := v.(string); !ok {
			out = append(out, typeViolation(types.FieldHash, "string", v))
		} else if !validHashLengths[len(s)] {
			out = append(out, Violation{
				Field:   types.FieldHash,
				Rule:    RuleHashLength,
				Message: fmt.Sprintf("length %d not in {0, 32, 40}", len(s)),
			})
		}
	}

	out = append(out, checkInt(r, types.FieldSeeders, 0)...)
	out = append(out, checkInt(r, types.FieldLeechers, 0)...)
	out = append(out, checkInt(r, types.FieldSize, -1)...)

	return out
}

// Valid reports whether r passes every check.
func Valid(r types.Result) bool {
	return len(Validate(r)) == 0
}

func checkText(r types.Result, field string) []Violation {
	v, present := r[field]
	if !present {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return []Violation{typeViolation(field, "string", v)}
	}
	if s == "" {
		return []Violation{{Field: field, Rule: RuleEmpty, Message: "must not be empty"}}
	}
	return nil
}

func checkInt(r types.Result, field string, floor int64) []Violation {
	v, present := r[field]
	if !present {
		return nil
	}
	n, ok := r.Int(field)
	if !ok {
		return []Violation{typeViolation(field, "integer", v)}
	}
	if n < floor {
		return []Violation{{Field: field, Rule: RuleRange, Message: fmt.Sprintf("%d is below minimum %d", n, floor)}}
	}
	return nil
}

func checkLink(link string) []Violation {
	if strings.HasPrefix(link, "magnet") {
		if !MagnetPattern.MatchString(link) {
			return []Violation{{Field: types.FieldLink, Rule: RuleMagnet, Message: fmt.Sprintf("malformed magnet link %q", link)}}
		}
		return nil
	}
	if !IsURL(link) {
		return []Violation{{Field: types.FieldLink, Rule: RuleURL, Message: fmt.Sprintf("invalid URL %q", link)}}
	}
	return nil
}

// IsURL reports whether s is an absolute URL with both scheme and host.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func typeViolation(field, want string, got any) Violation {
	return Violation{Field: field, Rule: RuleType, Message: fmt.Sprintf("want %s, got %T", want, got)}
}

// RecordReport is the outcome for one result of a search call.
type RecordReport struct {
	Index      int         `json:"index"`
	Title      string      `json:"title,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// Report aggregates validation across all results of one search call.
type Report struct {
	Records []RecordReport `json:"records"`
}

// ValidateAll validates every result independently.
func ValidateAll(results []types.Result) Report {
	rep := Report{Records: make([]RecordReport, 0, len(results))}
	for i, r := range results {
		rep.Records = append(rep.Records, RecordReport{
			Index:      i,
			Title:      r.String(types.FieldTitle),
			Violations: Validate(r),
		})
	}
	return rep
}

// Failed returns the records with at least one violation.
func (rep Report) Failed() []RecordReport {
	var out []RecordReport
	for _, rr := range rep.Records {
		if len(rr.Violations) > 0 {
			out = append(out, rr)
		}
	}
	return out
}

// Passed returns the number of records without violations.
func (rep Report) Passed() int {
	return len(rep.Records) - len(rep.Failed())
}

// Messages formats every violation as "result N (title): field: message".
func (rep Report) Messages() []string {
	var out []string
	for _, rr := range rep.Failed() {
		for _, v := range rr.Violations {
			out = append(out, fmt.Sprintf("result %d (%s): %s", rr.Index, rr.Title, v))
		}
	}
	return out
}
