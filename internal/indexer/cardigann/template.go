package cardigann

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/slipstream/providercheck/internal/indexer/types"
)

// TemplateContext is the data visible to definition templates.
type TemplateContext struct {
	Config   map[string]string
	Keywords string
	Query    QueryContext
	Result   map[string]string
	Today    TimeContext
}

// QueryContext holds the current query.
type QueryContext struct {
	Keywords string
	Mode     types.SearchMode
}

// TimeContext is the date of the run.
type TimeContext struct {
	Year  int
	Month int
	Day   int
}

// NewTemplateContext creates a context dated now.
func NewTemplateContext(now time.Time) *TemplateContext {
	return &TemplateContext{
		Config: make(map[string]string),
		Result: make(map[string]string),
		Today:  TimeContext{Year: now.Year(), Month: int(now.Month()), Day: now.Day()},
	}
}

// withQuery returns a copy of ctx for one query with an empty Result map.
func (c *TemplateContext) withQuery(mode types.SearchMode, keywords string) *TemplateContext {
	out := *c
	out.Keywords = keywords
	out.Query = QueryContext{Keywords: keywords, Mode: mode}
	out.Result = make(map[string]string)
	return &out
}

// TemplateEngine evaluates {{ }} expressions found in definition strings.
type TemplateEngine struct {
	funcs template.FuncMap
}

// NewTemplateEngine creates an engine with the definition helper functions.
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{funcs: template.FuncMap{
		"join":       strings.Join,
		"replace":    func(s, old, repl string) string { return strings.ReplaceAll(s, old, repl) },
		"re_replace": funcReReplace,
		"tolower":    strings.ToLower,
		"toupper":    strings.ToUpper,
		"trim":       strings.TrimSpace,
		"default":    funcDefault,
	}}
}

// Evaluate renders tmpl. Strings without template markers are returned as is.
func (e *TemplateEngine) Evaluate(tmpl string, ctx *TemplateContext) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}
	t, err := template.New("").Funcs(e.funcs).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template parse error: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("template execute error: %w", err)
	}
	return buf.String(), nil
}

func funcReReplace(s, pattern, repl string) string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return s
	}
	return re.ReplaceAllString(s, repl)
}

func funcDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
