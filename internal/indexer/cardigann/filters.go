package cardigann

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/slipstream/providercheck/internal/indexer/common"
)

// FilterFunc transforms a value using positional arguments.
type FilterFunc func(value string, args []string) (string, error)

var filters = map[string]FilterFunc{
	"replace":     filterReplace,
	"re_replace":  filterReReplace,
	"split":       filterSplit,
	"trim":        filterTrim,
	"prepend":     filterPrepend,
	"append":      filterAppend,
	"tolower":     func(v string, _ []string) (string, error) { return strings.ToLower(v), nil },
	"toupper":     func(v string, _ []string) (string, error) { return strings.ToUpper(v), nil },
	"urldecode":   filterURLDecode,
	"urlencode":   func(v string, _ []string) (string, error) { return url.QueryEscape(v), nil },
	"querystring": filterQueryString,
	"htmldecode":  func(v string, _ []string) (string, error) { return html.UnescapeString(v), nil },
	"regexp":      filterRegexp,
	"size":        filterSize,
	"diacritics":  filterDiacritics,
	"normalize":   filterNormalize,
}

// ApplyFilters runs the filters in order. Unknown filter names are ignored.
func ApplyFilters(value string, list []Filter) (string, error) {
	return applyFilters(value, list, nil, nil)
}

func applyFilters(value string, list []Filter, engine *TemplateEngine, ctx *TemplateContext) (string, error) {
	for _, f := range list {
		fn, ok := filters[f.Name]
		if !ok {
			continue
		}
		args := filterArgs(f.Args)
		if engine != nil {
			for i, arg := range args {
				if evaluated, err := engine.Evaluate(arg, ctx); err == nil {
					args[i] = evaluated
				}
			}
		}
		var err error
		if value, err = fn(value, args); err != nil {
			return "", fmt.Errorf("filter %s: %w", f.Name, err)
		}
	}
	return value, nil
}

func filterArgs(args any) []string {
	switch v := args.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = fmt.Sprint(item)
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

func filterReplace(value string, args []string) (string, error) {
	if len(args) < 2 {
		return value, nil
	}
	return strings.ReplaceAll(value, args[0], args[1]), nil
}

func filterReReplace(value string, args []string) (string, error) {
	if len(args) < 2 {
		return value, nil
	}
	re, err := regexp.Compile(args[0])
	if err != nil {
		return "", err
	}
	return re.ReplaceAllString(value, args[1]), nil
}

// filterSplit returns the part at index args[1] of value split on args[0].
// Negative indexes count from the end.
func filterSplit(value string, args []string) (string, error) {
	if len(args) < 2 {
		return value, nil
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("bad index %q", args[1])
	}
	parts := strings.Split(value, args[0])
	if idx < 0 {
		idx += len(parts)
	}
	if idx < 0 || idx >= len(parts) {
		return "", nil
	}
	return parts[idx], nil
}

func filterTrim(value string, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Trim(value, args[0]), nil
	}
	return strings.TrimSpace(value), nil
}

func filterPrepend(value string, args []string) (string, error) {
	if len(args) == 0 {
		return value, nil
	}
	return args[0] + value, nil
}

func filterAppend(value string, args []string) (string, error) {
	if len(args) == 0 {
		return value, nil
	}
	return value + args[0], nil
}

func filterURLDecode(value string, _ []string) (string, error) {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return value, nil
	}
	return decoded, nil
}

// filterQueryString extracts one query parameter from a URL or a bare query string.
func filterQueryString(value string, args []string) (string, error) {
	if len(args) == 0 {
		return value, nil
	}
	if u, err := url.Parse(value); err == nil && u.RawQuery != "" {
		return u.Query().Get(args[0]), nil
	}
	q, err := url.ParseQuery(value)
	if err != nil {
		return "", nil
	}
	return q.Get(args[0]), nil
}

// filterRegexp returns the first capture group, or "" when nothing matches.
func filterRegexp(value string, args []string) (string, error) {
	if len(args) == 0 {
		return value, nil
	}
	re, err := regexp.Compile(args[0])
	if err != nil {
		return "", err
	}
	m := re.FindStringSubmatch(value)
	if len(m) < 2 {
		return "", nil
	}
	return m[1], nil
}

// filterSize converts a human size to a byte count. Unparsable sizes become "-1".
func filterSize(value string, _ []string) (string, error) {
	n, ok := common.ParseSize(value)
	if !ok {
		return "-1", nil
	}
	return strconv.FormatInt(n, 10), nil
}

func filterDiacritics(value string, _ []string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value, nil
	}
	return out, nil
}

var whitespace = regexp.MustCompile(`\s+`)

func filterNormalize(value string, _ []string) (string, error) {
	return strings.TrimSpace(whitespace.ReplaceAllString(value, " ")), nil
}
