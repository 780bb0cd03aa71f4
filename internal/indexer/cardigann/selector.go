package cardigann

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseHTML builds a document from a UTF-8 body.
func parseHTML(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// htmlRows returns the result rows of a document, skipping the first rows.After.
func htmlRows(doc *goquery.Document, rows Rows) []*goquery.Selection {
	sel := doc.Find(rows.Selector)
	if rows.Remove != "" {
		sel.Find(rows.Remove).Remove()
	}
	var out []*goquery.Selection
	sel.Each(func(i int, row *goquery.Selection) {
		if i >= rows.After {
			out = append(out, row)
		}
	})
	return out
}

// htmlError returns the message of the first error selector present in doc.
func htmlError(doc *goquery.Document, selectors []ErrorSelector) error {
	for _, es := range selectors {
		match := doc.Find(es.Selector)
		if match.Length() == 0 {
			continue
		}
		msg := es.Message
		if msg == "" {
			msg = strings.TrimSpace(match.First().Text())
		}
		if msg == "" {
			msg = "site reported an error"
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// extractHTMLField reads one field from a row. It returns false when the
// selector matches nothing and the field has no default.
func extractHTMLField(row *goquery.Selection, field Field) (string, bool) {
	target := row
	if field.Selector != "" {
		target = row.Find(field.Selector).First()
	}
	if target.Length() == 0 {
		return field.Default, field.Default != ""
	}
	if field.Remove != "" {
		target = target.Clone()
		target.Find(field.Remove).Remove()
	}
	if field.Attribute != "" {
		val, _ := target.Attr(field.Attribute)
		return strings.TrimSpace(val), true
	}
	return strings.TrimSpace(target.Text()), true
}
