// Package normalize turns rendered profile markup into compact plain text for the
// extraction prompt.
package normalize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// MaxTextLength is the hard cap on normalized output, in characters.
	MaxTextLength = 40000

	// MinTextLength is the shortest normalized text worth sending to the model.
	MinTextLength = 100

	maxSymbolRatio = 0.30
	symbolSet      = `{}[]":,`
)

// Normalize strips non-visible subtrees from rawMarkup, selects the main content
// region and returns its filtered visible text.
func Normalize(rawMarkup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawMarkup))
	if err != nil {
		return "", fmt.Errorf("parse markup: %w", err)
	}

	// Must run before any selection or text walk.
	doc.Find("script, style, noscript").Remove()

	var lines []string
	for _, line := range strings.Split(visibleText(mainContent(doc)), "\n") {
		line = strings.TrimSpace(line)
		if keepLine(line) {
			lines = append(lines, line)
		}
	}
	return truncateRunes(strings.Join(lines, "\n"), MaxTextLength), nil
}

func mainContent(doc *goquery.Document) *goquery.Selection {
	if main := doc.Find("main").First(); main.Length() > 0 {
		return main
	}
	for _, tag := range []string{"div", "section"} {
		sel := doc.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
			class, ok := s.Attr("class")
			return ok && strings.Contains(strings.ToLower(class), "profile")
		}).First()
		if sel.Length() > 0 {
			return sel
		}
	}
	return doc.Find("body").First()
}

// visibleText joins the trimmed, non-empty text nodes under sel with newlines.
func visibleText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, "\n")
}

func keepLine(line string) bool {
	if line == "" {
		return false
	}
	if utf8.RuneCountInString(line) <= 2 {
		return false
	}
	if isAllDigits(line) {
		return false
	}
	if strings.HasPrefix(line, "{") || strings.HasPrefix(line, "[") {
		return false
	}
	if strings.Contains(line, "urn:li:") {
		return false
	}
	return symbolRatio(line) <= maxSymbolRatio
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func symbolRatio(s string) float64 {
	total, symbols := 0, 0
	for _, r := range s {
		total++
		if strings.ContainsRune(symbolSet, r) {
			symbols++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(symbols) / float64(total)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
