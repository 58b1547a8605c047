// Package extractor recovers the HTML document embedded in an agent's final answer.
//
// The agent does not format its answer consistently: sometimes a fenced code
// block, sometimes raw markup, sometimes prose around markup. Matchers are tried
// in order of specificity and the first hit wins.
package extractor

import (
	"regexp"
	"strings"

	"github.com/timmy/loginscraper/internal/domain"
)

// ErrNotFound is returned when no matcher recognises an HTML document.
var ErrNotFound = domain.ErrExtractionFailed

// Matcher is one extraction heuristic.
type Matcher struct {
	Name  string
	Match func(raw string) (string, bool)
}

var (
	fencedHTMLRe = regexp.MustCompile("(?is)```[ \\t]*(?:html|xhtml|htm)\\b[ \\t]*\\r?\\n?(.*?)```")
	htmlSpanRe   = regexp.MustCompile(`(?is)<html\b[^>]*>.*</html\s*>`)
	doctypeRe    = regexp.MustCompile(`(?i)<!DOCTYPE\s+html\b[^>]*>`)
	closingTagRe = regexp.MustCompile(`</[A-Za-z][A-Za-z0-9-]*\s*>`)
)

// DefaultMatchers is the ordered strategy table used by Extract.
var DefaultMatchers = []Matcher{
	{Name: "fenced_block", Match: matchFencedBlock},
	{Name: "html_element", Match: matchHTMLElement},
	{Name: "doctype", Match: matchDoctype},
}

// Extractor applies an ordered list of matchers.
type Extractor struct {
	matchers []Matcher
}

// New creates an Extractor; with no matchers it uses DefaultMatchers.
func New(matchers ...Matcher) *Extractor {
	if len(matchers) == 0 {
		matchers = DefaultMatchers
	}
	return &Extractor{matchers: matchers}
}

// Extract returns the HTML found in raw and the name of the matcher that found it.
// Parameters:
//   - raw: final textual response produced by the remote agent.
// Returns:
//   - html: extracted document.
//   - strategy: name of the winning matcher.
//   - err: ErrNotFound when no matcher applies.
func (e *Extractor) Extract(raw string) (html string, strategy string, err error) {
	for _, m := range e.matchers {
		if out, ok := m.Match(raw); ok {
			return out, m.Name, nil
		}
	}
	return "", "", ErrNotFound
}

// Extract runs DefaultMatchers against raw.
func Extract(raw string) (string, error) {
	html, _, err := New().Extract(raw)
	return html, err
}

func matchFencedBlock(raw string) (string, bool) {
	m := fencedHTMLRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	body := strings.TrimSpace(m[1])
	if body == "" {
		return "", false
	}
	return body, true
}

func matchHTMLElement(raw string) (string, bool) {
	span := htmlSpanRe.FindString(raw)
	if span == "" {
		return "", false
	}
	return span, true
}

// matchDoctype returns everything from the declaration up to the last closing
// tag, or to the end of the response when no closing tag follows.
func matchDoctype(raw string) (string, bool) {
	loc := doctypeRe.FindStringIndex(raw)
	if loc == nil {
		return "", false
	}
	rest := raw[loc[0]:]
	if tags := closingTagRe.FindAllStringIndex(rest, -1); len(tags) > 0 {
		return rest[:tags[len(tags)-1][1]], true
	}
	return strings.TrimSpace(rest), true
}
