// Package reduce turns raw HTML into plain text suitable for extraction.
package reduce

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// parse never fails on malformed markup. Scripting is disabled so that
// <noscript> content is parsed as elements and nested scripts stay removable.
func parse(markup string) *html.Node {
	node, err := html.ParseWithOptions(strings.NewReader(markup), html.ParseOptionEnableScripting(false))
	if err != nil || node == nil {
		// The tokenizer only errors on read failures, which a string reader
		// cannot produce; an empty document keeps callers total.
		return &html.Node{Type: html.DocumentNode}
	}
	return node
}

// ReduceToBody removes every script and style element and returns the
// serialized <body>, or the whole document when there is no body.
func ReduceToBody(markup string) string {
	doc := goquery.NewDocumentFromNode(parse(markup))
	doc.Find("script, style").Remove()

	body := doc.Find("body").First()
	if body.Length() > 0 {
		if out, err := goquery.OuterHtml(body); err == nil {
			return out
		}
	}
	out, err := doc.Html()
	if err != nil {
		return ""
	}
	return out
}

// Clean extracts the visible text of bodyHTML. Each text node is trimmed,
// empty ones are dropped, the rest are joined by newlines and any run of
// three or more newlines is collapsed to a paragraph break.
func Clean(bodyHTML string) string {
	parts := make([]string, 0, 64)
	collectText(parse(bodyHTML), &parts)
	return blankRuns.ReplaceAllString(strings.Join(parts, "\n"), "\n\n")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.ElementNode:
		switch strings.ToLower(n.Data) {
		case "script", "style", "template":
			return
		}
	case html.TextNode:
		if s := strings.TrimSpace(n.Data); s != "" {
			*parts = append(*parts, s)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
