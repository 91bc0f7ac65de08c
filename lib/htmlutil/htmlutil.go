package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// GetText concatenates every text node under `node`.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var blockElements = map[atom.Atom]bool{
	atom.Div:        true,
	atom.P:          true,
	atom.Li:         true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Blockquote: true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.Button:     true,
	atom.Tr:         true,
}

// GetLines returns the text under `node` split on <br> and block level elements,
// each line is cleaned with CleanText and empty lines are dropped.
func GetLines(node *html.Node) []string {
	var buffer bytes.Buffer
	getLinesRecursive(node, &buffer)

	var lines []string
	for _, line := range strings.Split(buffer.String(), "\n") {
		line = CleanText(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func getLinesRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		buffer.WriteString(node.Data)
		return
	case html.ElementNode:
		if node.DataAtom == atom.Br {
			buffer.WriteByte('\n')
			return
		}
		if node.DataAtom == atom.Script || node.DataAtom == atom.Style {
			return
		}
	}

	block := node.Type == html.ElementNode && blockElements[node.DataAtom]
	if block {
		buffer.WriteByte('\n')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getLinesRecursive(child, buffer)
	}
	if block {
		buffer.WriteByte('\n')
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		switch {
		case unicode.IsSpace(c):
			newStr.WriteRune(' ')
		case unicode.IsPrint(c):
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText strips non-printable characters and collapses whitespace.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// SelectionText is CleanText applied to the text of a selection.
func SelectionText(sel *goquery.Selection) string {
	return CleanText(sel.Text())
}

// Attr returns the value of an attribute on a raw node.
func Attr(node *html.Node, key string) (string, bool) {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

type Anchor struct {
	Name string
	Url  *url.URL
}

// ResolveUrl parses `href` and resolves it against `base`.
func ResolveUrl(base *url.URL, href string) (*url.URL, error) {
	link, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	if base == nil {
		return link, nil
	}
	return base.ResolveReference(link), nil
}

// GetAnchors returns every anchor with a parseable href under the selection,
// relative links are resolved against `base`.
func GetAnchors(base *url.URL, sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href, ok := Attr(n, "href")
		if !ok {
			continue
		}
		link, err := ResolveUrl(base, href)
		if err != nil {
			continue
		}
		anchors = append(anchors, Anchor{
			Name: CleanText(GetText(n)),
			Url:  link,
		})
	}
	return anchors
}
