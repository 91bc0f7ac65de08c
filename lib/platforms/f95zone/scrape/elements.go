package scrape

import (
	"strings"

	"f95api/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type ElementType int

const (
	ELEMENT_EMPTY ElementType = iota
	ELEMENT_TEXT
	ELEMENT_LINK
	ELEMENT_IMAGE
	ELEMENT_SPOILER
)

func (t ElementType) String() string {
	switch t {
	case ELEMENT_EMPTY:
		return "empty"
	case ELEMENT_TEXT:
		return "text"
	case ELEMENT_LINK:
		return "link"
	case ELEMENT_IMAGE:
		return "image"
	case ELEMENT_SPOILER:
		return "spoiler"
	}
	return "unknown"
}

// PostElement is a node of a post body.
//
//   - ELEMENT_TEXT: Text is the text.
//   - ELEMENT_LINK: Name is the anchor text, Text is the href.
//   - ELEMENT_IMAGE: Name is the alt text, Text is the source.
//   - ELEMENT_SPOILER: Name is the spoiler title, Content is its body.
//   - ELEMENT_EMPTY: only the root, Content is the body.
type PostElement struct {
	Type    ElementType
	Name    string
	Text    string
	Content []PostElement
}

// Find returns the first element (depth first) matching `match`.
func (e PostElement) Find(match func(PostElement) bool) (PostElement, bool) {
	if match(e) {
		return e, true
	}
	for _, child := range e.Content {
		found, ok := child.Find(match)
		if ok {
			return found, true
		}
	}
	return PostElement{}, false
}

// Spoiler returns the spoiler with the given title (case insensitive).
func (e PostElement) Spoiler(name string) (PostElement, bool) {
	return e.Find(func(el PostElement) bool {
		return el.Type == ELEMENT_SPOILER && strings.EqualFold(el.Name, name)
	})
}

// PlainText joins every text element under `e`, one per line.
func (e PostElement) PlainText() string {
	var lines []string
	var walk func(el PostElement)
	walk = func(el PostElement) {
		if el.Type == ELEMENT_TEXT {
			lines = append(lines, el.Text)
		}
		for _, child := range el.Content {
			walk(child)
		}
	}
	walk(e)
	return strings.Join(lines, "\n")
}

// ParseBody converts a post body (usually div.bbWrapper) into an element tree.
func ParseBody(sel *goquery.Selection) PostElement {
	root := PostElement{Type: ELEMENT_EMPTY}
	for _, node := range sel.Nodes {
		root.Content = appendElements(root.Content, parseChildren(node)...)
	}
	root.Content = finishText(root.Content)
	return root
}

func parseChildren(node *html.Node) []PostElement {
	var out []PostElement
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		out = appendElements(out, parseNode(child)...)
	}
	return out
}

var lineBreak = PostElement{Type: ELEMENT_TEXT, Text: "\n"}

func parseNode(node *html.Node) []PostElement {
	switch node.Type {
	case html.TextNode:
		text := htmlutil.CleanText(node.Data)
		if text == "" {
			return nil
		}
		return []PostElement{{Type: ELEMENT_TEXT, Text: text}}
	case html.ElementNode:
	default:
		return nil
	}

	switch node.DataAtom {
	case atom.Script, atom.Style, atom.Noscript:
		return nil
	case atom.Br:
		return []PostElement{lineBreak}
	case atom.Img:
		return []PostElement{parseImage(node)}
	case atom.A:
		return parseAnchor(node)
	}

	if hasClass(node, "bbCodeSpoiler") {
		return []PostElement{parseSpoiler(node)}
	}

	children := parseChildren(node)
	if isBlock(node) {
		out := append([]PostElement{lineBreak}, children...)
		return append(out, lineBreak)
	}
	return children
}

func parseImage(node *html.Node) PostElement {
	alt, _ := htmlutil.Attr(node, "alt")
	src, ok := htmlutil.Attr(node, "data-src")
	if !ok || src == "" {
		src, _ = htmlutil.Attr(node, "src")
	}
	return PostElement{
		Type: ELEMENT_IMAGE,
		Name: htmlutil.CleanText(alt),
		Text: strings.TrimSpace(src),
	}
}

// parseAnchor returns a link, or the images it wraps when it is an image link.
func parseAnchor(node *html.Node) []PostElement {
	var images []PostElement
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			images = append(images, parseImage(n))
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(node)
	if len(images) > 0 {
		return images
	}

	href, _ := htmlutil.Attr(node, "href")
	return []PostElement{{
		Type: ELEMENT_LINK,
		Name: htmlutil.CleanText(htmlutil.GetText(node)),
		Text: strings.TrimSpace(href),
	}}
}

func parseSpoiler(node *html.Node) PostElement {
	sel := goquery.NewDocumentFromNode(node).Selection
	title := htmlutil.SelectionText(sel.Find(selectSpoilerTitle).First())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Spoiler:"))
	if title == "Spoiler" {
		title = ""
	}

	spoiler := PostElement{Type: ELEMENT_SPOILER, Name: title}
	for _, content := range sel.Find(selectSpoilerBody).First().Nodes {
		spoiler.Content = appendElements(spoiler.Content, parseChildren(content)...)
	}
	spoiler.Content = finishText(spoiler.Content)
	return spoiler
}

// appendElements merges adjacent text elements while appending.
func appendElements(out []PostElement, elements ...PostElement) []PostElement {
	for _, el := range elements {
		last := len(out) - 1
		if el.Type == ELEMENT_TEXT && last >= 0 && out[last].Type == ELEMENT_TEXT {
			out[last].Text = joinText(out[last].Text, el.Text)
			continue
		}
		out = append(out, el)
	}
	return out
}

func joinText(a, b string) string {
	if a == "" || b == "" || strings.HasSuffix(a, "\n") || strings.HasSuffix(a, "(") {
		return a + b
	}
	if strings.ContainsRune("\n,.:;!?)", rune(b[0])) {
		return a + b
	}
	return a + " " + b
}

var repeatedBreaks = strings.NewReplacer("\n\n\n", "\n\n")

// finishText trims the line breaks left around text elements and drops the
// ones that end up empty.
func finishText(elements []PostElement) []PostElement {
	out := elements[:0]
	for _, el := range elements {
		if el.Type == ELEMENT_TEXT {
			text := strings.Trim(el.Text, "\n ")
			for strings.Contains(text, "\n\n\n") {
				text = repeatedBreaks.Replace(text)
			}
			if text == "" {
				continue
			}
			el.Text = text
		}
		out = append(out, el)
	}
	return out
}

func hasClass(node *html.Node, class string) bool {
	value, ok := htmlutil.Attr(node, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(value) {
		if c == class {
			return true
		}
	}
	return false
}

func isBlock(node *html.Node) bool {
	switch node.DataAtom {
	case atom.Div, atom.P, atom.Li, atom.Ul, atom.Ol, atom.Blockquote,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.Table, atom.Tr:
		return true
	}
	return false
}
