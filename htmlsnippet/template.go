package htmlsnippet

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/gotlm"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const placeholderTag = "text"

// Extract splits an HTML document into a template and the snippets that
// fill its <text position="N"></text> placeholders, in document order.
func Extract(doc string) (string, []Snippet, error) {
	nodes, err := parseFragment(doc)
	if err != nil {
		return "", nil, err
	}

	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	ex := &extractor{found: map[*html.Node]Snippet{}}
	if err := ex.container(root); err != nil {
		return "", nil, err
	}

	// Number placeholders in document order.
	var snippets []Snippet
	var number func(*html.Node)
	number = func(n *html.Node) {
		if s, ok := ex.found[n]; ok {
			n.Attr = []html.Attribute{{Key: "position", Val: strconv.Itoa(len(snippets))}}
			snippets = append(snippets, s)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			number(c)
		}
	}
	number(root)

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", nil, &gotlm.ProcessorError{Message: "failed to render template", Cause: err, ContentType: "html"}
		}
	}

	return buf.String(), snippets, nil
}

type extractor struct {
	found map[*html.Node]Snippet
}

// container groups the children of a structural element into runs of
// inline content and replaces each run with a placeholder.
func (ex *extractor) container(n *html.Node) error {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}

	var run []*html.Node
	for _, c := range children {
		if isInlineNode(c) {
			run = append(run, c)
			continue
		}
		if err := ex.flush(n, run); err != nil {
			return err
		}
		run = nil
		if c.Type == html.ElementNode && !isRawText(c) {
			if err := ex.container(c); err != nil {
				return err
			}
		}
	}
	return ex.flush(n, run)
}

func (ex *extractor) flush(parent *html.Node, run []*html.Node) error {
	// Elements without any text at the edges (a bare <br>) stay in the template.
	for len(run) > 0 && run[0].Type == html.ElementNode && !hasText(run[0]) {
		run = run[1:]
	}
	for len(run) > 0 && run[len(run)-1].Type == html.ElementNode && !hasText(run[len(run)-1]) {
		run = run[:len(run)-1]
	}
	if len(run) == 0 {
		return nil
	}

	// A lone inline element is not a unit of its own; look inside it.
	if len(run) == 1 && run[0].Type == html.ElementNode {
		return ex.container(run[0])
	}

	if strings.TrimSpace(textContent(run)) == "" {
		return nil
	}

	first, last := run[0], run[len(run)-1]
	var prefix, suffix string
	if first.Type == html.TextNode {
		trimmed := strings.TrimLeftFunc(first.Data, unicode.IsSpace)
		prefix = first.Data[:len(first.Data)-len(trimmed)]
		first.Data = trimmed
	}
	if last.Type == html.TextNode {
		trimmed := strings.TrimRightFunc(last.Data, unicode.IsSpace)
		suffix = last.Data[len(trimmed):]
		last.Data = trimmed
	}

	var buf bytes.Buffer
	for _, c := range run {
		if err := html.Render(&buf, c); err != nil {
			return &gotlm.ProcessorError{Message: "failed to render snippet", Cause: err, ContentType: "html"}
		}
	}
	snippet, err := FromHTML(buf.String())
	if err != nil {
		return err
	}

	placeholder := &html.Node{Type: html.ElementNode, Data: placeholderTag}
	parent.InsertBefore(placeholder, first)
	if prefix != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: prefix}, placeholder)
	}
	if suffix != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: suffix}, first)
	}
	for _, c := range run {
		parent.RemoveChild(c)
	}

	ex.found[placeholder] = snippet
	return nil
}

// isRawText reports elements whose content is code, not prose.
func isRawText(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		return true
	}
	return false
}

func isInlineNode(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return true
	case html.ElementNode:
		return inlineTags[strings.ToLower(n.Data)]
	}
	return false
}

func hasText(n *html.Node) bool {
	if n.Type == html.TextNode {
		return n.Data != ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasText(c) {
			return true
		}
	}
	return false
}

func textContent(nodes []*html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return sb.String()
}

// Restore fills the placeholders of template with the rendered snippets.
// Every placeholder must have a snippet and every snippet a placeholder.
func Restore(template string, snippets []Snippet) (string, error) {
	nodes, err := parseFragment(template)
	if err != nil {
		return "", err
	}
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	doc := goquery.NewDocumentFromNode(root)
	placeholders := doc.Find(placeholderTag)
	if placeholders.Length() != len(snippets) {
		return "", &gotlm.CountMismatchError{Expected: placeholders.Length(), Got: len(snippets)}
	}

	used := make([]bool, len(snippets))
	var restoreErr error
	placeholders.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw, _ := s.Attr("position")
		pos, err := strconv.Atoi(raw)
		if err != nil || pos < 0 || pos >= len(snippets) || used[pos] {
			restoreErr = &gotlm.ProcessorError{
				Message:     fmt.Sprintf("invalid placeholder position %q", raw),
				ContentType: "html",
			}
			return false
		}
		used[pos] = true
		s.ReplaceWithHtml(snippets[pos].HTML())
		return true
	})
	if restoreErr != nil {
		return "", restoreErr
	}

	out, err := doc.Html()
	if err != nil {
		return "", &gotlm.ProcessorError{Message: "failed to serialize HTML", Cause: err, ContentType: "html"}
	}
	return out, nil
}
