// Package htmlsnippet splits HTML into plain text plus positional inline
// markup, and splits whole rich-text documents into a template and the
// snippets a translator works on.
package htmlsnippet

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ZaguanLabs/gotlm"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// inlineTags are the elements kept as entities inside a snippet. Anything
// else is structure and belongs in a template.
var inlineTags = map[string]bool{
	"a":       true,
	"abbr":    true,
	"acronym": true,
	"b":       true,
	"code":    true,
	"em":      true,
	"i":       true,
	"strong":  true,
	"br":      true,
}

// IsInline reports whether tag is preserved as an entity.
func IsInline(tag string) bool {
	return inlineTags[strings.ToLower(tag)]
}

var (
	// The parser folds a raw CR into LF, so CR travels as a reference.
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#13;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;")
)

// translatorPolicy strips everything a translator could inject except the
// inline tags and their synthetic ids.
var translatorPolicy = func() *bluemonday.Policy {
	tags := make([]string, 0, len(inlineTags))
	for tag := range inlineTags {
		tags = append(tags, tag)
	}
	slices.Sort(tags)

	p := bluemonday.NewPolicy()
	p.AllowElements(tags...)
	p.AllowNoAttrs().OnElements(tags...)
	p.AllowAttrs("id").OnElements(tags...)
	return p
}()

// Entity is an inline element spanning [Start, End) of a snippet's text.
// Offsets count runes.
type Entity struct {
	Start      int
	End        int
	Identifier string // Synthetic id, set only for elements carrying attributes
	Tag        string
	Attrs      []html.Attribute
	// Depth is the number of inline elements enclosing this one. Offsets
	// alone cannot tell <b>x<br></b> from <b>x</b><br>.
	Depth int
}

// Key returns the "tag#identifier" form used by HTMLAttrs.
func (e Entity) Key() string {
	return e.Tag + "#" + e.Identifier
}

// Snippet is a run of text with inline markup held as entities.
// The zero value is an empty snippet.
type Snippet struct {
	text     string
	entities []Entity
}

// UnknownEntityError is returned when translated markup refers to an
// element id the source snippet does not have.
type UnknownEntityError struct {
	Key string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown inline element %s in translation", e.Key)
}

// New builds a snippet from text and entities. Entities must be well nested
// and listed in document order.
func New(text string, entities []Entity) Snippet {
	return Snippet{text: text, entities: slices.Clone(entities)}
}

// FromHTML parses an HTML fragment. Inline tags become entities; other
// tags are dropped and their text kept.
func FromHTML(s string) (Snippet, error) {
	nodes, err := parseFragment(s)
	if err != nil {
		return Snippet{}, err
	}

	b := &builder{counters: map[string]int{}}
	for _, n := range nodes {
		b.walk(n)
	}
	return Snippet{text: string(b.text), entities: b.entities}, nil
}

// FromHTMLWithIDs parses markup produced by a translator from HTMLWithIDs.
// The input is sanitised first, and each element's id attribute becomes its
// identifier. Call RestoreAttrs to put the real attributes back.
func FromHTMLWithIDs(s string) (Snippet, error) {
	clean := translatorPolicy.Sanitize(s)
	nodes, err := parseFragment(clean)
	if err != nil {
		return Snippet{}, err
	}

	b := &builder{useIDs: true}
	for _, n := range nodes {
		b.walk(n)
	}
	return Snippet{text: string(b.text), entities: b.entities}, nil
}

// FromPlaintext wraps plain text, escaping it and turning newlines into
// <br> elements. Carriage returns are kept, so PlainText returns s
// unchanged.
func FromPlaintext(s string) Snippet {
	escaped := strings.ReplaceAll(textEscaper.Replace(s), "\n", "<br>")
	snippet, err := FromHTML(escaped)
	if err != nil {
		// escaped text with only <br> elements always parses
		return Snippet{text: s}
	}
	return snippet
}

func parseFragment(s string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(s), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, &gotlm.ProcessorError{Message: "failed to parse HTML", Cause: err, ContentType: "html"}
	}
	return nodes, nil
}

type builder struct {
	text     []rune
	entities []Entity
	counters map[string]int
	useIDs   bool
	depth    int
}

func (b *builder) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.text = append(b.text, []rune(n.Data)...)
		return
	case html.ElementNode:
	default:
		return
	}

	if isRawText(n) {
		return
	}
	tag := strings.ToLower(n.Data)
	if !inlineTags[tag] {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			b.walk(c)
		}
		return
	}

	// Recorded on open so entities stay in document order.
	idx := len(b.entities)
	e := Entity{Start: len(b.text), Tag: tag, Depth: b.depth}
	switch {
	case b.useIDs:
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val != "" {
				e.Identifier = a.Val
			}
		}
	case len(n.Attr) > 0:
		b.counters[tag]++
		e.Identifier = tag + strconv.Itoa(b.counters[tag])
		e.Attrs = slices.Clone(n.Attr)
	}
	b.entities = append(b.entities, e)

	b.depth++
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
	b.depth--
	b.entities[idx].End = len(b.text)
}

// Text returns the plain text with all markup removed.
func (s Snippet) Text() string {
	return s.text
}

// Entities returns a copy of the snippet's entities.
func (s Snippet) Entities() []Entity {
	return slices.Clone(s.entities)
}

// IsEmpty reports whether the snippet has no text and no elements.
func (s Snippet) IsEmpty() bool {
	return s.text == "" && len(s.entities) == 0
}

// PlainText returns the text with <br> elements rendered as newlines.
func (s Snippet) PlainText() string {
	runes := []rune(s.text)
	var sb strings.Builder
	pos := 0
	for _, e := range s.entities {
		if e.Tag != "br" {
			continue
		}
		sb.WriteString(string(runes[pos:e.Start]))
		sb.WriteByte('\n')
		pos = e.Start
	}
	sb.WriteString(string(runes[pos:]))
	return sb.String()
}

// HTML renders the snippet with its original attributes.
func (s Snippet) HTML() string {
	return s.render(func(e Entity) []html.Attribute { return e.Attrs })
}

// HTMLWithIDs renders the snippet with every attribute-bearing element
// reduced to a synthetic id. This is the form shown to translators.
func (s Snippet) HTMLWithIDs() string {
	return s.render(func(e Entity) []html.Attribute {
		if e.Identifier == "" {
			return nil
		}
		return []html.Attribute{{Key: "id", Val: e.Identifier}}
	})
}

// HTMLAttrs maps "tag#identifier" to the attributes of each element that
// has an identifier.
func (s Snippet) HTMLAttrs() map[string][]html.Attribute {
	attrs := make(map[string][]html.Attribute)
	for _, e := range s.entities {
		if e.Identifier != "" {
			attrs[e.Key()] = slices.Clone(e.Attrs)
		}
	}
	return attrs
}

// ReplaceHTMLAttrs returns a copy of the snippet with the attributes of
// each listed element swapped. Tags and text are untouched.
func (s Snippet) ReplaceHTMLAttrs(attrs map[string][]html.Attribute) Snippet {
	out := Snippet{text: s.text, entities: make([]Entity, len(s.entities))}
	for i, e := range s.entities {
		if e.Identifier != "" {
			if a, ok := attrs[e.Key()]; ok {
				e.Attrs = slices.Clone(a)
			}
		}
		out.entities[i] = e
	}
	return out
}

// RestoreAttrs takes a snippet parsed with FromHTMLWithIDs and fills in the
// attributes from source. Any id not present in source is an error.
func (s Snippet) RestoreAttrs(source Snippet) (Snippet, error) {
	known := source.HTMLAttrs()
	for _, e := range s.entities {
		if e.Identifier == "" {
			continue
		}
		if _, ok := known[e.Key()]; !ok {
			return Snippet{}, &UnknownEntityError{Key: e.Key()}
		}
	}
	return s.ReplaceHTMLAttrs(known), nil
}

// Equal reports whether both snippets render the same HTML.
func (s Snippet) Equal(other Snippet) bool {
	return s.HTML() == other.HTML()
}

// String implements fmt.Stringer.
func (s Snippet) String() string {
	return s.HTML()
}

func (s Snippet) render(attrsOf func(Entity) []html.Attribute) string {
	runes := []rune(s.text)
	entities := slices.Clone(s.entities)
	slices.SortStableFunc(entities, func(a, b Entity) int { return a.Start - b.Start })

	var sb strings.Builder
	pos := 0
	var stack []Entity

	writeText := func(end int) {
		if end > pos {
			sb.WriteString(textEscaper.Replace(string(runes[pos:end])))
			pos = end
		}
	}
	open := func(e Entity) {
		sb.WriteByte('<')
		sb.WriteString(e.Tag)
		for _, a := range attrsOf(e) {
			sb.WriteByte(' ')
			sb.WriteString(a.Key)
			sb.WriteString(`="`)
			sb.WriteString(attrEscaper.Replace(a.Val))
			sb.WriteByte('"')
		}
		if e.Tag == "br" {
			sb.WriteString("/>")
			return
		}
		sb.WriteByte('>')
	}
	closeTag := func(e Entity) {
		sb.WriteString("</")
		sb.WriteString(e.Tag)
		sb.WriteByte('>')
	}

	// encloses reports whether open element o must stay open for next: o
	// ends where next starts, spans it, and sits above it in the tree.
	encloses := func(o Entity, next *Entity) bool {
		return next != nil && o.Start <= next.Start && o.End >= next.End && o.Depth < next.Depth
	}

	// closeUntil closes every open element ending at or before target,
	// except those enclosing next. An element that outlives the one being
	// closed under it is closed and reopened around the boundary.
	closeUntil := func(target int, next *Entity) {
		for {
			idx := -1
			for i, e := range stack {
				if e.End > target || (e.End == target && encloses(e, next)) {
					continue
				}
				if idx < 0 || e.End < stack[idx].End {
					idx = i
				}
			}
			if idx < 0 {
				break
			}
			end := stack[idx].End
			writeText(end)

			var reopen []Entity
			for i := len(stack) - 1; i >= idx; i-- {
				closeTag(stack[i])
				if i > idx && stack[i].End > end {
					reopen = append(reopen, stack[i])
				}
			}
			stack = stack[:idx]
			for i := len(reopen) - 1; i >= 0; i-- {
				open(reopen[i])
				stack = append(stack, reopen[i])
			}
		}
		writeText(target)
	}

	for _, e := range entities {
		closeUntil(e.Start, &e)
		open(e)
		if e.Tag == "br" {
			continue
		}
		stack = append(stack, e)
	}
	closeUntil(len(runes), nil)

	return sb.String()
}
