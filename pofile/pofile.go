// Package pofile reads and writes gettext PO files carrying the strings of
// one translation.
//
// Each entry holds a source string rendered as HTML with ids in msgid, its
// context path in msgctxt and the translation in msgstr. The header
// X-WagtailLocalize-TranslationID ties a file to the translation it was
// exported from. Parsing and serialisation go through gotext.
package pofile

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// TranslationIDHeader names the header that identifies the translation.
const TranslationIDHeader = "X-WagtailLocalize-TranslationID"

// Entry is one message.
type Entry struct {
	Context string
	ID      string
	Str     string
}

// Translated reports whether the entry has a translation.
func (e Entry) Translated() bool {
	return e.Str != ""
}

// Header is an ordered list of "Key: value" pairs.
type Header []HeaderField

type HeaderField struct {
	Key   string
	Value string
}

// Get returns the value of key.
func (h Header) Get(key string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Key, key) {
			return f.Value, true
		}
	}
	return "", false
}

// Set replaces or appends key.
func (h *Header) Set(key, value string) {
	for i, f := range *h {
		if strings.EqualFold(f.Key, key) {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, HeaderField{Key: key, Value: value})
}

// File is a parsed PO file.
type File struct {
	Header  Header
	Entries []Entry
}

// New returns a file with the standard headers for a translation.
func New(translationID, sourceLocale, targetLocale string) *File {
	f := &File{}
	f.Header.Set("MIME-Version", "1.0")
	f.Header.Set("Content-Type", "text/plain; charset=UTF-8")
	f.Header.Set("Content-Transfer-Encoding", "8bit")
	f.Header.Set("X-Source-Language", sourceLocale)
	f.Header.Set("Language", targetLocale)
	f.Header.Set(TranslationIDHeader, translationID)
	return f
}

// TranslationID returns the translation id header, or "".
func (f *File) TranslationID() string {
	v, _ := f.Header.Get(TranslationIDHeader)
	return v
}

// TranslationIDMismatchError is returned when a file is imported into a
// translation other than the one it was exported from.
type TranslationIDMismatchError struct {
	Expected string
	Got      string
}

func (e *TranslationIDMismatchError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("PO file has no %s header, expected %s", TranslationIDHeader, e.Expected)
	}
	return fmt.Sprintf("PO file belongs to translation %s, expected %s", e.Got, e.Expected)
}

// CheckTranslationID verifies the file was exported from translation id.
func (f *File) CheckTranslationID(id string) error {
	if got := f.TranslationID(); got != id {
		return &TranslationIDMismatchError{Expected: id, Got: got}
	}
	return nil
}

// SyntaxError is returned for input that holds no PO header or message.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string {
	return "po: " + e.Msg
}

// gotext writes msgid and msgstr verbatim apart from unescaped double
// quotes, and unquotes them with Go rules on read. Escape the rest here.
var valueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\t", `\t`, "\r", `\r`)

// Encode writes f in PO syntax. Entries come out sorted by msgctxt and
// msgid.
func Encode(w io.Writer, f *File) error {
	po := gotext.NewPo()
	d := po.GetDomain()
	if d.Headers == nil {
		d.Headers = make(map[string][]string)
	}
	for _, h := range f.Header {
		// Indexed directly: Set would canonicalise the key.
		d.Headers[h.Key] = []string{h.Value}
	}
	for _, e := range f.Entries {
		if e.ID == "" {
			continue
		}
		id, str := valueEscaper.Replace(e.ID), valueEscaper.Replace(e.Str)
		if e.Context == "" {
			d.Set(id, str)
			continue
		}
		d.SetC(id, valueEscaper.Replace(e.Context), str)
	}

	out, err := po.MarshalText()
	if err != nil {
		return fmt.Errorf("encoding PO file: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

// Decode parses a PO file. Plural entries keep their first form; comments,
// flags and obsolete entries are dropped.
func Decode(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading PO file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	po := gotext.NewPo()
	po.Parse(data)
	d := po.GetDomain()

	f := &File{}
	keys := make([]string, 0, len(d.Headers))
	for k := range d.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if v := d.Headers[k]; len(v) > 0 {
			f.Header = append(f.Header, HeaderField{Key: k, Value: v[0]})
		}
	}

	for id, t := range d.GetTranslations() {
		if id == "" {
			continue
		}
		f.Entries = append(f.Entries, Entry{ID: t.ID, Str: t.Trs[0]})
	}
	for ctx, msgs := range d.GetCtxTranslations() {
		for _, t := range msgs {
			f.Entries = append(f.Entries, Entry{Context: ctx, ID: t.ID, Str: t.Trs[0]})
		}
	}
	slices.SortFunc(f.Entries, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Context, b.Context), cmp.Compare(a.ID, b.ID))
	})

	if len(f.Header) == 0 && len(f.Entries) == 0 && len(bytes.TrimSpace(data)) > 0 {
		return nil, &SyntaxError{Msg: "no header or messages found"}
	}
	return f, nil
}
