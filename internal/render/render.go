// Package render writes a final RFQ record out as a document.
package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/hyperjump/rfqrocket/internal/models"
)

// Supported output formats.
const (
	FormatDOCX = "docx"
	FormatXLSX = "xlsx"
)

// DocumentTitle heads every rendered document.
const DocumentTitle = "REQUEST FOR QUOTATION"

// ErrUnknownFormat is returned by ForFormat for formats with no renderer.
var ErrUnknownFormat = errors.New("unknown output format")

// Meta carries document-level details that are not part of the record.
type Meta struct {
	SourceName  string
	GeneratedAt time.Time
}

// Renderer writes rec as a complete document to w.
type Renderer interface {
	Render(w io.Writer, rec models.Record, meta Meta) error
	// Ext is the file extension, without the dot.
	Ext() string
}

// ForFormat returns the renderer for format ("docx" or "xlsx"). An empty
// format selects DOCX.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", FormatDOCX:
		return DOCXRenderer{}, nil
	case FormatXLSX:
		return XLSXRenderer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// OutputName returns the file name for a document rendered at now, e.g.
// RFQ_20240131_154502.docx.
func OutputName(ext string, now time.Time) string {
	return fmt.Sprintf("RFQ_%s.%s", now.Format("20060102_150405"), strings.TrimPrefix(ext, "."))
}

// Entry is one key/value line of an object field.
type Entry struct {
	Key   string
	Value string
}

// Entries flattens an object field into lines sorted by key.
func Entries(obj map[string]any) []Entry {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Key: Label(k), Value: FormatValue(obj[k])})
	}
	return out
}

// Items flattens a list field into one line per item.
func Items(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s := FormatValue(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Label turns a snake_case or SCREAMING_CASE key into a title, e.g.
// "solicitation_number" becomes "Solicitation Number".
func Label(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// FormatValue renders any decoded JSON value as a single line of text.
// Mappings become "Key: value; Key: value" and lists are joined with "; ".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case map[string]any:
		parts := make([]string, 0, len(t))
		for _, e := range Entries(t) {
			if e.Value == "" {
				continue
			}
			parts = append(parts, e.Key+": "+e.Value)
		}
		return strings.Join(parts, "; ")
	case []any:
		return strings.Join(Items(t), "; ")
	}
	return fmt.Sprint(v)
}

// sections yields the record in document order with each field's lines.
func sections(rec models.Record, fn func(f models.Field, entries []Entry, items []string)) {
	for _, f := range models.Fields {
		if models.Schema[f] == models.KindList {
			fn(f, nil, Items(rec.List(f)))
		} else {
			fn(f, Entries(rec.Object(f)), nil)
		}
	}
}
