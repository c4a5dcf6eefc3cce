// Package heading describes the ordered attributes of a table: declared type,
// type tag, key membership and nullability.
package heading

import (
	"fmt"
	"strings"
)

// Attribute is the metadata of a single column.
type Attribute struct {
	Name          string
	Type          string
	Tag           Tag
	Precision     int
	Scale         int
	Nullable      bool
	Default       *string
	Autoincrement bool
	InKey         bool
	IsBlob        bool
	Comment       string
}

// NewAttribute derives the tag, precision and scale from the declared type.
// Blob columns are flagged unless the caller overrides the tag afterwards.
func NewAttribute(name, sqlType string) Attribute {
	tag, precision, scale := ParseType(sqlType)
	return Attribute{
		Name:      name,
		Type:      sqlType,
		Tag:       tag,
		Precision: precision,
		Scale:     scale,
		IsBlob:    tag == TagBlob,
	}
}

// DefaultValue returns the default as reported by the store, or nil.
func (a Attribute) DefaultValue() interface{} {
	if a.Default == nil {
		return nil
	}
	return *a.Default
}

// Heading is an immutable, ordered attribute list. Primary key attributes
// come first, each group keeping its declared order.
type Heading struct {
	attrs []Attribute
	index map[string]int
}

// New builds a heading from attributes in declared order.
func New(attrs []Attribute) *Heading {
	ordered := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		if a.InKey {
			ordered = append(ordered, a)
		}
	}
	for _, a := range attrs {
		if !a.InKey {
			ordered = append(ordered, a)
		}
	}

	index := make(map[string]int, len(ordered))
	for i, a := range ordered {
		index[a.Name] = i
	}
	return &Heading{attrs: ordered, index: index}
}

func (h *Heading) Len() int {
	return len(h.attrs)
}

// Attributes returns a copy of all attributes in heading order.
func (h *Heading) Attributes() []Attribute {
	out := make([]Attribute, len(h.attrs))
	copy(out, h.attrs)
	return out
}

func (h *Heading) Names() []string {
	names := make([]string, len(h.attrs))
	for i, a := range h.attrs {
		names[i] = a.Name
	}
	return names
}

func (h *Heading) Get(name string) (Attribute, bool) {
	i, ok := h.index[name]
	if !ok {
		return Attribute{}, false
	}
	return h.attrs[i], true
}

func (h *Heading) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// PrimaryKey returns the key attribute names in declared order.
func (h *Heading) PrimaryKey() []string {
	var names []string
	for _, a := range h.attrs {
		if a.InKey {
			names = append(names, a.Name)
		}
	}
	return names
}

func (h *Heading) Primary() []Attribute {
	var out []Attribute
	for _, a := range h.attrs {
		if a.InKey {
			out = append(out, a)
		}
	}
	return out
}

func (h *Heading) Secondary() []Attribute {
	var out []Attribute
	for _, a := range h.attrs {
		if !a.InKey {
			out = append(out, a)
		}
	}
	return out
}

// Select returns the attributes named, in heading order. Unknown names are
// reported in the second return value.
func (h *Heading) Select(names []string) ([]Attribute, []string) {
	wanted := make(map[string]bool, len(names))
	var unknown []string
	for _, n := range names {
		if !h.Has(n) {
			unknown = append(unknown, n)
			continue
		}
		wanted[n] = true
	}
	var out []Attribute
	for _, a := range h.attrs {
		if wanted[a.Name] {
			out = append(out, a)
		}
	}
	return out, unknown
}

// Definition renders the heading as a table definition: key attributes,
// a separator line, then the remaining attributes.
func (h *Heading) Definition(comment string) string {
	var b strings.Builder
	if comment != "" {
		fmt.Fprintf(&b, "# %s\n", comment)
	}
	for _, a := range h.Primary() {
		writeDefinitionLine(&b, a)
	}
	b.WriteString("---\n")
	for _, a := range h.Secondary() {
		writeDefinitionLine(&b, a)
	}
	return b.String()
}

func writeDefinitionLine(b *strings.Builder, a Attribute) {
	lhs := a.Name
	switch {
	case a.Nullable && a.Default == nil:
		lhs += " = null"
	case a.Default != nil:
		lhs += " = " + *a.Default
	}
	line := fmt.Sprintf("%-24s: %s", lhs, a.Type)
	if a.Comment != "" {
		line = fmt.Sprintf("%-48s # %s", line, a.Comment)
	}
	b.WriteString(line)
	b.WriteByte('\n')
}
