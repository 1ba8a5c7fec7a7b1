package die

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	tagColor  = color.New(color.FgBlue, color.Bold)
	attrColor = color.New(color.FgCyan)
	offColor  = color.New(color.FgYellow)
)

// Fprint writes the subtree rooted at e in the style of llvm-dwarfdump.
// Colors follow color.NoColor.
func Fprint(w io.Writer, e *Entry) error {
	return fprint(w, e, 0)
}

func fprint(w io.Writer, e *Entry, depth int) error {
	indent := strings.Repeat("  ", depth)
	if _, err := fmt.Fprintf(w, "%s: %s%s\n", offColor.Sprintf("0x%08x", e.Offset), indent, tagColor.Sprint(e.Tag)); err != nil {
		return err
	}
	for _, a := range e.Attrs {
		if _, err := fmt.Fprintf(w, "            %s  %s [%s]\t(%s)\n",
			indent, attrColor.Sprint(a.Attr), a.Form, Format(a.Value)); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		if err := fprint(w, c, depth+1); err != nil {
			return err
		}
	}
	if len(e.Children) > 0 {
		if _, err := fmt.Fprintf(w, "%s: %s  NULL\n", offColor.Sprintf("0x%08x", e.Offset+e.Size-1), indent); err != nil {
			return err
		}
	}
	return nil
}

// AttrSnapshot is the JSON form of one attribute.
type AttrSnapshot struct {
	Attr  string `json:"attr"`
	Form  string `json:"form"`
	Value string `json:"value"`
}

// EntrySnapshot is the JSON form of an entry subtree.
type EntrySnapshot struct {
	Offset   uint32          `json:"offset"`
	Tag      string          `json:"tag"`
	Attrs    []AttrSnapshot  `json:"attrs,omitempty"`
	Children []EntrySnapshot `json:"children,omitempty"`
}

// Snapshot captures the subtree rooted at e.
func Snapshot(e *Entry) EntrySnapshot {
	s := EntrySnapshot{Offset: e.Offset, Tag: e.Tag.String()}
	for _, a := range e.Attrs {
		s.Attrs = append(s.Attrs, AttrSnapshot{Attr: a.Attr.String(), Form: a.Form.String(), Value: Format(a.Value)})
	}
	for _, c := range e.Children {
		s.Children = append(s.Children, Snapshot(c))
	}
	return s
}

// Serialize encodes a snapshot as indented JSON.
func (s EntrySnapshot) Serialize() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Shape renders the tag, attribute and child structure of e without offsets
// or reference targets. Two trees with the same shape were built from
// structurally identical input.
func Shape(e *Entry) string {
	var b strings.Builder
	shape(&b, e)
	return b.String()
}

func shape(b *strings.Builder, e *Entry) {
	b.WriteString("(")
	b.WriteString(e.Tag.String())
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(a.Attr.String())
		b.WriteString("=")
		switch v := a.Value.(type) {
		case EntryRef:
			if t := v.Ref.Target(); t != nil {
				b.WriteString("ref:" + t.Tag.String() + ":" + t.Name())
			} else {
				b.WriteString("ref:?")
			}
		default:
			b.WriteString(Format(a.Value))
		}
	}
	for _, c := range e.Children {
		shape(b, c)
	}
	b.WriteString(")")
}
