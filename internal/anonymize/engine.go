// Package anonymize rewrites narratives so that resolved person
// references appear only as numbered placeholders.
package anonymize

import (
	"fmt"
	"strings"

	"github.com/safevoice/incident-intake/internal/mentions"
)

// Kind says which reference syntax an alias replaces.
type Kind int

const (
	KindStructured Kind = iota
	KindPlain
)

// Alias binds one resolved mention key to its placeholder label. For
// structured references the key is the UIN inside the span; for plain
// references it is the lowercased handle.
type Alias struct {
	Kind  Kind
	Key   string
	UIN   string
	Label string
}

// Builder assigns placeholder labels in insertion order. Labels are
// dense (SUBJECT_1, SUBJECT_2, ...) and the key→label mapping is
// injective: adding a key twice is a no-op.
type Builder struct {
	aliases []Alias
	seen    map[string]bool
}

// NewBuilder returns an empty alias builder for one submission.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]bool)}
}

// AddStructured assigns the next label to a verified structured
// candidate.
func (b *Builder) AddStructured(uin string) {
	b.add(Alias{Kind: KindStructured, Key: uin, UIN: uin})
}

// AddPlain assigns the next label to a resolved plain handle.
func (b *Builder) AddPlain(handle, uin string) {
	b.add(Alias{Kind: KindPlain, Key: strings.ToLower(handle), UIN: uin})
}

func (b *Builder) add(a Alias) {
	dedup := fmt.Sprintf("%d:%s", a.Kind, a.Key)
	if b.seen[dedup] {
		return
	}
	b.seen[dedup] = true
	a.Label = fmt.Sprintf("SUBJECT_%d", len(b.aliases)+1)
	b.aliases = append(b.aliases, a)
}

// Aliases returns the assignment in label order.
func (b *Builder) Aliases() []Alias {
	return b.aliases
}

// Anonymize replaces every occurrence of every aliased reference with
// its label. Unresolved references are left verbatim; an empty
// assignment returns the input unchanged. The walk uses the same
// scanner states as extraction, so a second call over already
// anonymized text finds nothing to replace.
func Anonymize(text string, aliases []Alias) string {
	for _, a := range aliases {
		switch a.Kind {
		case KindStructured:
			text = replaceStructured(text, a.Key, a.Label)
		case KindPlain:
			text = replacePlain(text, a.Key, a.Label)
		}
	}
	return text
}

// replaceStructured substitutes label for every well-formed structured
// span carrying the given UIN, whatever display name the span holds.
func replaceStructured(text, uin, label string) string {
	var out strings.Builder
	out.Grow(len(text))

	i := 0
	for i < len(text) {
		if text[i] == '@' {
			if m, end, ok := mentions.ParseStructured(text, i); ok && m.UIN == uin {
				out.WriteString(label)
				i = end
				continue
			}
		}
		out.WriteByte(text[i])
		i++
	}

	return out.String()
}

// replacePlain substitutes label for every word-bounded, case
// insensitive occurrence of @handle. Handle spans are consumed whole
// even when they do not match, so @janet is never rewritten by the
// shorter handle jane.
func replacePlain(text, handle, label string) string {
	var out strings.Builder
	out.Grow(len(text))

	i := 0
	for i < len(text) {
		if text[i] == '@' {
			j := i + 1
			for j < len(text) && mentions.IsHandleChar(text[j]) {
				j++
			}
			if j > i+1 {
				if strings.EqualFold(text[i+1:j], handle) {
					out.WriteString(label)
				} else {
					out.WriteString(text[i:j])
				}
				i = j
				continue
			}
		}
		out.WriteByte(text[i])
		i++
	}

	return out.String()
}
