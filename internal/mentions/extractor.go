// Package mentions scans incident narratives for person references.
//
// Two syntaxes are recognized. Structured references look like
// @[Jane Doe](42): the form's people picker renders a selected person
// as their display name plus their UIN, so the identifier arrives with
// the text. Plain references are free-typed @handles and carry only a
// username that still needs to be looked up.
//
// Extraction runs in two passes: the first lifts structured spans out
// of the text, the second scans the residue for plain handles. The
// residue pass never sees a structured span, so a bracketed display
// name cannot be mis-read as a handle.
package mentions

import "strings"

// StructuredMention is one @[DisplayName](UIN) reference.
type StructuredMention struct {
	UIN         string
	DisplayName string
}

// Mentions holds the candidates found in one narrative, partitioned by
// source format. Structured candidates are deduplicated by UIN, plain
// handles case-insensitively; both keep first-seen order.
type Mentions struct {
	Structured []StructuredMention
	Plain      []string
}

// Extract scans text for both reference syntaxes. It is a pure
// function: no side effects, identical output for identical input.
func Extract(text string) Mentions {
	residue, structured := scanStructured(text)
	return Mentions{
		Structured: structured,
		Plain:      scanPlain(residue),
	}
}

// scanStructured walks the text once, collecting well-formed structured
// references and blanking their spans so the plain pass cannot see
// them. Malformed spans are copied through untouched.
func scanStructured(text string) (string, []StructuredMention) {
	var residue strings.Builder
	residue.Grow(len(text))

	var found []StructuredMention
	seen := make(map[string]bool)

	i := 0
	for i < len(text) {
		if text[i] == '@' {
			if m, end, ok := ParseStructured(text, i); ok {
				if !seen[m.UIN] {
					seen[m.UIN] = true
					found = append(found, m)
				}
				// A single space keeps the surrounding tokens apart.
				residue.WriteByte(' ')
				i = end
				continue
			}
		}
		residue.WriteByte(text[i])
		i++
	}

	return residue.String(), found
}

// ParseStructured parses one structured reference starting at offset i.
// It returns the mention and the offset just past the closing
// parenthesis, or ok=false when the text at i is not a well-formed
// @[DisplayName](digits) span. The display name may not span lines.
func ParseStructured(text string, i int) (StructuredMention, int, bool) {
	if i+1 >= len(text) || text[i] != '@' || text[i+1] != '[' {
		return StructuredMention{}, 0, false
	}

	nameStart := i + 2
	j := nameStart
	for j < len(text) && text[j] != ']' && text[j] != '\n' {
		j++
	}
	if j >= len(text) || text[j] != ']' || j+1 >= len(text) || text[j+1] != '(' {
		return StructuredMention{}, 0, false
	}

	idStart := j + 2
	k := idStart
	for k < len(text) && text[k] >= '0' && text[k] <= '9' {
		k++
	}
	if k == idStart || k >= len(text) || text[k] != ')' {
		return StructuredMention{}, 0, false
	}

	return StructuredMention{
		UIN:         text[idStart:k],
		DisplayName: text[nameStart:j],
	}, k + 1, true
}

// scanPlain collects @handle references. Handles are matched greedily,
// so @janet never yields the shorter handle jane.
func scanPlain(text string) []string {
	var handles []string
	seen := make(map[string]bool)

	i := 0
	for i < len(text) {
		if text[i] == '@' {
			j := i + 1
			for j < len(text) && IsHandleChar(text[j]) {
				j++
			}
			if j > i+1 {
				handle := strings.ToLower(text[i+1 : j])
				if !seen[handle] {
					seen[handle] = true
					handles = append(handles, handle)
				}
				i = j
				continue
			}
		}
		i++
	}

	return handles
}

// IsHandleChar reports whether c may appear in a plain @handle.
func IsHandleChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '.' || c == '_' || c == '-'
}
