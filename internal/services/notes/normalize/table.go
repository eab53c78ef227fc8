package normalize

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed abbreviations.yaml
var defaultTableYAML []byte

var defaultTable = mustParseTable(defaultTableYAML)

// Expansion rewrites one abbreviation to its spoken form.
type Expansion struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	// Token matches Pattern anywhere instead of as a whole word.
	Token bool `yaml:"token"`
	// Anchor limits a match to one next to a number.
	Anchor Anchor `yaml:"anchor"`
}

// Anchor names the neighbour a match requires.
type Anchor string

const (
	// AnchorNone matches regardless of neighbours.
	AnchorNone Anchor = ""
	// AnchorDigitBefore requires a digit before the match, spaces allowed.
	AnchorDigitBefore Anchor = "digit_before"
	// AnchorDigitAfter requires a digit after the match, spaces allowed.
	AnchorDigitAfter Anchor = "digit_after"
)

func (a Anchor) valid() bool {
	switch a {
	case AnchorNone, AnchorDigitBefore, AnchorDigitAfter:
		return true
	}
	return false
}

// admits reports whether text[start:end] has the neighbour a requires.
func (a Anchor) admits(text string, start, end int) bool {
	switch a {
	case AnchorDigitBefore:
		before := strings.TrimRightFunc(text[:start], unicode.IsSpace)
		r, size := utf8.DecodeLastRuneInString(before)
		return size > 0 && unicode.IsDigit(r)
	case AnchorDigitAfter:
		after := strings.TrimLeftFunc(text[end:], unicode.IsSpace)
		r, size := utf8.DecodeRuneInString(after)
		return size > 0 && unicode.IsDigit(r)
	}
	return true
}

type tableFile struct {
	Expansions []Expansion `yaml:"expansions"`
}

type compiledExpansion struct {
	Expansion
	re *regexp.Regexp
}

// Table is an ordered, immutable list of case-insensitive expansions.
type Table struct {
	expansions []compiledExpansion
}

// DefaultTable returns the embedded accounting abbreviation table.
func DefaultTable() *Table {
	return defaultTable
}

// LoadTableFile reads a YAML table from path.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abbreviation table: %w", err)
	}
	table, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse abbreviation table %s: %w", path, err)
	}
	return table, nil
}

// ParseTable decodes a YAML table. It rejects tables whose replacements
// would be rewritten again by the table, so one pass is always final.
func ParseTable(data []byte) (*Table, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var file tableFile
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return NewTable(file.Expansions)
}

// NewTable compiles expansions in the given order.
func NewTable(expansions []Expansion) (*Table, error) {
	table := &Table{expansions: make([]compiledExpansion, 0, len(expansions))}
	seen := make(map[string]struct{}, len(expansions))
	for i, expansion := range expansions {
		if strings.TrimSpace(expansion.Pattern) == "" {
			return nil, fmt.Errorf("expansion %d: pattern is required", i)
		}
		if !expansion.Anchor.valid() {
			return nil, fmt.Errorf("expansion %d: unknown anchor %q", i, expansion.Anchor)
		}
		key := strings.ToLower(expansion.Pattern)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("expansion %d: duplicate pattern %q", i, expansion.Pattern)
		}
		seen[key] = struct{}{}
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(expansion.Pattern))
		if err != nil {
			return nil, fmt.Errorf("expansion %d: compile %q: %w", i, expansion.Pattern, err)
		}
		table.expansions = append(table.expansions, compiledExpansion{Expansion: expansion, re: re})
	}
	for _, expansion := range table.expansions {
		if expanded := table.Expand(expansion.Replacement); expanded != expansion.Replacement {
			return nil, fmt.Errorf("replacement %q for %q is rewritten again to %q", expansion.Replacement, expansion.Pattern, expanded)
		}
	}
	return table, nil
}

// Len returns the number of expansions.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.expansions)
}

// Expansions returns a copy of the table in application order.
func (t *Table) Expansions() []Expansion {
	if t == nil {
		return nil
	}
	out := make([]Expansion, 0, len(t.expansions))
	for _, expansion := range t.expansions {
		out = append(out, expansion.Expansion)
	}
	return out
}

// Expand applies every expansion once, in order.
func (t *Table) Expand(text string) string {
	if t == nil {
		return text
	}
	for _, expansion := range t.expansions {
		text = expansion.apply(text)
	}
	return text
}

func (e compiledExpansion) apply(text string) string {
	matches := e.re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, match := range matches {
		if !e.Token && !isWholeWord(text, match[0], match[1]) {
			continue
		}
		if !e.Anchor.admits(text, match[0], match[1]) {
			continue
		}
		b.WriteString(text[last:match[0]])
		b.WriteString(e.Replacement)
		last = match[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// isWholeWord reports whether text[start:end] is not glued to a neighbouring
// word rune. Edges of the match that are punctuation need no boundary.
func isWholeWord(text string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(text[start:end])
	if isWordRune(first) && start > 0 {
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(before) {
			return false
		}
	}
	last, _ := utf8.DecodeLastRuneInString(text[start:end])
	if isWordRune(last) && end < len(text) {
		after, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(after) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func mustParseTable(data []byte) *Table {
	table, err := ParseTable(data)
	if err != nil {
		panic(fmt.Sprintf("normalize: embedded abbreviation table: %v", err))
	}
	return table
}
