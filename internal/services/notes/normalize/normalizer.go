// Package normalize rewrites free-form note text into text a speech engine
// can read aloud.
//
// Rules run in a fixed order, each assuming the cleanup of the ones before:
//
//  1. pictographs, emoji and symbol blocks become a space
//  2. zero-width and byte-order-mark characters are removed
//  3. leading bullet, Roman numeral, "N)" and "a)" list markers are removed
//  4. whitespace around an inline bullet or dash collapses to one space
//  5. the abbreviation Table is applied
//  6. D.M.Y, D/M/Y and D-M-Y dates become "D M Y roku"
//  7. leading "N. " ordinals become "Punkt N: "
//  8. whitespace is collapsed and the result trimmed
//
// Arabic "N." markers survive rule 3 so that rule 7 can speak them. Roman
// markers are limited to I, V and X so initials such as "C." or "M." stay.
// Rule 5 only runs on text that already holds a letter or digit.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// pictographs covers emoji and symbol blocks read as noise.
var pictographs = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2022, Hi: 0x2023, Stride: 1}, // bullets
		{Lo: 0x2043, Hi: 0x2043, Stride: 1},
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1}, // keycap
		{Lo: 0x2190, Hi: 0x21ff, Stride: 1}, // arrows
		{Lo: 0x2300, Hi: 0x23ff, Stride: 1}, // misc technical
		{Lo: 0x25a0, Hi: 0x27bf, Stride: 1}, // geometric shapes, misc symbols, dingbats
		{Lo: 0x2b00, Hi: 0x2bff, Stride: 1}, // misc symbols and arrows
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1}, // emoji and pictograph planes
	},
}

var zeroWidth = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00ad, Hi: 0x00ad, Stride: 1}, // soft hyphen
		{Lo: 0x200b, Hi: 0x200f, Stride: 1},
		{Lo: 0x2060, Hi: 0x2064, Stride: 1},
		{Lo: 0xfe00, Hi: 0xfe0f, Stride: 1}, // variation selectors
		{Lo: 0xfeff, Hi: 0xfeff, Stride: 1}, // BOM
	},
	LatinOffset: 1,
}

var (
	listMarker    = regexp.MustCompile(`(?m)^[\t\f\v\p{Zs}]*(?:[-*+·–—]|[IVX]+[.)]|\d+\)|\p{L}\))[\t\f\v\p{Zs}]+`)
	inlineDash    = regexp.MustCompile(`[\t\f\v\p{Zs}]+[-–—•·][\t\f\v\p{Zs}]+`)
	numericDate   = regexp.MustCompile(`\b(\d{1,2})([./-])(\d{1,2})([./-])(\d{4})(\s*r(?:oku)?\b\.?|\d*)`)
	ordinalMarker = regexp.MustCompile(`(?m)^[\t\f\v\p{Zs}]*(\d+)\.[\t\f\v\p{Zs}]+`)
	horizontalRun = regexp.MustCompile(`[\t\f\v\p{Zs}]+`)
	newlineSpace  = regexp.MustCompile(` *\n *`)
	newlineRun    = regexp.MustCompile(`\n{3,}`)
)

// Normalizer applies the normalization rules with one abbreviation table.
// It is safe for concurrent use.
type Normalizer struct {
	table *Table
}

// New returns a Normalizer. A nil table selects DefaultTable.
func New(table *Table) *Normalizer {
	if table == nil {
		table = DefaultTable()
	}
	return &Normalizer{table: table}
}

// Normalize returns speech-friendly text. It never fails: input without
// anything readable yields an empty or meaningless string, which callers
// detect with IsMeaningful.
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	table := DefaultTable()
	if n != nil && n.table != nil {
		table = n.table
	}

	text := unifyLineEndings(raw)
	text = stripSymbols(text)
	text = listMarker.ReplaceAllString(text, "")
	text = inlineDash.ReplaceAllString(text, " ")
	if IsMeaningful(text) {
		// symbol-only text stays unreadable whatever the table says
		text = table.Expand(text)
	}
	text = rewriteDates(text)
	text = ordinalMarker.ReplaceAllString(text, "Punkt $1: ")
	return collapseWhitespace(text)
}

// IsMeaningful reports whether text contains at least one letter or digit.
func IsMeaningful(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

func unifyLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// stripSymbols composes the text to NFC, then applies rules 1 and 2.
func stripSymbols(text string) string {
	toSpace := runes.Map(func(rune) rune { return ' ' })
	chain := transform.Chain(
		norm.NFC,
		runes.If(runes.In(pictographs), toSpace, nil),
		runes.Remove(runes.In(zeroWidth)),
	)
	out, _, err := transform.String(chain, text)
	if err != nil {
		return text
	}
	return out
}

func rewriteDates(text string) string {
	return numericDate.ReplaceAllStringFunc(text, func(match string) string {
		parts := numericDate.FindStringSubmatch(match)
		day, sep1, month, sep2, year, tail := parts[1], parts[2], parts[3], parts[4], parts[5], parts[6]
		if sep1 != sep2 || (tail != "" && unicode.IsDigit(rune(tail[0]))) {
			return match
		}
		return day + " " + month + " " + year + " roku"
	})
}

func collapseWhitespace(text string) string {
	text = horizontalRun.ReplaceAllString(text, " ")
	text = newlineSpace.ReplaceAllString(text, "\n")
	text = newlineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
