// Package normaliser cleans raw extracted text and tokenises it for
// keyword-based retrieval. Cleaning repairs mangled encodings losslessly
// where possible and is idempotent; tokenisation is deterministic and
// English-only.
package normaliser

import (
	"strings"
	"unicode/utf8"
)

// CleanText repairs common text extraction damage: UTF-8 text that was
// decoded as Latin-1/Windows-1252 (mojibake), typographic ligatures,
// non-breaking and zero-width characters. Applying CleanText to already
// clean text returns it unchanged.
func CleanText(text string) string {
	text = fixMojibake(text)
	text = replaceSpecials(text)
	return text
}

// specialReplacements maps extraction artefacts to their plain equivalents.
var specialReplacements = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	" ", " ", // non-breaking space
	"​", "", // zero-width space
	"‌", "", // zero-width non-joiner
	"‍", "", // zero-width joiner
	"\uFEFF", "", // byte-order mark
)

func replaceSpecials(text string) string {
	return specialReplacements.Replace(text)
}

// fixMojibake detects UTF-8 byte sequences that were mistakenly decoded as
// Windows-1252 and re-decodes them. The repair is only applied when every
// rune maps back to a single byte and the resulting bytes form valid UTF-8;
// otherwise the input is returned untouched. Repaired text no longer
// contains the trigger patterns, so the function is idempotent.
func fixMojibake(text string) string {
	if !looksLikeMojibake(text) {
		return text
	}

	bytes := make([]byte, 0, len(text))
	for _, r := range text {
		b, ok := runeToCP1252(r)
		if !ok {
			return text
		}
		bytes = append(bytes, b)
	}

	if !utf8.Valid(bytes) {
		return text
	}

	repaired := string(bytes)
	// A genuine repair reduces the rune count; anything else means the
	// input was not mojibake after all.
	if utf8.RuneCountInString(repaired) >= utf8.RuneCountInString(text) {
		return text
	}

	// Nested mojibake (double-encoded twice) repairs layer by layer.
	return fixMojibake(repaired)
}

// looksLikeMojibake reports whether the text contains the characteristic
// lead bytes of UTF-8 misread as a single-byte encoding.
func looksLikeMojibake(text string) bool {
	return strings.ContainsAny(text, "ÂÃÅâ")
}

// runeToCP1252 maps a rune back to the Windows-1252 byte it was decoded
// from. Returns false for runes outside the codepage.
func runeToCP1252(r rune) (byte, bool) {
	if r < 0x80 || (r >= 0xa0 && r <= 0xff) {
		return byte(r), true
	}
	if b, ok := cp1252Reverse[r]; ok {
		return b, true
	}
	return 0, false
}

// cp1252Reverse maps the printable runes of the Windows-1252 0x80-0x9f
// range back to their bytes.
var cp1252Reverse = map[rune]byte{
	'€': 0x80, '‚': 0x82, 'ƒ': 0x83, '„': 0x84,
	'…': 0x85, '†': 0x86, '‡': 0x87, 'ˆ': 0x88,
	'‰': 0x89, 'Š': 0x8a, '‹': 0x8b, 'Œ': 0x8c,
	'Ž': 0x8e, '‘': 0x91, '’': 0x92, '“': 0x93,
	'”': 0x94, '•': 0x95, '–': 0x96, '—': 0x97,
	'˜': 0x98, '™': 0x99, 'š': 0x9a, '›': 0x9b,
	'œ': 0x9c, 'ž': 0x9e, 'Ÿ': 0x9f,
}
