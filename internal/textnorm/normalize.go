package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// greekToLatin maps Greek letters to the Latin look-alikes catalog listings
// use interchangeably (e.g. "Χ" in a stylized title vs ASCII "X").
var greekToLatin = strings.NewReplacer(
	"Α", "A", "Β", "B", "Ε", "E", "Ζ", "Z", "Η", "H", "Ι", "I",
	"Κ", "K", "Μ", "M", "Ν", "N", "Ο", "O", "Ρ", "P", "Τ", "T",
	"Υ", "Y", "Χ", "X",
	"α", "a", "β", "b", "ε", "e", "ζ", "z", "η", "h", "ι", "i",
	"κ", "k", "μ", "m", "ν", "n", "ο", "o", "ρ", "p", "τ", "t",
	"υ", "y", "χ", "x",
)

// dashVariants folds the dash family to ASCII "-". The katakana long vowel
// mark ー (U+30FC) looks similar but is part of words and must survive.
var dashVariants = strings.NewReplacer(
	"―", "-", "─", "-", "—", "-", "–", "-", "−", "-", "〜", "-", "～", "-",
)

// fullWidthPunct folds full-width punctuation that NFKC leaves alone.
var fullWidthPunct = strings.NewReplacer(
	"！", "!", "？", "?",
	"（", "(", "）", ")",
	"：", ":", "；", ";",
	"，", ",", "。", ".",
)

// kanaKanjiEquivalences maps common hiragana spellings to the kanji form
// listings usually use, so both spellings of the same word compare equal.
// Longer entries first so わたしの wins over わたし.
var kanaKanjiEquivalences = strings.NewReplacer(
	"わたしの", "私の",
	"わたし", "私",
	"かのじょ", "彼女",
	"ぼく", "僕",
	"おれ", "俺",
	"かれ", "彼",
)

// NormalizeTitle canonicalizes a catalog title for comparison: NFKC folding,
// Greek confusables to Latin, dash variants to ASCII, full-width punctuation
// to ASCII, hiragana/kanji spelling equivalences, and whitespace collapsing.
// Case is preserved; callers lowercase when they need to.
func NormalizeTitle(title string) string {
	s := norm.NFKC.String(title)
	s = greekToLatin.Replace(s)
	s = dashVariants.Replace(s)
	s = fullWidthPunct.Replace(s)
	s = kanaKanjiEquivalences.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
