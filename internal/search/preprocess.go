package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// arabicFolds maps letter variants that users type interchangeably onto one
// form: hamza-carrying alefs onto bare alef, alef maqsura onto yaa, taa
// marbuta onto haa.
var arabicFolds = strings.NewReplacer(
	"أ", "ا", "إ", "ا", "آ", "ا", "ٱ", "ا",
	"ى", "ي",
	"ة", "ه",
	"ؤ", "و", "ئ", "ي",
)

// stripMarks removes combining marks (Arabic tashkeel included) after
// compatibility decomposition.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize prepares text for matching: compatibility-folded, diacritics and
// tatweel removed, Arabic letter variants unified, lower-cased.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(out, "ـ", "") // tatweel
	out = arabicFolds.Replace(out)
	return strings.ToLower(out)
}

// defaultStopwords covers frequent Arabic function words plus a few English
// ones. Entries are stored normalized.
func defaultStopwords() map[string]struct{} {
	words := []string{
		"في", "من", "على", "الى", "إلى", "عن", "مع", "هذا", "هذه", "ذلك", "التي", "الذي",
		"و", "او", "أو", "ثم", "لا", "لم", "لن", "ما", "هل", "قد", "كان", "كانت", "تم", "عند",
		"the", "a", "an", "and", "or", "of", "to", "in", "on", "is",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[Normalize(w)] = struct{}{}
	}
	return m
}
