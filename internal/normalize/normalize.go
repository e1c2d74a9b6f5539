package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	inWordHyphen = regexp.MustCompile(`(\pL)-(\pL)`)
	acronymDots  = regexp.MustCompile(`^(\p{Lu}\.)+\p{Lu}?\.?$`)
	punctuation  = regexp.MustCompile(`[^\pL\pN_'\s]`)
	looseQuote   = regexp.MustCompile(`(\s'|'\s|^'|'$)`)
	spaces       = regexp.MustCompile(`\s+`)
	wordPattern  = regexp.MustCompile(`[\pL\pN_][\pL\pN_']*`)
)

// Token normalizes one token (or short phrase) for fuzzy comparison:
// NFKC fold, lowercase, straight quotes, collapsed in-word hyphens,
// punctuation stripped except in-word apostrophes.
func Token(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)

	// Acronyms lose their dots before lowercasing (U.S. -> US).
	if acronymDots.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}

	s = strings.ToLower(s)
	s = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`).Replace(s)
	s = strings.ReplaceAll(s, "—", " ")
	s = strings.ReplaceAll(s, "–", "-")

	// re-enter -> reenter, applied twice for a-b-c chains.
	s = inWordHyphen.ReplaceAllString(s, "$1$2")
	s = inWordHyphen.ReplaceAllString(s, "$1$2")

	s = punctuation.ReplaceAllString(s, " ")
	s = looseQuote.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// Tokenize normalizes text and splits it into word tokens, keeping
// apostrophes inside contractions.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(Token(text), -1)
}

// StripEmbeddedQuotes removes quotation marks inside sentences so quoted
// dialogue compares equal to its spoken form.
func StripEmbeddedQuotes(text string) string {
	return strings.NewReplacer(`"`, "", "“", "", "”", "", "‘", "", "’", "").Replace(text)
}

// Dehyphenate collapses hyphens and spaces so "deep-sea", "deep sea" and
// "deepsea" compare equal.
func Dehyphenate(s string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(s)
}

var contractions = map[string][]string{
	"don't":     {"do", "not"},
	"doesn't":   {"does", "not"},
	"didn't":    {"did", "not"},
	"won't":     {"will", "not"},
	"can't":     {"can", "not"},
	"cannot":    {"can", "not"},
	"couldn't":  {"could", "not"},
	"shouldn't": {"should", "not"},
	"wouldn't":  {"would", "not"},
	"isn't":     {"is", "not"},
	"wasn't":    {"was", "not"},
	"aren't":    {"are", "not"},
	"weren't":   {"were", "not"},
	"i'm":       {"i", "am"},
	"you're":    {"you", "are"},
	"we're":     {"we", "are"},
	"they're":   {"they", "are"},
	"he's":      {"he", "is"},
	"she's":     {"she", "is"},
	"it's":      {"it", "is"},
	"that's":    {"that", "is"},
	"there's":   {"there", "is"},
	"here's":    {"here", "is"},
	"what's":    {"what", "is"},
	"who's":     {"who", "is"},
	"i'll":      {"i", "will"},
	"you'll":    {"you", "will"},
	"we'll":     {"we", "will"},
	"they'll":   {"they", "will"},
	"he'll":     {"he", "will"},
	"she'll":    {"she", "will"},
	"i've":      {"i", "have"},
	"you've":    {"you", "have"},
	"we've":     {"we", "have"},
	"they've":   {"they", "have"},
	"i'd":       {"i", "would"},
	"you'd":     {"you", "would"},
	"he'd":      {"he", "would"},
	"she'd":     {"she", "would"},
	"we'd":      {"we", "would"},
	"they'd":    {"they", "would"},
}

// ExpandContraction returns the multi-word expansion of a contraction and
// whether the token was one. Lookup ignores the apostrophe so ASR output
// like "dont" still expands.
func ExpandContraction(token string) ([]string, bool) {
	token = strings.ToLower(token)
	if words, ok := contractions[token]; ok {
		return words, true
	}
	bare := strings.ReplaceAll(token, "'", "")
	for key, words := range contractions {
		if strings.ReplaceAll(key, "'", "") == bare {
			return words, true
		}
	}
	return nil, false
}

var units = map[string]string{
	"km":         "kilometers",
	"kilometer":  "kilometers",
	"kilometre":  "kilometers",
	"kilometres": "kilometers",
	"m":          "meters",
	"meter":      "meters",
	"metre":      "meters",
	"metres":     "meters",
	"cm":         "centimeters",
	"centimeter": "centimeters",
	"centimetre": "centimeters",
	"ft":         "feet",
	"foot":       "feet",
	"mi":         "miles",
	"mile":       "miles",
	"lb":         "pounds",
	"lbs":        "pounds",
	"pound":      "pounds",
	"kg":         "kilograms",
	"kilogram":   "kilograms",
	"g":          "grams",
	"gram":       "grams",
	"oz":         "ounces",
	"ounce":      "ounces",
	"in":         "inches",
	"inch":       "inches",
	"yd":         "yards",
	"yard":       "yards",
	"mph":        "miles per hour",
	"kph":        "kilometers per hour",
	"l":          "liters",
	"liter":      "liters",
	"litre":      "liters",
	"ml":         "milliliters",
}

// Unit expands unit abbreviations to their spoken form ("km" -> "kilometers").
// Unknown tokens come back unchanged.
func Unit(token string) string {
	clean := strings.TrimRight(strings.ToLower(token), "s.")
	if full, ok := units[clean]; ok {
		return full
	}
	return token
}

// Stopwords carry little alignment information and are down-weighted in
// similarity scoring and excluded from anchors.
var Stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "were": {},
	"been": {}, "be": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "can": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "i": {}, "you": {},
	"he": {}, "she": {}, "it": {}, "we": {}, "they": {}, "my": {},
	"your": {}, "his": {}, "her": {}, "its": {}, "our": {}, "their": {},
}

// IsStopword reports whether token is a common function word.
func IsStopword(token string) bool {
	_, ok := Stopwords[strings.ToLower(token)]
	return ok
}

// TokenWeight weights a sentence token for similarity scoring: stopwords
// count half, numerals a quarter more than content words.
func TokenWeight(token string) float64 {
	if IsStopword(token) {
		return 0.5
	}
	if len(token) > 0 && token[0] >= '0' && token[0] <= '9' {
		return 1.25
	}
	return 1.0
}
