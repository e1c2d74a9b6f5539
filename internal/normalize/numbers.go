package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var digitsOnly = regexp.MustCompile(`[^\d]`)
var leadingDigits = regexp.MustCompile(`^\d`)

// IsNumeric reports whether the token starts with a digit ("1912", "3rd").
func IsNumeric(token string) bool {
	return leadingDigits.MatchString(token)
}

var ones = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen",
}

var tens = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy",
	"eighty", "ninety",
}

var ordinalIrregular = map[string]string{
	"one":    "first",
	"two":    "second",
	"three":  "third",
	"five":   "fifth",
	"eight":  "eighth",
	"nine":   "ninth",
	"twelve": "twelfth",
}

func cardinal(n int) string {
	switch {
	case n < 0 || n > 999999:
		return strconv.Itoa(n)
	case n < 20:
		return ones[n]
	case n < 100:
		s := tens[n/10]
		if n%10 != 0 {
			s += " " + ones[n%10]
		}
		return s
	case n < 1000:
		s := ones[n/100] + " hundred"
		if n%100 != 0 {
			s += " " + cardinal(n%100)
		}
		return s
	default:
		s := cardinal(n/1000) + " thousand"
		if n%1000 != 0 {
			s += " " + cardinal(n%1000)
		}
		return s
	}
}

func ordinal(n int) string {
	c := cardinal(n)
	words := strings.Split(c, " ")
	last := words[len(words)-1]
	switch {
	case ordinalIrregular[last] != "":
		last = ordinalIrregular[last]
	case strings.HasSuffix(last, "y"):
		last = strings.TrimSuffix(last, "y") + "ieth"
	default:
		last += "th"
	}
	words[len(words)-1] = last
	return strings.Join(words, " ")
}

// NumberVariants lists the spoken forms a number may take in a transcript.
// 1912 yields "1912", "one thousand nine hundred twelve", "one thousand nine
// hundred twelfth" and the year reading "nineteen twelve".
func NumberVariants(n int) []string {
	variants := []string{strconv.Itoa(n)}
	if n >= 0 && n <= 999999 {
		variants = append(variants, cardinal(n), ordinal(n))
	}
	// Year reading for 1000-2099: "nineteen twelve", "twenty hundred".
	if n >= 1000 && n <= 2099 {
		century, remainder := n/100, n%100
		if remainder == 0 {
			variants = append(variants, cardinal(century)+" hundred")
		} else if remainder < 10 {
			variants = append(variants, cardinal(century)+" oh "+cardinal(remainder))
		} else {
			variants = append(variants, cardinal(century)+" "+cardinal(remainder))
		}
	}
	return variants
}

func squash(s string) string {
	return strings.NewReplacer(" ", "", "-", "", ",", "").Replace(strings.ToLower(s))
}

// NumbersEquivalent reports whether two tokens denote the same number in any
// written or spoken form: "6000" vs "6,000", "1912" vs "nineteen twelve",
// "3rd" vs "third".
func NumbersEquivalent(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	digitsA := digitsOnly.ReplaceAllString(a, "")
	digitsB := digitsOnly.ReplaceAllString(b, "")

	// Both carry digits: compare the digit strings directly.
	if digitsA != "" && digitsB != "" {
		return digitsA == digitsB
	}
	if digitsA == "" && digitsB == "" {
		return false
	}

	// One side is digits, the other spelled out: compare against variants.
	numeric, spelled := digitsA, b
	if digitsA == "" {
		numeric, spelled = digitsB, a
	}
	n, err := strconv.Atoi(numeric)
	if err != nil {
		return false
	}
	want := squash(spelled)
	for _, v := range NumberVariants(n) {
		if squash(v) == want {
			return true
		}
	}
	return false
}
