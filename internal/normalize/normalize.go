// Package normalize canonicalises reference titles for cache keys and
// fuzzy comparison.
package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MatchThreshold is the similarity score (0-100) at which two
// normalised titles are considered equal.
const MatchThreshold = 95.0

// NearExactThreshold is the similarity score above which an Unknown
// author-validation verdict is upgraded to Match (see internal/authors).
const NearExactThreshold = 98.0

var greekLetters = map[rune]string{
	'α': "alpha", 'Α': "alpha",
	'β': "beta", 'Β': "beta",
	'γ': "gamma", 'Γ': "gamma",
	'δ': "delta", 'Δ': "delta",
	'ε': "epsilon", 'Ε': "epsilon",
	'ζ': "zeta", 'Ζ': "zeta",
	'η': "eta", 'Η': "eta",
	'θ': "theta", 'Θ': "theta",
	'ι': "iota", 'Ι': "iota",
	'κ': "kappa", 'Κ': "kappa",
	'λ': "lambda", 'Λ': "lambda",
	'μ': "mu", 'Μ': "mu",
	'ν': "nu", 'Ν': "nu",
	'ξ': "xi", 'Ξ': "xi",
	'ο': "o", 'Ο': "o",
	'π': "pi", 'Π': "pi",
	'ρ': "rho", 'Ρ': "rho",
	'σ': "sigma", 'ς': "sigma", 'Σ': "sigma",
	'τ': "tau", 'Τ': "tau",
	'υ': "upsilon", 'Υ': "upsilon",
	'φ': "phi", 'Φ': "phi",
	'χ': "chi", 'Χ': "chi",
	'ψ': "psi", 'Ψ': "psi",
	'ω': "omega", 'Ω': "omega",
}

var mathSymbols = map[rune]string{
	'∞': "infinity", '√': "sqrt", '≤': "leq", '≥': "geq", '≠': "neq",
	'±': "pm", '×': "times", '÷': "div", '∑': "sum", '∏': "prod",
	'∫': "int", '∂': "partial", '∇': "nabla", '∈': "in", '∉': "notin",
	'⊂': "subset", '⊃': "supset", '∪': "cup", '∩': "cap", '∧': "and",
	'∨': "or", '¬': "not", '→': "to", '←': "from", '↔': "iff",
	'⇒': "implies", '⇐': "impliedby", '⇔': "iff",
}

// diacriticCompositions maps a separated diacritic mark followed by a
// base letter to the precomposed character, repairing the split
// diacritics common in PDF-extracted text (e.g. "B ¨UNZ" -> "BÜNZ").
var diacriticCompositions = map[string]string{
	"¨A": "Ä", "¨a": "ä", "¨E": "Ë", "¨e": "ë",
	"¨I": "Ï", "¨i": "ï", "¨O": "Ö", "¨o": "ö",
	"¨U": "Ü", "¨u": "ü", "¨Y": "Ÿ", "¨y": "ÿ",
	"´A": "Á", "´a": "á", "´E": "É", "´e": "é",
	"´I": "Í", "´i": "í", "´O": "Ó", "´o": "ó",
	"´U": "Ú", "´u": "ú", "´N": "Ń", "´n": "ń",
	"´C": "Ć", "´c": "ć", "´S": "Ś", "´s": "ś",
	"´Z": "Ź", "´z": "ź", "´Y": "Ý", "´y": "ý",
	"`A": "À", "`a": "à", "`E": "È", "`e": "è", "`I": "Ì", "`i": "ì",
	"`O": "Ò", "`o": "ò", "`U": "Ù", "`u": "ù",
	"~A": "Ã", "~a": "ã", "˜A": "Ã", "˜a": "ã",
	"~N": "Ñ", "~n": "ñ", "˜N": "Ñ", "˜n": "ñ",
	"~O": "Õ", "~o": "õ", "˜O": "Õ", "˜o": "õ",
	"ˇC": "Č", "ˇc": "č", "ˇS": "Š", "ˇs": "š",
	"ˇZ": "Ž", "ˇz": "ž", "ˇE": "Ě", "ˇe": "ě",
	"ˇR": "Ř", "ˇr": "ř", "ˇN": "Ň", "ˇn": "ň",
	"^A": "Â", "^a": "â", "^E": "Ê", "^e": "ê", "^I": "Î", "^i": "î",
	"^O": "Ô", "^o": "ô", "^U": "Û", "^u": "û",
}

const diacriticMarks = "¨´`~˜ˇ^"

var spaceBeforeDiacriticRe = regexp.MustCompile(`([A-Za-z])\s+([` + diacriticMarks + `])`)
var separatedDiacriticRe = regexp.MustCompile(`([` + diacriticMarks + `])\s*([A-Za-z])`)

func fixSeparatedDiacritics(title string) string {
	title = spaceBeforeDiacriticRe.ReplaceAllString(title, "$1$2")
	return separatedDiacriticRe.ReplaceAllStringFunc(title, func(m string) string {
		groups := separatedDiacriticRe.FindStringSubmatch(m)
		if composed, ok := diacriticCompositions[groups[1]+groups[2]]; ok {
			return composed
		}
		return groups[2]
	})
}

var nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Title canonicalises a title for use as a cache key and as the
// operand of fuzzy comparison. It is idempotent: Title(Title(x)) ==
// Title(x).
func Title(title string) string {
	title = html.UnescapeString(title)
	title = fixSeparatedDiacritics(title)

	var sb strings.Builder
	for _, r := range title {
		if word, ok := greekLetters[r]; ok {
			sb.WriteString(word)
			continue
		}
		if word, ok := mathSymbols[r]; ok {
			sb.WriteString(word)
			continue
		}
		sb.WriteRune(r)
	}
	title = sb.String()

	decomposed := norm.NFKD.String(title)

	var ascii strings.Builder
	for _, r := range decomposed {
		if r < unicode.MaxASCII {
			ascii.WriteRune(r)
		}
	}

	stripped := nonAlnumRe.ReplaceAllString(ascii.String(), "")
	return strings.ToLower(stripped)
}

// Similarity returns a 0-100 similarity score between two normalised
// or raw strings, based on normalised Levenshtein edit distance.
func Similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein(a, b)
	score := (1 - float64(dist)/float64(maxLen)) * 100
	if score < 0 {
		score = 0
	}
	return score
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// hasSubtitle reports whether raw title t has meaningful text after a
// trailing '?' or '!'.
func hasSubtitle(t string) bool {
	lower := strings.ToLower(t)
	pos := strings.LastIndexAny(lower, "?!")
	if pos < 0 {
		return false
	}
	for _, r := range lower[pos+1:] {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// TitlesMatch reports whether two raw titles refer to the same work:
// normalised similarity at or above MatchThreshold, or a conservative
// subtitle-aware prefix match for longer titles.
func TitlesMatch(titleA, titleB string) bool {
	normA := Title(titleA)
	normB := Title(titleB)
	if normA == "" || normB == "" {
		return false
	}

	if Similarity(normA, normB) >= MatchThreshold {
		return true
	}

	shorter, longer := normA, normB
	if len(normB) < len(normA) {
		shorter, longer = normB, normA
	}

	if len(shorter) < 30 {
		return false
	}
	if !strings.HasPrefix(longer, shorter) {
		return false
	}

	aSub, bSub := hasSubtitle(titleA), hasSubtitle(titleB)
	if aSub != bSub {
		coverage := float64(len(shorter)) / float64(len(longer))
		return coverage >= 0.70
	}
	return true
}
