// Package authors decides whether a reference's author list matches
// the author list a backend returned.
package authors

import (
	"strings"
)

// Verdict is the outcome of comparing two author lists.
type Verdict int

const (
	// Unknown means one side had no usable author data.
	Unknown Verdict = iota
	Match
	Mismatch
)

var surnamePrefixes = map[string]bool{
	"van": true, "von": true, "de": true, "del": true, "della": true,
	"di": true, "da": true, "al": true, "el": true, "la": true,
	"le": true, "ben": true, "ibn": true, "mac": true, "mc": true, "o": true,
}

var nameSuffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "v": true,
}

// Validate compares two author lists and returns Match, Mismatch, or
// Unknown (when either list is empty after trimming).
func Validate(refAuthors, foundAuthors []string) Verdict {
	refClean := trimNonEmpty(refAuthors)
	foundClean := trimNonEmpty(foundAuthors)
	if len(refClean) == 0 || len(foundClean) == 0 {
		return Unknown
	}

	if usesSurnameOnlyMode(refClean) {
		if surnameOnlyOverlap(refAuthors, foundAuthors) {
			return Match
		}
		return Mismatch
	}

	refSet := toNormalizedSet(refAuthors)
	foundSet := toNormalizedSet(foundAuthors)
	for k := range refSet {
		if foundSet[k] {
			return Match
		}
	}
	return Mismatch
}

// ResolveUnknown treats an Unknown verdict as a Match when the title
// similarity score meets nearExactThreshold (spec §4.2: "Unknown is
// treated as match iff the title match score is ≥98").
func ResolveUnknown(v Verdict, titleScore, nearExactThreshold float64) Verdict {
	if v != Unknown {
		return v
	}
	if titleScore >= nearExactThreshold {
		return Match
	}
	return Unknown
}

func trimNonEmpty(authors []string) []string {
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		if t := strings.TrimSpace(a); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func usesSurnameOnlyMode(refClean []string) bool {
	lastNameOnly := 0
	for _, a := range refClean {
		if !hasFirstNameOrInitial(a) {
			lastNameOnly++
		}
	}
	return lastNameOnly > len(refClean)/2
}

func surnameOnlyOverlap(refAuthors, foundAuthors []string) bool {
	refSurnames := surnames(refAuthors)
	foundSurnames := surnames(foundAuthors)
	for _, rn := range refSurnames {
		for _, fn := range foundSurnames {
			if rn == fn || strings.HasSuffix(fn, rn) || strings.HasSuffix(rn, fn) {
				return true
			}
		}
	}
	return false
}

func surnames(authors []string) []string {
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		if s := lastName(a); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// lastName extracts the (possibly multi-word) surname from a name.
func lastName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if idx := strings.Index(name, ","); idx >= 0 {
		return strings.ToLower(strings.TrimSpace(name[:idx]))
	}
	parts := strings.Fields(name)
	return strings.ToLower(surnameFromParts(parts))
}

// surnameFromParts handles multi-word surnames ("Van Bavel", "De La
// Cruz") and trailing generational suffixes ("Jr", "III").
func surnameFromParts(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	parts = append([]string{}, parts...)
	for len(parts) >= 2 && nameSuffixes[strings.ToLower(strings.TrimSuffix(parts[len(parts)-1], "."))] {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return ""
	}
	if len(parts) >= 3 && surnamePrefixes[strings.ToLower(strings.TrimSuffix(parts[len(parts)-3], "."))] {
		return strings.Join(parts[len(parts)-3:], " ")
	}
	if len(parts) >= 2 && surnamePrefixes[strings.ToLower(strings.TrimSuffix(parts[len(parts)-2], "."))] {
		return strings.Join(parts[len(parts)-2:], " ")
	}
	return parts[len(parts)-1]
}

// normalizeAuthor canonicalises a name to "FirstInitial surname".
func normalizeAuthor(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.Index(name, ","); idx >= 0 {
		surname := strings.TrimSpace(name[:idx])
		initials := strings.TrimSpace(name[idx+1:])
		var initial byte = ' '
		if len(initials) > 0 {
			initial = initials[0]
		}
		return string(initial) + " " + strings.ToLower(surname)
	}

	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}

	// Springer "Surname Initial" format: last token is 1-2 uppercase letters.
	if len(parts) >= 2 && isShortUpper(parts[len(parts)-1]) {
		surname := strings.Join(parts[:len(parts)-1], " ")
		return string(parts[len(parts)-1][0]) + " " + strings.ToLower(surname)
	}

	surname := surnameFromParts(parts)
	return string(parts[0][0]) + " " + strings.ToLower(surname)
}

func isShortUpper(s string) bool {
	if len(s) == 0 || len(s) > 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func toNormalizedSet(authors []string) map[string]bool {
	set := make(map[string]bool, len(authors))
	for _, a := range authors {
		set[normalizeAuthor(a)] = true
	}
	return set
}

// hasFirstNameOrInitial reports whether name carries more than a bare
// surname.
func hasFirstNameOrInitial(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	if idx := strings.Index(name, ","); idx >= 0 {
		return strings.TrimSpace(name[idx+1:]) != ""
	}

	parts := strings.Fields(name)
	core := make([]string, 0, len(parts))
	for _, p := range parts {
		if !nameSuffixes[strings.ToLower(strings.TrimSuffix(p, "."))] {
			core = append(core, p)
		}
	}
	if len(core) <= 1 {
		return false
	}

	for _, p := range core[:len(core)-1] {
		if len(strings.TrimSuffix(p, ".")) == 1 {
			return true
		}
	}

	if isShortUpper(core[len(core)-1]) {
		return true
	}

	first := strings.TrimSuffix(core[0], ".")
	if len(first) >= 2 && isUpperFirst(first) && !surnamePrefixes[strings.ToLower(first)] {
		if len(core) >= 2 {
			second := strings.TrimSuffix(core[1], ".")
			if len(second) >= 2 && isUpperFirst(second) {
				return true
			}
		}
	}

	return false
}

func isUpperFirst(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)[0]
	return r >= 'A' && r <= 'Z'
}
