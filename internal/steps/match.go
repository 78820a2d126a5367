package steps

import (
	"regexp"
	"strings"
)

var (
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]+`)
	sieveBed      = regexp.MustCompile(`sieve\s+bed`)
	sievePart     = regexp.MustCompile(`(?i)sieve\s*(tank|bed)`)
	transcription = strings.NewReplacer("pnuematic", "pneumatic")
)

// NormalizePartName lower-cases s, replaces punctuation with spaces, corrects
// the known transcription variants and collapses whitespace.
func NormalizePartName(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	s = transcription.Replace(s)
	s = sieveBed.ReplaceAllString(s, "sieve tank")
	return strings.Join(strings.Fields(s), " ")
}

// PartTokens splits the normalized form of s into words.
func PartTokens(s string) []string {
	return strings.Fields(NormalizePartName(s))
}

// MatchPart returns the index of the first label that contains every token of
// selection, in any order, or -1. A selection without tokens matches nothing.
func MatchPart(selection string, labels []string) int {
	want := PartTokens(selection)
	if len(want) == 0 {
		return -1
	}
	for i, l := range labels {
		if containsAll(PartTokens(l), want) {
			return i
		}
	}
	return -1
}

func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// IsSievePart reports whether a part name refers to the sieve tank or bed.
func IsSievePart(name string) bool {
	return sievePart.MatchString(name)
}

var yesIDPattern = regexp.MustCompile(`radPartYes\d+`)
