package segment

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// numberedHeadingRe matches "Chapter 3", "Part II", "Appendix A",
	// "3. Combat", "3.1 Attack Rolls" and similar.
	numberedHeadingRe = regexp.MustCompile(`(?i)^(chapter|part|appendix|section)\s+[\divxlc]+\b|^\d+(\.\d+)*[.)]?\s+\S`)

	// maxHeadingLen is the longest line still considered a heading.
	maxHeadingLen = 60

	// maxHeadingWords bounds title-case headings.
	maxHeadingWords = 8
)

// isHeading applies the boundary heuristics: numbered headings, short
// all-caps lines, and short title-case lines without terminal punctuation.
func isHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > maxHeadingLen {
		return false
	}
	// Table rows are never headings.
	if strings.Contains(line, "  ") {
		return false
	}
	if numberedHeadingRe.MatchString(line) {
		return true
	}
	if isAllCaps(line) {
		return true
	}
	return isTitleCase(line)
}

// isAllCaps reports whether the line is upper-case with at least three
// letters ("COMBAT", "SPELL LISTS").
func isAllCaps(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 3
}

// isTitleCase reports whether every word starts upper-case, the line is
// short, and it does not end like a sentence.
func isTitleCase(line string) bool {
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") ||
		strings.HasSuffix(line, ";") || strings.HasSuffix(line, ":") {
		return false
	}
	words := strings.Fields(line)
	if len(words) < 1 || len(words) > maxHeadingWords {
		return false
	}
	for _, w := range words {
		r := []rune(w)[0]
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			// Short connectives are allowed lower-case ("Rules of the Game").
			if len(w) > 3 {
				return false
			}
		}
	}
	// Require at least two words or a long single word; single short words
	// ("The", "Note") are too noisy to split on.
	return len(words) >= 2 || len(words[0]) >= 6
}
