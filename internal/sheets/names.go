package sheets

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var boilerplatePhrases = []string{
	"contractor name",
	"if you worked through break",
	"to temporary worker",
	"to be signed by supervisor",
	"standard hours and overtime",
	"certified as being correct",
	"unpaid breaks must not be included",
	"employee name",
	"name of employee",
	"total hours",
	"hours worked",
	"signature",
	"date signed",
	"supervisor",
	"manager approval",
}

var instructionWords = map[string]struct{}{
	"add": {}, "here": {}, "must": {}, "not": {}, "include": {},
	"correct": {}, "payable": {}, "such": {}, "being": {},
}

var headerStrings = map[string]struct{}{
	"CONTRACTOR NAME": {},
	"EMPLOYEE NAME":   {},
	"TOTAL HOURS":     {},
	"SIGNATURE":       {},
}

// IsEmployeeName filters instructional text and header labels out of the
// employee column of a site timesheet.
func IsEmployeeName(name string, s SiteSettings) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if s.MaxEmployeeNameRunes > 0 && utf8.RuneCountInString(name) > s.MaxEmployeeNameRunes {
		return false
	}
	lower := strings.ToLower(name)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	if s.InstructionWordLimit > 0 && instructionWordCount(lower) >= s.InstructionWordLimit {
		return false
	}
	if isUpper(name) && len(strings.Fields(name)) <= 2 {
		if _, ok := headerStrings[name]; ok {
			return false
		}
	}
	return true
}

func instructionWordCount(lower string) int {
	seen := map[string]struct{}{}
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if _, ok := instructionWords[word]; ok {
			seen[word] = struct{}{}
		}
	}
	return len(seen)
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// IsPlaceholderName matches test and sample rows in travel logs.
func IsPlaceholderName(name string, patterns []string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func hasFirstAndLastName(name string) bool {
	return len(strings.Fields(name)) >= 2
}
