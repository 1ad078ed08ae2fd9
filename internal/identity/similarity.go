package identity

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Normalize folds accents and case and collapses whitespace, so "José  Núñez"
// and "jose nunez" compare equal.
func Normalize(name string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(lower.String(folded)), " ")
}

// Ratio is the Levenshtein similarity of a and b on a 0 to 100 scale.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (1 - float64(dist)/float64(longest)) * 100
}

// PartialRatio scores the shorter string against its best-aligned window in
// the longer one.
func PartialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		if len(rb) == 0 {
			return 100
		}
		return 0
	}
	short := string(ra)
	best := 0.0
	for start := 0; start+len(ra) <= len(rb); start++ {
		if score := Ratio(short, string(rb[start:start+len(ra)])); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio ignores word order.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio ignores word order and duplicated words. A name whose words
// are all contained in the other scores 100.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	var common, onlyA, onlyB []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	if len(common) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	sect := strings.Join(common, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))
	return max(Ratio(sect, combinedA), Ratio(sect, combinedB), Ratio(combinedA, combinedB))
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// Scores holds every measure computed for one candidate.
type Scores struct {
	Ratio     float64 `json:"ratio"`
	Partial   float64 `json:"partial"`
	TokenSort float64 `json:"token_sort"`
	TokenSet  float64 `json:"token_set"`
	Surname   float64 `json:"surname"`
}

// Best is the primary similarity score.
func (s Scores) Best() float64 {
	return max(s.Ratio, s.Partial, s.TokenSort, s.TokenSet)
}

// Compare scores two normalized names. The surname score is only set when
// both names have at least two words.
func Compare(a, b string) Scores {
	s := Scores{
		Ratio:     Ratio(a, b),
		Partial:   PartialRatio(a, b),
		TokenSort: TokenSortRatio(a, b),
		TokenSet:  TokenSetRatio(a, b),
	}
	pa, pb := strings.Fields(a), strings.Fields(b)
	if len(pa) >= 2 && len(pb) >= 2 {
		s.Surname = Ratio(pa[len(pa)-1], pb[len(pb)-1])
	}
	return s
}
