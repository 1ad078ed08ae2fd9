package sheets

import (
	"fmt"
	"strings"
)

// Rule is one structural indicator. Each rule is a plain predicate so it can
// be tested on its own.
type Rule struct {
	Name  string
	Check func(*Page) bool
}

// Detector accepts a page when at least Threshold rules hold.
type Detector struct {
	Rules     []Rule
	Threshold int
}

type Evaluation struct {
	Matched   []string
	Missed    []string
	Threshold int
}

func (e Evaluation) Score() int { return len(e.Matched) }

func (e Evaluation) Passed() bool { return len(e.Matched) >= e.Threshold }

func (e Evaluation) String() string {
	return fmt.Sprintf("matched %d of %d indicators, need %d (missing: %s)",
		len(e.Matched), len(e.Matched)+len(e.Missed), e.Threshold, strings.Join(e.Missed, ", "))
}

func (d Detector) Evaluate(p *Page) Evaluation {
	ev := Evaluation{Threshold: d.Threshold}
	for _, rule := range d.Rules {
		if rule.Check(p) {
			ev.Matched = append(ev.Matched, rule.Name)
		} else {
			ev.Missed = append(ev.Missed, rule.Name)
		}
	}
	return ev
}

func (d Detector) Matches(p *Page) bool {
	return d.Evaluate(p).Passed()
}

// containsText reports whether any cell in the top-left window contains one
// of the needles, compared case-insensitively.
func containsText(p *Page, rows, cols int, needles ...string) bool {
	for r := 1; r <= rows && r <= p.MaxRow(); r++ {
		for c := 1; c <= cols; c++ {
			value := strings.ToLower(p.Cell(r, c))
			if value == "" {
				continue
			}
			for _, n := range needles {
				if strings.Contains(value, n) {
					return true
				}
			}
		}
	}
	return false
}
