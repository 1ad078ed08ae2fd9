package identity

import (
	"sort"
	"strings"
	"sync"
)

// Confidence is the tier a match lands in.
type Confidence string

const (
	High    Confidence = "HIGH"
	Medium  Confidence = "MEDIUM"
	Low     Confidence = "LOW"
	NoMatch Confidence = "NO_MATCH"
)

// Employee is one entry of the external roster.
type Employee struct {
	ID                string `json:"employee_id" csv:"employee_id"`
	Name              string `json:"name" csv:"name"`
	PayrollCalendarID string `json:"payroll_calendar_id,omitempty" csv:"payroll_calendar_id"`
}

type Suggestion struct {
	Name  string  `json:"name"`
	ID    string  `json:"employee_id"`
	Score float64 `json:"score"`
}

// MatchResult is the outcome for one source name. MatchedName and MatchedID
// are empty for NO_MATCH.
type MatchResult struct {
	Input                string       `json:"input_name"`
	MatchedName          string       `json:"matched_name,omitempty"`
	MatchedID            string       `json:"matched_id,omitempty"`
	Confidence           Confidence   `json:"confidence"`
	Score                float64      `json:"confidence_score"`
	RequiresConfirmation bool         `json:"requires_confirmation"`
	Suggestions          []Suggestion `json:"suggestions,omitempty"`
}

// Automatic reports whether the result may be used without a human.
func (r MatchResult) Automatic() bool {
	return r.Confidence == High && !r.RequiresConfirmation
}

func (r MatchResult) HasSuggestions() bool { return len(r.Suggestions) > 0 }

// Options holds the matcher thresholds, all on a 0 to 100 scale.
type Options struct {
	AutoMatchThreshold  float64 `mapstructure:"auto_match_threshold" yaml:"auto_match_threshold"`
	MediumThreshold     float64 `mapstructure:"medium_threshold" yaml:"medium_threshold"`
	LowThreshold        float64 `mapstructure:"low_threshold" yaml:"low_threshold"`
	SuggestionThreshold float64 `mapstructure:"suggestion_threshold" yaml:"suggestion_threshold"`
	SurnameThreshold    float64 `mapstructure:"surname_threshold" yaml:"surname_threshold"`
	MaxSuggestions      int     `mapstructure:"max_suggestions" yaml:"max_suggestions"`
}

func DefaultOptions() Options {
	return Options{
		AutoMatchThreshold:  92.5,
		MediumThreshold:     70,
		LowThreshold:        50,
		SuggestionThreshold: 60,
		SurnameThreshold:    60,
		MaxSuggestions:      5,
	}
}

// Matcher resolves free-text names against a roster.
type Matcher struct {
	mu     sync.RWMutex
	roster []Employee
	byName map[string]Employee
	opts   Options
	cache  *Cache
}

// NewMatcher builds a matcher. A nil cache gets a private one.
func NewMatcher(roster []Employee, opts Options, cache *Cache) *Matcher {
	if cache == nil {
		cache = NewCache()
	}
	m := &Matcher{opts: opts, cache: cache}
	m.SetRoster(roster)
	return m
}

// SetRoster replaces the roster and drops every cached result.
func (m *Matcher) SetRoster(roster []Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roster = make([]Employee, 0, len(roster))
	m.byName = make(map[string]Employee, len(roster))
	for _, emp := range roster {
		emp.ID = strings.TrimSpace(emp.ID)
		emp.Name = strings.TrimSpace(emp.Name)
		if emp.ID == "" || emp.Name == "" {
			continue
		}
		m.roster = append(m.roster, emp)
		if _, dup := m.byName[emp.Name]; !dup {
			m.byName[emp.Name] = emp
		}
	}
	m.cache.Flush()
}

func (m *Matcher) Roster() []Employee {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Employee(nil), m.roster...)
}

// Employee looks a roster entry up by ID.
func (m *Matcher) Employee(id string) (Employee, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.employee(id)
}

func (m *Matcher) employee(id string) (Employee, bool) {
	for _, emp := range m.roster {
		if emp.ID == id {
			return emp, true
		}
	}
	return Employee{}, false
}

// Match resolves one name. Exact matches never need confirmation; a fuzzy
// HIGH match needs it when requireConfirmation is set.
func (m *Matcher) Match(name string, requireConfirmation bool) MatchResult {
	name = strings.TrimSpace(name)
	if name == "" {
		return MatchResult{Input: name, Confidence: NoMatch, RequiresConfirmation: true}
	}
	if res, ok := m.cache.Get(name, requireConfirmation); ok {
		return res
	}

	// Set under the read lock; SetRoster flushes under the write lock.
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := m.match(name, requireConfirmation)
	m.cache.Set(name, requireConfirmation, res)
	return res
}

func (m *Matcher) match(name string, requireConfirmation bool) MatchResult {
	if emp, ok := m.exact(name); ok {
		return MatchResult{Input: name, MatchedName: emp.Name, MatchedID: emp.ID, Confidence: High, Score: 100}
	}

	candidates := m.candidates(name)
	if len(candidates) == 0 {
		return MatchResult{Input: name, Confidence: NoMatch, RequiresConfirmation: true}
	}

	best := candidates[0]
	res := MatchResult{Input: name, Score: best.Score, RequiresConfirmation: true}
	switch {
	case best.Score >= m.opts.AutoMatchThreshold:
		res.Confidence = High
		res.RequiresConfirmation = requireConfirmation
	case best.Score >= m.opts.MediumThreshold:
		res.Confidence = Medium
	case best.Score >= m.opts.LowThreshold:
		res.Confidence = Low
	default:
		res.Confidence = NoMatch
	}
	if res.Confidence != NoMatch {
		res.MatchedName, res.MatchedID = best.Name, best.ID
	}

	for i, c := range candidates {
		if i >= m.opts.MaxSuggestions {
			break
		}
		if c.Score >= m.opts.SuggestionThreshold {
			res.Suggestions = append(res.Suggestions, c)
		}
	}
	return res
}

func (m *Matcher) exact(name string) (Employee, bool) {
	if emp, ok := m.byName[name]; ok {
		return emp, true
	}
	for _, emp := range m.roster {
		if strings.EqualFold(emp.Name, name) {
			return emp, true
		}
	}
	return Employee{}, false
}

// candidates scores every roster entry and keeps those that pass the primary
// threshold and either a token measure or the surname check.
func (m *Matcher) candidates(name string) []Suggestion {
	input := Normalize(name)
	var out []Suggestion
	for _, emp := range m.roster {
		s := Compare(input, Normalize(emp.Name))
		best := s.Best()
		tokensStrong := s.TokenSet >= m.opts.SuggestionThreshold || s.TokenSort >= m.opts.SuggestionThreshold
		surnameClose := s.Surname >= m.opts.SurnameThreshold
		if best >= m.opts.SuggestionThreshold && (tokensStrong || surnameClose) {
			out = append(out, Suggestion{Name: emp.Name, ID: emp.ID, Score: best})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// MatchBatch resolves every name, keyed by the name as given.
func (m *Matcher) MatchBatch(names []string, requireConfirmation bool) map[string]MatchResult {
	out := make(map[string]MatchResult, len(names))
	for _, name := range names {
		out[name] = m.Match(name, requireConfirmation)
	}
	return out
}

// Unmatched lists names with no acceptable candidate at all.
func (m *Matcher) Unmatched(names []string) []string {
	var out []string
	for _, name := range names {
		if m.Match(name, false).Confidence == NoMatch {
			out = append(out, name)
		}
	}
	return out
}

// Ambiguous lists results a human has to choose between.
func (m *Matcher) Ambiguous(names []string) []MatchResult {
	var out []MatchResult
	for _, name := range names {
		res := m.Match(name, true)
		if res.RequiresConfirmation && res.HasSuggestions() {
			out = append(out, res)
		}
	}
	return out
}

// Confirm records a human decision that name is the employee with id. It
// returns false if the id is not on the roster.
func (m *Matcher) Confirm(name, id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employee(id)
	if !ok {
		return false
	}
	name = strings.TrimSpace(name)
	res := MatchResult{Input: name, MatchedName: emp.Name, MatchedID: emp.ID, Confidence: High, Score: 100}
	m.cache.Set(name, true, res)
	m.cache.Set(name, false, res)
	return true
}

// Forget drops whatever is cached for name, including a confirmation, so the
// next Match scores it again.
func (m *Matcher) Forget(name string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.cache.Delete(strings.TrimSpace(name))
}

// Statistics summarizes how a set of names resolves.
type Statistics struct {
	Total                int     `json:"total_employees"`
	Exact                int     `json:"exact_matches"`
	Fuzzy                int     `json:"fuzzy_matches"`
	None                 int     `json:"no_matches"`
	RequiresConfirmation int     `json:"requires_confirmation"`
	MatchRate            float64 `json:"match_rate"`
}

func (m *Matcher) Statistics(names []string) Statistics {
	st := Statistics{Total: len(names)}
	if st.Total == 0 {
		return st
	}
	for _, name := range names {
		res := m.Match(name, true)
		switch {
		case res.Score == 100:
			st.Exact++
		case res.Confidence != NoMatch:
			st.Fuzzy++
		default:
			st.None++
		}
		if res.RequiresConfirmation {
			st.RequiresConfirmation++
		}
	}
	st.MatchRate = float64(st.Exact+st.Fuzzy) / float64(st.Total) * 100
	return st
}
