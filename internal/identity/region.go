package identity

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	IssueEmptyRegion   = "EMPTY_REGION"
	IssueInvalidRegion = "INVALID_REGION"
	IssueNoRegions     = "NO_REGIONS"
)

const similarRegionThreshold = 60.0

// RegionIssue explains why a region failed validation and what to do about it.
type RegionIssue struct {
	Code       string `json:"code"`
	Region     string `json:"region"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// RegionReport is the result of validating a set of regions.
type RegionReport struct {
	Valid   []string      `json:"valid_regions"`
	Invalid []string      `json:"invalid_regions"`
	Issues  []RegionIssue `json:"issues"`
	Known   int           `json:"known_regions_count"`
}

// RegionValidator checks region names against the external tracking options.
type RegionValidator struct {
	mu    sync.Mutex
	known map[string]struct{}
	seen  map[string]bool
}

func NewRegionValidator(regions []string) *RegionValidator {
	v := &RegionValidator{}
	v.SetRegions(regions)
	return v
}

func (v *RegionValidator) SetRegions(regions []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.known = make(map[string]struct{}, len(regions))
	for _, r := range regions {
		if r = strings.TrimSpace(r); r != "" {
			v.known[r] = struct{}{}
		}
	}
	v.seen = map[string]bool{}
}

// Known returns a copy of the valid region set.
func (v *RegionValidator) Known() map[string]struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]struct{}, len(v.known))
	for r := range v.known {
		out[r] = struct{}{}
	}
	return out
}

// Validate checks one region. The issue is nil when the region is valid.
func (v *RegionValidator) Validate(region string) *RegionIssue {
	region = strings.TrimSpace(region)
	if region == "" {
		return &RegionIssue{
			Code:       IssueEmptyRegion,
			Message:    "region name cannot be empty",
			Suggestion: "ensure all timesheet entries have valid region names",
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.known) == 0 {
		return &RegionIssue{
			Code:       IssueNoRegions,
			Region:     region,
			Message:    "no regions available for validation",
			Suggestion: "load the tracking options from the payroll provider or a regions file",
		}
	}

	valid, cached := v.seen[region]
	if !cached {
		_, valid = v.known[region]
		v.seen[region] = valid
	}
	if valid {
		return nil
	}

	suggestion := fmt.Sprintf("add %q as a tracking option in the payroll provider", region)
	if similar := v.similar(region); len(similar) > 0 {
		suggestion += fmt.Sprintf(". Did you mean: %s?", strings.Join(similar[:min(3, len(similar))], ", "))
	}
	return &RegionIssue{
		Code:       IssueInvalidRegion,
		Region:     region,
		Message:    fmt.Sprintf("region %q not found in tracking options", region),
		Suggestion: suggestion,
	}
}

// ValidateAll checks regions in sorted order.
func (v *RegionValidator) ValidateAll(regions []string) RegionReport {
	sorted := append([]string(nil), regions...)
	sort.Strings(sorted)

	var rep RegionReport
	for _, region := range sorted {
		if issue := v.Validate(region); issue != nil {
			rep.Invalid = append(rep.Invalid, region)
			rep.Issues = append(rep.Issues, *issue)
			continue
		}
		rep.Valid = append(rep.Valid, region)
	}
	v.mu.Lock()
	rep.Known = len(v.known)
	v.mu.Unlock()
	return rep
}

// Similar lists known regions close to region, best first.
func (v *RegionValidator) Similar(region string) []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.similar(region)
}

func (v *RegionValidator) similar(region string) []string {
	type scored struct {
		name  string
		score float64
	}
	var matches []scored
	needle := strings.ToLower(region)
	for known := range v.known {
		if score := Ratio(needle, strings.ToLower(known)); score >= similarRegionThreshold {
			matches = append(matches, scored{known, score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].name < matches[j].name
	})
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}
