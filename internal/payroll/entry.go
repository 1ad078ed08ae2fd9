package payroll

import (
	"math"
	"strings"
	"time"
)

const MaxHoursPerDay = 24.0

// EntryParams carries the fields for NewDailyEntry.
type EntryParams struct {
	Date           time.Time
	Region         string
	Hours          float64
	HourType       HourType
	OvertimeRate   *float64
	OriginalRegion string
	// RegionInvalid marks an entry whose region failed validation. The zero
	// value means the region is valid.
	RegionInvalid bool
}

// DailyEntry is one unit of worked time. Values are immutable; the With
// methods return corrected copies.
type DailyEntry struct {
	date           time.Time
	region         string
	hours          float64
	hourType       HourType
	overtimeRate   *float64
	originalRegion string
	regionValid    bool
}

func NewDailyEntry(p EntryParams) (DailyEntry, error) {
	// Written so NaN fails too.
	if !(p.Hours > 0 && p.Hours <= MaxHoursPerDay) {
		return DailyEntry{}, newRuleError("hours", p.Hours, "must be greater than 0 and at most %.0f", MaxHoursPerDay)
	}
	region := strings.TrimSpace(p.Region)
	if region == "" {
		return DailyEntry{}, newRuleError("region", p.Region, "region name cannot be empty")
	}
	if region == UnknownRegion && !p.RegionInvalid {
		return DailyEntry{}, newRuleError("region", p.Region, "%q is reserved for entries marked invalid", UnknownRegion)
	}
	if !p.HourType.Valid() {
		return DailyEntry{}, newRuleError("hour_type", p.HourType, "unsupported hour type")
	}
	if p.Date.IsZero() {
		return DailyEntry{}, newRuleError("date", p.Date, "entry date is required")
	}
	var rate *float64
	if p.OvertimeRate != nil {
		if !(*p.OvertimeRate >= 0) || math.IsInf(*p.OvertimeRate, 1) {
			return DailyEntry{}, newRuleError("overtime_rate", *p.OvertimeRate, "overtime rate must be a non-negative number")
		}
		v := *p.OvertimeRate
		rate = &v
	}
	original := strings.TrimSpace(p.OriginalRegion)
	if original == "" {
		original = region
	}
	return DailyEntry{
		date:           Day(p.Date),
		region:         region,
		hours:          p.Hours,
		hourType:       p.HourType,
		overtimeRate:   rate,
		originalRegion: original,
		regionValid:    !p.RegionInvalid,
	}, nil
}

func (e DailyEntry) Date() time.Time        { return e.date }
func (e DailyEntry) Region() string         { return e.region }
func (e DailyEntry) Hours() float64         { return e.hours }
func (e DailyEntry) HourType() HourType     { return e.hourType }
func (e DailyEntry) OriginalRegion() string { return e.originalRegion }
func (e DailyEntry) RegionValid() bool      { return e.regionValid }

// OvertimeRate returns the custom rate, if any.
func (e DailyEntry) OvertimeRate() (float64, bool) {
	if e.overtimeRate == nil {
		return 0, false
	}
	return *e.overtimeRate, true
}

func (e DailyEntry) params() EntryParams {
	return EntryParams{
		Date:           e.date,
		Region:         e.region,
		Hours:          e.hours,
		HourType:       e.hourType,
		OvertimeRate:   e.overtimeRate,
		OriginalRegion: e.originalRegion,
		RegionInvalid:  !e.regionValid,
	}
}

func (e DailyEntry) WithHours(hours float64) (DailyEntry, error) {
	p := e.params()
	p.Hours = hours
	return NewDailyEntry(p)
}

func (e DailyEntry) WithOvertimeRate(rate *float64) (DailyEntry, error) {
	p := e.params()
	p.OvertimeRate = rate
	return NewDailyEntry(p)
}

// Quarantine moves the entry to the Unknown region and keeps its source region.
func (e DailyEntry) Quarantine() DailyEntry {
	if !e.regionValid {
		return e
	}
	q := e
	q.originalRegion = e.region
	q.region = UnknownRegion
	q.regionValid = false
	return q
}
