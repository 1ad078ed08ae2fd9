package payroll

import (
	"fmt"
	"strings"
)

// HourType classifies worked time and drives earnings-rate mapping downstream.
type HourType string

const (
	Regular  HourType = "REGULAR"
	Overtime HourType = "OVERTIME"
	Holiday  HourType = "HOLIDAY"
	Travel   HourType = "TRAVEL"
)

// HourTypes lists every supported hour type in display order.
var HourTypes = []HourType{Regular, Overtime, Holiday, Travel}

var hourTypeLabels = map[HourType]string{
	Regular:  "Regular Hours",
	Overtime: "Overtime Hours",
	Holiday:  "Holiday",
	Travel:   "Travel Hours",
}

// ParseHourType accepts the enum key in any case.
func ParseHourType(raw string) (HourType, error) {
	ht := HourType(strings.ToUpper(strings.TrimSpace(raw)))
	if !ht.Valid() {
		return "", newRuleError("hour_type", raw, "must be one of REGULAR, OVERTIME, HOLIDAY, TRAVEL")
	}
	return ht, nil
}

func (h HourType) Valid() bool {
	_, ok := hourTypeLabels[h]
	return ok
}

// Label is the earnings rate name the payroll provider uses by default.
func (h HourType) Label() string {
	if label, ok := hourTypeLabels[h]; ok {
		return label
	}
	return string(h)
}

func (h HourType) String() string { return string(h) }

func (h *HourType) UnmarshalText(text []byte) error {
	parsed, err := ParseHourType(string(text))
	if err != nil {
		return fmt.Errorf("decode hour type: %w", err)
	}
	*h = parsed
	return nil
}
