package config

import (
	"errors"
	"fmt"
	"strings"
)

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "fatal": true, "panic": true, "off": true, "disabled": true,
}

// Validate reports every out-of-range setting at once.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Sheets.Extensions) == 0 {
		bad("sheets.extensions must not be empty")
	}
	for _, ext := range c.Sheets.Extensions {
		if !strings.HasPrefix(ext, ".") {
			bad("sheets.extensions: %q must start with a dot", ext)
		}
	}
	for name, n := range map[string]int{
		"sheets.site.detection_threshold":     c.Sheets.Site.DetectionThreshold,
		"sheets.site.employee_name_column":    c.Sheets.Site.EmployeeNameColumn,
		"sheets.site.date_start_column":       c.Sheets.Site.DateStartColumn,
		"sheets.site.overtime_column":         c.Sheets.Site.OvertimeColumn,
		"sheets.travel.detection_threshold":   c.Sheets.Travel.DetectionThreshold,
		"sheets.travel.name_column":           c.Sheets.Travel.NameColumn,
		"sheets.travel.hours_column":          c.Sheets.Travel.HoursColumn,
		"sheets.overtime.detection_threshold": c.Sheets.Overtime.DetectionThreshold,
	} {
		if n < 1 {
			bad("%s must be at least 1, got %d", name, n)
		}
	}
	if c.Sheets.Site.HolidayHours <= 0 || c.Sheets.Site.HolidayHours > 24 {
		bad("sheets.site.holiday_hours must be in (0, 24], got %v", c.Sheets.Site.HolidayHours)
	}
	if len(c.Sheets.Overtime.FlagColumns) != len(c.Sheets.Overtime.RateColumns) {
		bad("sheets.overtime.flag_columns and rate_columns must pair up")
	}

	id := c.Identity
	for name, v := range map[string]float64{
		"identity.auto_match_threshold": id.AutoMatchThreshold,
		"identity.medium_threshold":     id.MediumThreshold,
		"identity.low_threshold":        id.LowThreshold,
		"identity.suggestion_threshold": id.SuggestionThreshold,
		"identity.surname_threshold":    id.SurnameThreshold,
	} {
		if v < 0 || v > 100 {
			bad("%s must be between 0 and 100, got %v", name, v)
		}
	}
	if !(id.LowThreshold <= id.MediumThreshold && id.MediumThreshold <= id.AutoMatchThreshold) {
		bad("identity thresholds must satisfy low <= medium <= auto_match")
	}
	if id.MaxSuggestions < 1 {
		bad("identity.max_suggestions must be at least 1")
	}

	if c.Rules.MixedPeriodDays < 1 || c.Rules.WindowDays < 1 {
		bad("rules.mixed_period_days and rules.window_days must be positive")
	}
	if c.Rules.MaxSpanDays < c.Rules.MixedPeriodDays {
		bad("rules.max_span_days must not be below rules.mixed_period_days")
	}
	if c.Rules.RegularHoursCap <= 0 {
		bad("rules.regular_hours_cap must be positive")
	}
	if c.Payload.MixedPeriodDays < 1 {
		bad("payload.mixed_period_days must be positive")
	}

	if !logLevels[strings.ToLower(c.Log.Level)] {
		bad("log.level %q is not a known level", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console", "auto":
	default:
		bad("log.format must be json, console or auto")
	}

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		bad("http.addr is required")
	}
	if c.HTTP.MaxUploadMB < 1 {
		bad("http.max_upload_mb must be positive")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		bad("store.path is required")
	}
	if (c.API.ClientID == "") != (c.API.ClientSecret == "") {
		bad("api.client_id and api.client_secret must be set together")
	}
	if c.API.MaxRetries < 0 {
		bad("api.max_retries must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
