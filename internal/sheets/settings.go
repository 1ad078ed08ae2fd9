package sheets

// Detection and layout defaults. Columns and rows are 1-based, the way the
// source spreadsheets are described by the people who fill them in.
const (
	DefaultDetectionThreshold = 2

	DefaultDateRowSearchRange   = 25
	DefaultDateRow              = 9
	DefaultDateStartColumn      = 3
	DefaultEmployeeNameColumn   = 2
	DefaultEmployeeStartRow     = 12
	DefaultEmployeeProbeRows    = 5
	DefaultOvertimeColumn       = 11
	DefaultRegionOverrideHours  = 8.0
	DefaultHolidayHours         = 8.0
	DefaultHolidayToken         = "HOL"
	DefaultMinHeaderDates       = 3
	DefaultHeaderScanRows       = 10
	DefaultHeaderScanColumns    = 9
	DefaultMaxDateScanColumns   = 50
	DefaultMaxEmployeeNameRunes = 50
	DefaultInstructionWordLimit = 3

	DefaultTravelNameColumn   = 1
	DefaultTravelSiteColumn   = 2
	DefaultTravelHoursColumn  = 4
	DefaultTravelDataStartRow = 2
	DefaultTravelProbeEndRow  = 19
	DefaultTravelTitleRows    = 9
	DefaultTravelTitleColumns = 4
	DefaultTravelRegion       = "Travel"

	DefaultOvertimeTitlePhrase      = "overtime rate for employees"
	DefaultOvertimeDataStartRow     = 2
	DefaultOvertimeMaxSearchColumns = 20
	DefaultOvertimeHeaderRows       = 5
	DefaultOvertimeHeaderColumns    = 7
	DefaultOvertimeProbeEndRow      = 11
)

// Settings configures every reader. Zero values are replaced by defaults in
// DefaultSettings; config loading starts from there.
type Settings struct {
	Extensions []string         `mapstructure:"extensions" yaml:"extensions"`
	Site       SiteSettings     `mapstructure:"site" yaml:"site"`
	Travel     TravelSettings   `mapstructure:"travel" yaml:"travel"`
	Overtime   OvertimeSettings `mapstructure:"overtime" yaml:"overtime"`
}

type SiteSettings struct {
	DetectionThreshold   int     `mapstructure:"detection_threshold" yaml:"detection_threshold"`
	DateRowSearchRange   int     `mapstructure:"date_row_search_range" yaml:"date_row_search_range"`
	DateRow              int     `mapstructure:"date_row" yaml:"date_row"`
	DateStartColumn      int     `mapstructure:"date_start_column" yaml:"date_start_column"`
	EmployeeNameColumn   int     `mapstructure:"employee_name_column" yaml:"employee_name_column"`
	EmployeeStartRow     int     `mapstructure:"employee_start_row" yaml:"employee_start_row"`
	EmployeeProbeRows    int     `mapstructure:"employee_probe_rows" yaml:"employee_probe_rows"`
	OvertimeColumn       int     `mapstructure:"overtime_column" yaml:"overtime_column"`
	RegionOverrideHours  float64 `mapstructure:"region_override_hours" yaml:"region_override_hours"`
	HolidayHours         float64 `mapstructure:"holiday_hours" yaml:"holiday_hours"`
	HolidayToken         string  `mapstructure:"holiday_token" yaml:"holiday_token"`
	MinHeaderDates       int     `mapstructure:"min_header_dates" yaml:"min_header_dates"`
	HeaderScanRows       int     `mapstructure:"header_scan_rows" yaml:"header_scan_rows"`
	HeaderScanColumns    int     `mapstructure:"header_scan_columns" yaml:"header_scan_columns"`
	MaxEmployeeNameRunes int     `mapstructure:"max_employee_name_runes" yaml:"max_employee_name_runes"`
	InstructionWordLimit int     `mapstructure:"instruction_word_limit" yaml:"instruction_word_limit"`
}

type TravelSettings struct {
	DetectionThreshold int      `mapstructure:"detection_threshold" yaml:"detection_threshold"`
	NameColumn         int      `mapstructure:"name_column" yaml:"name_column"`
	SiteColumn         int      `mapstructure:"site_column" yaml:"site_column"`
	HoursColumn        int      `mapstructure:"hours_column" yaml:"hours_column"`
	DataStartRow       int      `mapstructure:"data_start_row" yaml:"data_start_row"`
	ProbeEndRow        int      `mapstructure:"probe_end_row" yaml:"probe_end_row"`
	TitleRows          int      `mapstructure:"title_rows" yaml:"title_rows"`
	TitleColumns       int      `mapstructure:"title_columns" yaml:"title_columns"`
	DefaultRegion      string   `mapstructure:"default_region" yaml:"default_region"`
	FakeNamePatterns   []string `mapstructure:"fake_name_patterns" yaml:"fake_name_patterns"`
}

type OvertimeSettings struct {
	DetectionThreshold int      `mapstructure:"detection_threshold" yaml:"detection_threshold"`
	TitlePhrase        string   `mapstructure:"title_phrase" yaml:"title_phrase"`
	DataStartRow       int      `mapstructure:"data_start_row" yaml:"data_start_row"`
	MaxSearchColumns   int      `mapstructure:"max_search_columns" yaml:"max_search_columns"`
	HeaderRows         int      `mapstructure:"header_rows" yaml:"header_rows"`
	HeaderColumns      int      `mapstructure:"header_columns" yaml:"header_columns"`
	ProbeEndRow        int      `mapstructure:"probe_end_row" yaml:"probe_end_row"`
	NameColumns        []int    `mapstructure:"name_columns" yaml:"name_columns"`
	FlagColumns        []int    `mapstructure:"flag_columns" yaml:"flag_columns"`
	RateColumns        []int    `mapstructure:"rate_columns" yaml:"rate_columns"`
	HeaderKeywords     []string `mapstructure:"header_keywords" yaml:"header_keywords"`
}

var (
	DefaultExtensions       = []string{".xlsx", ".xls", ".csv"}
	DefaultFakeNamePatterns = []string{"test", "fake", "example", "dummy", "sample", "xxx"}
	DefaultHeaderKeywords   = []string{"overtime", "overtime rate", "rate", "employee", "employee name"}
)

func DefaultSettings() Settings {
	return Settings{
		Extensions: append([]string(nil), DefaultExtensions...),
		Site: SiteSettings{
			DetectionThreshold:   DefaultDetectionThreshold,
			DateRowSearchRange:   DefaultDateRowSearchRange,
			DateRow:              DefaultDateRow,
			DateStartColumn:      DefaultDateStartColumn,
			EmployeeNameColumn:   DefaultEmployeeNameColumn,
			EmployeeStartRow:     DefaultEmployeeStartRow,
			EmployeeProbeRows:    DefaultEmployeeProbeRows,
			OvertimeColumn:       DefaultOvertimeColumn,
			RegionOverrideHours:  DefaultRegionOverrideHours,
			HolidayHours:         DefaultHolidayHours,
			HolidayToken:         DefaultHolidayToken,
			MinHeaderDates:       DefaultMinHeaderDates,
			HeaderScanRows:       DefaultHeaderScanRows,
			HeaderScanColumns:    DefaultHeaderScanColumns,
			MaxEmployeeNameRunes: DefaultMaxEmployeeNameRunes,
			InstructionWordLimit: DefaultInstructionWordLimit,
		},
		Travel: TravelSettings{
			DetectionThreshold: DefaultDetectionThreshold,
			NameColumn:         DefaultTravelNameColumn,
			SiteColumn:         DefaultTravelSiteColumn,
			HoursColumn:        DefaultTravelHoursColumn,
			DataStartRow:       DefaultTravelDataStartRow,
			ProbeEndRow:        DefaultTravelProbeEndRow,
			TitleRows:          DefaultTravelTitleRows,
			TitleColumns:       DefaultTravelTitleColumns,
			DefaultRegion:      DefaultTravelRegion,
			FakeNamePatterns:   append([]string(nil), DefaultFakeNamePatterns...),
		},
		Overtime: OvertimeSettings{
			DetectionThreshold: DefaultDetectionThreshold,
			TitlePhrase:        DefaultOvertimeTitlePhrase,
			DataStartRow:       DefaultOvertimeDataStartRow,
			MaxSearchColumns:   DefaultOvertimeMaxSearchColumns,
			HeaderRows:         DefaultOvertimeHeaderRows,
			HeaderColumns:      DefaultOvertimeHeaderColumns,
			ProbeEndRow:        DefaultOvertimeProbeEndRow,
			NameColumns:        []int{1, 2},
			FlagColumns:        []int{3, 4},
			RateColumns:        []int{4, 5},
			HeaderKeywords:     append([]string(nil), DefaultHeaderKeywords...),
		},
	}
}
