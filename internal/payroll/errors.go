package payroll

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrStructural marks malformed or unopenable inputs. Fatal, no partial output.
	ErrStructural = errors.New("structural error")

	// ErrHeuristicMiss marks a page that does not look like the expected kind.
	// It is only ever recorded in ingestion diagnostics.
	ErrHeuristicMiss = errors.New("heuristic miss")

	// ErrBusinessRule marks a value object that violates a domain invariant.
	ErrBusinessRule = errors.New("business rule violation")

	// ErrMapping marks missing region or hour type mappings at payload build time.
	ErrMapping = errors.New("mapping gap")
)

// StructuralError describes an input that is missing required parts.
type StructuralError struct {
	Source  string
	Message string
	Err     error
}

func (e *StructuralError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Source != "" {
		return fmt.Sprintf("%s: %s", e.Source, msg)
	}
	return msg
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

func (e *StructuralError) Unwrap() error { return e.Err }

func NewStructuralError(source, message string, err error) *StructuralError {
	return &StructuralError{Source: source, Message: message, Err: err}
}

// BusinessRuleError is returned when constructing a value object that breaks an invariant.
type BusinessRuleError struct {
	Field   string
	Value   any
	Message string
}

func (e *BusinessRuleError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
	}
	return e.Message
}

func (e *BusinessRuleError) Is(target error) bool { return target == ErrBusinessRule }

func newRuleError(field string, value any, format string, args ...any) *BusinessRuleError {
	return &BusinessRuleError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// MappingError lists every region and hour type that has no external mapping.
type MappingError struct {
	Employee         string
	MissingRegions   []string
	MissingHourTypes []HourType
}

func (e *MappingError) Error() string {
	var parts []string
	if len(e.MissingRegions) > 0 {
		parts = append(parts, "missing tracking mappings for regions: "+strings.Join(e.MissingRegions, ", "))
	}
	if len(e.MissingHourTypes) > 0 {
		names := make([]string, len(e.MissingHourTypes))
		for i, ht := range e.MissingHourTypes {
			names[i] = string(ht)
		}
		parts = append(parts, "missing earnings rate mappings for hour types: "+strings.Join(names, ", "))
	}
	msg := strings.Join(parts, "; ")
	if e.Employee != "" {
		return fmt.Sprintf("employee %s: %s", e.Employee, msg)
	}
	return msg
}

func (e *MappingError) Is(target error) bool { return target == ErrMapping }

// Empty reports whether nothing is missing.
func (e *MappingError) Empty() bool {
	return len(e.MissingRegions) == 0 && len(e.MissingHourTypes) == 0
}

// Sort orders the missing keys so error text is deterministic.
func (e *MappingError) Sort() {
	sort.Strings(e.MissingRegions)
	sort.Slice(e.MissingHourTypes, func(i, j int) bool {
		return e.MissingHourTypes[i] < e.MissingHourTypes[j]
	})
}
