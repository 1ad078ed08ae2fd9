package payrollapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrUnauthorized = errors.New("payroll api: unauthorized")
	ErrRateLimited  = errors.New("payroll api: rate limited")
	ErrValidation   = errors.New("payroll api: validation failed")
	ErrNotFound     = errors.New("payroll api: not found")
)

// APIError is a non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// errorBody covers the error shapes the payroll and accounting APIs return.
type errorBody struct {
	Message          string `json:"Message"`
	ErrorDescription string `json:"error_description"`
	Elements         []struct {
		ValidationErrors []struct {
			Message string `json:"Message"`
		} `json:"ValidationErrors"`
	} `json:"Elements"`
	Problem *struct {
		Title         string `json:"title"`
		Detail        string `json:"detail"`
		InvalidFields []struct {
			Name   string `json:"name"`
			Reason string `json:"reason"`
		} `json:"invalidFields"`
	} `json:"problem"`
}

func errorMessage(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		var msgs []string
		for _, el := range eb.Elements {
			for _, ve := range el.ValidationErrors {
				if ve.Message != "" {
					msgs = append(msgs, ve.Message)
				}
			}
		}
		if eb.Problem != nil {
			for _, f := range eb.Problem.InvalidFields {
				msgs = append(msgs, f.Name+": "+f.Reason)
			}
			if len(msgs) == 0 && eb.Problem.Detail != "" {
				msgs = append(msgs, eb.Problem.Detail)
			}
			if len(msgs) == 0 && eb.Problem.Title != "" {
				msgs = append(msgs, eb.Problem.Title)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
		if eb.Message != "" {
			return eb.Message
		}
		if eb.ErrorDescription != "" {
			return eb.ErrorDescription
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(status)
}
