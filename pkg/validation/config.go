package validation

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"
)

// ConfigValidator checks one configuration section fluently and collects
// every problem, so a bad config file is reported in a single pass.
type ConfigValidator struct {
	section string
	errs    []error
}

// NewConfigValidator starts validating section; errors are reported as
// "section.field: problem".
func NewConfigValidator(section string) *ConfigValidator {
	return &ConfigValidator{section: section}
}

func (cv *ConfigValidator) failf(field, format string, args ...any) *ConfigValidator {
	cv.errs = append(cv.errs, fmt.Errorf("%s.%s: %s", cv.section, field, fmt.Sprintf(format, args...)))
	return cv
}

func outside[T cmp.Ordered](v, lo, hi T) bool { return v < lo || v > hi }

func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value == "" {
		return cv.failf(field, "required field is empty")
	}
	return cv
}

func (cv *ConfigValidator) Positive(field string, value int) *ConfigValidator {
	if value <= 0 {
		return cv.failf(field, "value %d must be positive", value)
	}
	return cv
}

func (cv *ConfigValidator) NonNegative(field string, value int) *ConfigValidator {
	if value < 0 {
		return cv.failf(field, "value %d must be non-negative", value)
	}
	return cv
}

// RangeInt requires min <= value <= max.
func (cv *ConfigValidator) RangeInt(field string, value, min, max int) *ConfigValidator {
	if outside(value, min, max) {
		return cv.failf(field, "value %d is outside range [%d, %d]", value, min, max)
	}
	return cv
}

// RangeFloat requires min <= value <= max.
func (cv *ConfigValidator) RangeFloat(field string, value, min, max float64) *ConfigValidator {
	if outside(value, min, max) {
		return cv.failf(field, "value %g is outside range [%g, %g]", value, min, max)
	}
	return cv
}

func (cv *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	if value < min {
		return cv.failf(field, "duration %v is below minimum %v", value, min)
	}
	return cv
}

func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	if !slices.Contains(allowed, value) {
		return cv.failf(field, "value %q must be one of %v", value, allowed)
	}
	return cv
}

// URL checks an optional address: empty passes, anything else must parse
// with a host (or path, for ipc://) and one of schemes.
func (cv *ConfigValidator) URL(field, value string, schemes ...string) *ConfigValidator {
	if value == "" {
		return cv
	}
	u, err := url.Parse(value)
	if err != nil {
		return cv.failf(field, "invalid address %q: %v", value, err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return cv.failf(field, "scheme %q must be one of %v", u.Scheme, schemes)
	}
	if u.Host == "" && u.Path == "" {
		return cv.failf(field, "address %q has no host", value)
	}
	return cv
}

// Exclusive allows at most one of the named values to be set.
func (cv *ConfigValidator) Exclusive(fields map[string]string) *ConfigValidator {
	var set []string
	for name, v := range fields {
		if v != "" {
			set = append(set, name)
		}
	}
	if len(set) > 1 {
		slices.Sort(set)
		return cv.failf(set[0], "set only one of %v", set)
	}
	return cv
}

// Custom records fn's error, wrapped so errors.Is still matches it.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errs = append(cv.errs, fmt.Errorf("%s.%s: %w", cv.section, field, err))
	}
	return cv
}

// When runs validations only if condition holds.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

func (cv *ConfigValidator) HasErrors() bool { return len(cv.errs) > 0 }

func (cv *ConfigValidator) Errors() []error { return cv.errs }

// Validate returns every collected error joined, or nil.
func (cv *ConfigValidator) Validate() error {
	return errors.Join(cv.errs...)
}

// DefaultOr returns value unless it is the zero value.
func DefaultOr[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
