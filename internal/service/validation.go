package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/model"
)

// TypicalMaxAge is the age above which an edit is accepted with a hint.
const TypicalMaxAge = 30

// AgeBound names which end of the age range is being edited.
type AgeBound string

const (
	AgeMin AgeBound = "min"
	AgeMax AgeBound = "max"
)

func (b AgeBound) field() string {
	if b == AgeMax {
		return "ageMax"
	}
	return "ageMin"
}

// EditAge normalizes a raw age typed into the filter panel.
//
// An empty string clears the bound. Otherwise the value is parsed, then
// corrected in this order: negative becomes 0, fractions are floored, and
// the result is clamped against other (the opposite bound, if set). Each
// correction adds a notice. Editing the returned value again yields the
// same value.
func EditAge(bound AgeBound, raw string, other *int) (*int, []Notice, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, nil, apperror.ValidationFailed(bound.field(), "Age must be a number")
	}
	if f > math.MaxInt32 {
		return nil, nil, apperror.ValidationFailed(bound.field(), "Age is too large")
	}

	var notices []Notice
	if f < 0 {
		f = 0
		notices = append(notices, Notice{SeverityWarning, "Age cannot be negative"})
	}
	if f != math.Floor(f) {
		f = math.Floor(f)
		notices = append(notices, Notice{SeverityInfo, fmt.Sprintf("Age must be a whole number, using %d", int(f))})
	}

	v, more := ClampAge(bound, int(f), other)
	return &v, append(notices, more...), nil
}

// ClampAge applies the integer rules of EditAge.
func ClampAge(bound AgeBound, v int, other *int) (int, []Notice) {
	var notices []Notice
	if v < 0 {
		v = 0
		notices = append(notices, Notice{SeverityWarning, "Age cannot be negative"})
	}

	if other != nil {
		switch {
		case bound == AgeMin && v > *other:
			v = *other
			notices = append(notices, Notice{SeverityWarning, fmt.Sprintf("Minimum age cannot be greater than maximum age, using %d", v)})
		case bound == AgeMax && v < *other:
			v = *other
			notices = append(notices, Notice{SeverityWarning, fmt.Sprintf("Maximum age cannot be less than minimum age, using %d", v)})
		}
	}

	if v > TypicalMaxAge {
		notices = append(notices, Notice{SeverityInfo, fmt.Sprintf("Dogs rarely live past %d years", TypicalMaxAge)})
	}
	return v, notices
}

// ValidateApply checks criteria before a search is sent.
func ValidateApply(c model.Criteria) error {
	if c.AgeMin != nil && *c.AgeMin < 0 {
		return apperror.ValidationFailed("ageMin", "Age cannot be negative")
	}
	if c.AgeMax != nil && *c.AgeMax < 0 {
		return apperror.ValidationFailed("ageMax", "Age cannot be negative")
	}
	if c.AgeMin != nil && c.AgeMax != nil && *c.AgeMin > *c.AgeMax {
		return apperror.ValidationFailed("ageMin", "Minimum age cannot be greater than maximum age")
	}
	return nil
}

// ResetCriteria returns empty filters that keep the current sort.
func ResetCriteria(sort model.SortOrder) model.Criteria {
	return model.Criteria{
		Breeds:    []string{},
		Locations: []model.Location{},
		Sort:      sort,
	}
}

// normalizeCriteria drops blank and duplicate breeds, keeping first-seen order.
func normalizeCriteria(c model.Criteria) model.Criteria {
	seen := make(map[string]bool, len(c.Breeds))
	breeds := make([]string, 0, len(c.Breeds))
	for _, b := range c.Breeds {
		b = strings.TrimSpace(b)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		breeds = append(breeds, b)
	}
	c.Breeds = breeds
	if c.Locations == nil {
		c.Locations = []model.Location{}
	}
	return c
}
