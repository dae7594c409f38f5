package model

import (
	"fmt"
	"strings"
)

// Dog is an adoptable dog as returned by POST /dogs.
type Dog struct {
	ID      string `json:"id"`
	Img     string `json:"img"`
	Name    string `json:"name"`
	Age     int    `json:"age"`
	ZipCode string `json:"zip_code"`
	Breed   string `json:"breed"`
}

// Match is the result of POST /dogs/match: the id of one dog chosen by
// the API from a set of favorites.
type Match struct {
	Match string `json:"match"`
}

type SortField string

const (
	SortByBreed SortField = "breed"
	SortByName  SortField = "name"
	SortByAge   SortField = "age"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// SortOrder is one of the six orderings the search API understands.
// Its wire form is "<field>:<direction>", e.g. "breed:asc".
type SortOrder struct {
	Field     SortField
	Direction SortDirection
}

// DefaultSortOrder is used for the first search and after a reset.
var DefaultSortOrder = SortOrder{Field: SortByBreed, Direction: Ascending}

func (s SortOrder) String() string {
	return string(s.Field) + ":" + string(s.Direction)
}

// ParseSortOrder parses the wire form. Unknown fields or directions are
// rejected so a bad sort never reaches the upstream API.
func ParseSortOrder(raw string) (SortOrder, error) {
	field, dir, ok := strings.Cut(raw, ":")
	if !ok {
		return SortOrder{}, fmt.Errorf("sort %q must look like field:direction", raw)
	}

	order := SortOrder{Field: SortField(field), Direction: SortDirection(dir)}
	switch order.Field {
	case SortByBreed, SortByName, SortByAge:
	default:
		return SortOrder{}, fmt.Errorf("unknown sort field %q", field)
	}
	switch order.Direction {
	case Ascending, Descending:
	default:
		return SortOrder{}, fmt.Errorf("unknown sort direction %q", dir)
	}
	return order, nil
}

// MarshalText lets SortOrder travel as a plain string in JSON.
func (s SortOrder) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SortOrder) UnmarshalText(b []byte) error {
	order, err := ParseSortOrder(string(b))
	if err != nil {
		return err
	}
	*s = order
	return nil
}
