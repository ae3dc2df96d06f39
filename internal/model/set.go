package model

import (
	"encoding/json"
	"sort"
)

// StringSet is a set of strings keyed by value.
// It is used wherever the pipeline tracks distinct observations
// (header values, site URLs, script fingerprints) because all frequency
// statistics count each value at most once.
type StringSet map[string]struct{}

// NewStringSet creates a StringSet containing the given values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts a value into the set.
func (s StringSet) Add(value string) {
	s[value] = struct{}{}
}

// Has reports whether the value is in the set.
func (s StringSet) Has(value string) bool {
	_, ok := s[value]
	return ok
}

// Len returns the number of distinct values in the set.
func (s StringSet) Len() int {
	return len(s)
}

// Values returns the set contents sorted ascending.
// Sorting keeps output deterministic regardless of insertion order.
func (s StringSet) Values() []string {
	values := make([]string, 0, len(s))
	for v := range s {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Clone returns an independent copy of the set.
func (s StringSet) Clone() StringSet {
	c := make(StringSet, len(s))
	for v := range s {
		c[v] = struct{}{}
	}
	return c
}

// Intersect returns a new set with values present in both sets.
func (s StringSet) Intersect(other StringSet) StringSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(StringSet)
	for v := range small {
		if large.Has(v) {
			out.Add(v)
		}
	}
	return out
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes a JSON array into the set.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}
