package domain

import (
	"slices"
	"strings"
)

// Paper is a candidate item fetched from the paper index.
type Paper struct {
	ID            string   `validate:"required"`
	URL           string   `validate:"required"`
	Title         string   `validate:"required"`
	Abstract      string   `validate:"required"`
	Authors       []string `validate:"min=1,dive,required"`
	PublishedDate string
	Query         string
}

// Topic is a configured search topic and the scanner strategy that serves it.
type Topic struct {
	Name    string
	Scanner string
	Query   string
}

// SearchTerm returns the query handed to the scanner, falling back to the topic name.
func (t Topic) SearchTerm() string {
	if q := strings.TrimSpace(t.Query); q != "" {
		return q
	}
	return strings.TrimSpace(t.Name)
}

// IDSet is the set of paper identifiers that were already processed.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given ids, ignoring blanks.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	set.Add(ids...)
	return set
}

// Has reports membership. Safe on a nil set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts ids, skipping blank values.
func (s IDSet) Add(ids ...string) {
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		s[id] = struct{}{}
	}
}

// Len returns the number of ids.
func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Union returns a new set holding the ids of both sets.
func (s IDSet) Union(other IDSet) IDSet {
	out := make(IDSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}
