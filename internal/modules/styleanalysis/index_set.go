package styleanalysis

import (
	"fmt"
)

// IndexSet is an immutable, ordered collection of style indices and their
// aligned return series. Registration order fixes weight positions and the
// tie-break order used during conditioning.
type IndexSet struct {
	ids     []string
	returns map[string][]float64
	periods int
}

// Len returns the number of indices in the set.
func (s *IndexSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the identifiers in registration order.
func (s *IndexSet) IDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.ids...)
}

// Returns returns a copy of the series registered for id.
func (s *IndexSet) Returns(id string) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	r, ok := s.returns[id]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), r...), true
}

// Periods returns the common series length.
func (s *IndexSet) Periods() int {
	if s == nil {
		return 0
	}
	return s.periods
}

// rows returns the series in registration order without copying.
func (s *IndexSet) rows() [][]float64 {
	rows := make([][]float64, len(s.ids))
	for i, id := range s.ids {
		rows[i] = s.returns[id]
	}
	return rows
}

// IndexSetBuilder accumulates indices before an analysis. It is not safe for
// concurrent use; Build produces an independent snapshot each time.
type IndexSetBuilder struct {
	ids     []string
	returns map[string][]float64
}

// NewIndexSetBuilder creates an empty builder.
func NewIndexSetBuilder() *IndexSetBuilder {
	return &IndexSetBuilder{returns: make(map[string][]float64)}
}

// Add registers an index. The series is copied.
func (b *IndexSetBuilder) Add(id string, returns []float64) error {
	if id == "" {
		return fmt.Errorf("index identifier must not be empty")
	}
	if _, exists := b.returns[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateIndex, id)
	}
	if len(returns) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySeries, id)
	}

	b.ids = append(b.ids, id)
	b.returns[id] = append([]float64(nil), returns...)
	return nil
}

// Len returns the number of registered indices.
func (b *IndexSetBuilder) Len() int {
	return len(b.ids)
}

// Build validates the registered indices and returns an immutable IndexSet.
func (b *IndexSetBuilder) Build() (*IndexSet, error) {
	if len(b.ids) == 0 {
		return nil, ErrNoIndices
	}

	periods := len(b.returns[b.ids[0]])
	if periods < 2 {
		return nil, fmt.Errorf("%w: %s has %d", ErrSeriesTooShort, b.ids[0], periods)
	}

	set := &IndexSet{
		ids:     append([]string(nil), b.ids...),
		returns: make(map[string][]float64, len(b.ids)),
		periods: periods,
	}
	for _, id := range b.ids {
		r := b.returns[id]
		if len(r) != periods {
			return nil, fmt.Errorf("%w: %s has %d periods, expected %d", ErrDimensionMismatch, id, len(r), periods)
		}
		set.returns[id] = append([]float64(nil), r...)
	}
	return set, nil
}
