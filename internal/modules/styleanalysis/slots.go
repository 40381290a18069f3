package styleanalysis

import "fmt"

// SlotKind distinguishes the fund row from index rows of the extended matrix.
type SlotKind int

const (
	// FundSlot is the row/column carrying the analysed fund.
	FundSlot SlotKind = iota
	// IndexSlot is a row/column carrying a registered style index.
	IndexSlot
)

// Slot identifies one row/column of the extended covariance matrix.
// Position and Symbol are only meaningful for IndexSlot.
type Slot struct {
	Kind     SlotKind
	Position int    // registration position in the IndexSet
	Symbol   string // index identifier
}

func (s Slot) String() string {
	if s.Kind == FundSlot {
		return "fund"
	}
	return fmt.Sprintf("index[%d]=%s", s.Position, s.Symbol)
}

// layout returns the slot of every extended-matrix row: the fund first, then
// the indices in registration order.
func layout(set *IndexSet) []Slot {
	slots := make([]Slot, 0, set.Len()+1)
	slots = append(slots, Slot{Kind: FundSlot})
	for i, id := range set.ids {
		slots = append(slots, Slot{Kind: IndexSlot, Position: i, Symbol: id})
	}
	return slots
}
