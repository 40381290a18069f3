package styleanalysis

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BasketEntry is one style index of a basket.
type BasketEntry struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Label  string `yaml:"label" json:"label"`
}

// Basket is an ordered list of style indices. The order is the registration
// order used by the engine.
type Basket []BasketEntry

// DefaultBasket returns the iShares ETF proxies for the standard style
// categories.
func DefaultBasket() Basket {
	return Basket{
		{Symbol: "IWB", Label: "Large Cap"},
		{Symbol: "IWD", Label: "Large Cap Value"},
		{Symbol: "IWF", Label: "Large Cap Growth"},
		{Symbol: "IWM", Label: "Small Cap"},
		{Symbol: "IWN", Label: "Small Cap Value"},
		{Symbol: "IWO", Label: "Small Cap Growth"},
		{Symbol: "IWR", Label: "Mid Cap"},
		{Symbol: "EEM", Label: "Emerging Markets"},
		{Symbol: "ICF", Label: "Real Estate"},
		{Symbol: "EFA", Label: "International"},
		{Symbol: "AGG", Label: "Fixed Income"},
	}
}

type basketFile struct {
	Indices Basket `yaml:"indices"`
}

// LoadBasket reads a basket from a YAML file of the form
//
//	indices:
//	  - symbol: IWB
//	    label: Large Cap
func LoadBasket(path string) (Basket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read basket file: %w", err)
	}

	var file basketFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse basket file %s: %w", path, err)
	}

	basket := make(Basket, len(file.Indices))
	for i, entry := range file.Indices {
		basket[i] = BasketEntry{
			Symbol: normalizeSymbol(entry.Symbol),
			Label:  strings.TrimSpace(entry.Label),
		}
	}
	if err := basket.Validate(); err != nil {
		return nil, fmt.Errorf("invalid basket file %s: %w", path, err)
	}
	return basket, nil
}

// Validate checks that the basket is non-empty and has unique symbols.
func (b Basket) Validate() error {
	if len(b) == 0 {
		return ErrNoIndices
	}
	seen := make(map[string]bool, len(b))
	for i, entry := range b {
		if entry.Symbol == "" {
			return fmt.Errorf("basket entry %d has no symbol", i)
		}
		if seen[entry.Symbol] {
			return fmt.Errorf("%w: %s", ErrDuplicateIndex, entry.Symbol)
		}
		seen[entry.Symbol] = true
	}
	return nil
}

// Symbols returns the basket symbols in order.
func (b Basket) Symbols() []string {
	out := make([]string, len(b))
	for i, entry := range b {
		out[i] = entry.Symbol
	}
	return out
}

// Label returns the label of symbol, or the symbol itself when unlabeled.
func (b Basket) Label(symbol string) string {
	for _, entry := range b {
		if entry.Symbol == symbol && entry.Label != "" {
			return entry.Label
		}
	}
	return symbol
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
