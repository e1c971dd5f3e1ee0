package nlu

import "github.com/seenimoa/energybot/pkg/models"

// EntityIndex resolves tokens to canonical commodity names. Keys are lower
// case with spaces removed, so "LNG", "lng" and "Lng" all resolve the same way
// and "natural gas" resolves from the adjacent tokens "natural" "gas".
type EntityIndex struct {
	names map[string]models.Commodity
}

// NewEntityIndex builds the lookup table once from the known commodity set.
func NewEntityIndex(commodities []models.Commodity) *EntityIndex {
	idx := &EntityIndex{names: make(map[string]models.Commodity, len(commodities))}
	for _, c := range commodities {
		idx.names[models.NormalizeName(string(c))] = c
	}
	return idx
}

// Resolve looks up a single name.
func (idx *EntityIndex) Resolve(name string) (models.Commodity, bool) {
	c, ok := idx.names[models.NormalizeName(name)]
	return c, ok
}

// Find returns the first commodity named in tokens. At each position a
// two-token name is tried before the single token.
func (idx *EntityIndex) Find(tokens []string) (models.Commodity, bool) {
	for i, tok := range tokens {
		if i+1 < len(tokens) {
			if c, ok := idx.names[tok+tokens[i+1]]; ok {
				return c, true
			}
		}
		if c, ok := idx.names[tok]; ok {
			return c, true
		}
	}
	return "", false
}
