package blend

import "github.com/kailas-cloud/blendex/internal/domain/facet"

// FacetMerger folds secondary facet counts into the primary vocabulary.
type FacetMerger struct {
	table facet.Table
}

// NewFacetMerger creates a merger for the given mapping table.
func NewFacetMerger(table facet.Table) *FacetMerger {
	return &FacetMerger{table: table}
}

// Merge returns primary with the mapped secondary counts added.
// Inputs are not modified. Unmapped secondary fields are dropped.
func (m *FacetMerger) Merge(primary, secondary facet.Set) facet.Set {
	out := primary.Clone()
	if len(secondary) == 0 {
		return out
	}

	accs := make(map[string]*facet.Accumulator)
	var order []string
	seen := make(map[string]bool)

	for _, rule := range m.table {
		if rule.Primary == "" || rule.Secondary == "" || seen[rule.Secondary] {
			continue
		}
		seen[rule.Secondary] = true

		counts, ok := secondary[rule.Secondary]
		if !ok {
			continue
		}
		acc, ok := accs[rule.Primary]
		if !ok {
			acc = facet.NewAccumulator(out[rule.Primary])
			accs[rule.Primary] = acc
			order = append(order, rule.Primary)
		}
		for _, c := range counts {
			value := rule.MapValue(c.Value)
			acc.Add(value, c.Count)
			if rule.Hierarchical {
				for _, anc := range facet.Ancestors(value) {
					acc.Add(anc, c.Count)
				}
			}
		}
	}

	for _, field := range order {
		out[field] = accs[field].Sorted()
	}
	return out
}
