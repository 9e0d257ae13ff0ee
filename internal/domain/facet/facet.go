package facet

import (
	"sort"
	"strconv"
	"strings"
)

// Count is a single facet value with the number of matching records.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Set maps a facet field to its ordered value counts.
type Set map[string][]Count

// Clone returns a deep copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for field, counts := range s {
		cp := make([]Count, len(counts))
		copy(cp, counts)
		out[field] = cp
	}
	return out
}

// Fields returns field names in lexical order.
func (s Set) Fields() []string {
	fields := make([]string, 0, len(s))
	for f := range s {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Accumulator is an insertion-ordered value -> count table for one field.
type Accumulator struct {
	order []string
	index map[string]int
	count []int
}

// NewAccumulator seeds an accumulator with existing counts, keeping their order.
// Duplicate values in the seed are summed.
func NewAccumulator(seed []Count) *Accumulator {
	a := &Accumulator{index: make(map[string]int, len(seed))}
	for _, c := range seed {
		a.Add(c.Value, c.Count)
	}
	return a
}

// Add increments value by n, appending it if unseen.
func (a *Accumulator) Add(value string, n int) {
	if i, ok := a.index[value]; ok {
		a.count[i] += n
		return
	}
	a.index[value] = len(a.order)
	a.order = append(a.order, value)
	a.count = append(a.count, n)
}

// Get returns the count for value.
func (a *Accumulator) Get(value string) int {
	if i, ok := a.index[value]; ok {
		return a.count[i]
	}
	return 0
}

// Len returns the number of distinct values.
func (a *Accumulator) Len() int { return len(a.order) }

// Sorted returns counts ordered by descending count. Ties keep first-seen order.
func (a *Accumulator) Sorted() []Count {
	out := make([]Count, len(a.order))
	for i, v := range a.order {
		out[i] = Count{Value: v, Count: a.count[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// HierarchicalRoot wraps a flat value as a top-level hierarchical token.
func HierarchicalRoot(value string) string {
	return "0/" + value + "/"
}

// Ancestors returns the ancestor tokens of a hierarchical facet value,
// nearest root first. "1/a/b/" has the single ancestor "0/a/".
// Values that are not hierarchical tokens have no ancestors.
func Ancestors(token string) []string {
	if !strings.HasSuffix(token, "/") {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(token, "/"), "/")
	if len(parts) < 3 {
		return nil
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return nil
	}
	segments := parts[1:]
	out := make([]string, 0, len(segments)-1)
	for i := 0; i < len(segments)-1; i++ {
		out = append(out, strconv.Itoa(i)+"/"+strings.Join(segments[:i+1], "/")+"/")
	}
	return out
}
