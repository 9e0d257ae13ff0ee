package facet

import "fmt"

// Rule maps one secondary facet field onto a primary one.
type Rule struct {
	Primary      string
	Secondary    string
	Values       map[string]string
	Hierarchical bool
}

// NewRule validates and creates a mapping rule.
func NewRule(primary, secondary string, values map[string]string, hierarchical bool) (Rule, error) {
	if primary == "" {
		return Rule{}, fmt.Errorf("primary field is required")
	}
	if secondary == "" {
		return Rule{}, fmt.Errorf("secondary field is required")
	}
	return Rule{Primary: primary, Secondary: secondary, Values: values, Hierarchical: hierarchical}, nil
}

// MapValue translates a secondary value into primary form.
func (r Rule) MapValue(value string) string {
	if mapped, ok := r.Values[value]; ok {
		return mapped
	}
	if r.Hierarchical {
		return HierarchicalRoot(value)
	}
	return value
}

// UnmapValue translates a primary value back into secondary form.
// The second result is false when no mapping produces the value.
func (r Rule) UnmapValue(value string) (string, bool) {
	// Several secondary values may share one primary value; pick the smallest.
	best, found := "", false
	for sec, prim := range r.Values {
		if prim == value && (!found || sec < best) {
			best, found = sec, true
		}
	}
	if found {
		return best, true
	}
	if r.Hierarchical {
		if len(value) > 3 && value[:2] == "0/" && value[len(value)-1] == '/' {
			return value[2 : len(value)-1], true
		}
	}
	return value, false
}

// Table is an ordered list of mapping rules.
type Table []Rule

// BySecondary returns the first usable rule for a secondary field.
func (t Table) BySecondary(field string) (Rule, bool) {
	for _, r := range t {
		if r.Primary == "" || r.Secondary == "" {
			continue
		}
		if r.Secondary == field {
			return r, true
		}
	}
	return Rule{}, false
}

// ByPrimary returns the first usable rule for a primary field.
func (t Table) ByPrimary(field string) (Rule, bool) {
	for _, r := range t {
		if r.Primary == "" || r.Secondary == "" {
			continue
		}
		if r.Primary == field {
			return r, true
		}
	}
	return Rule{}, false
}
