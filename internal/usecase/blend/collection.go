package blend

import (
	"github.com/kailas-cloud/blendex/internal/domain/facet"
	"github.com/kailas-cloud/blendex/internal/domain/record"
)

// Collection is one blended result window.
type Collection struct {
	records        []record.Record
	total          int
	facets         facet.Set
	primaryCount   int
	secondaryCount int
	offset         int
	limit          int
}

func newCollection(records []record.Record, total int, facets facet.Set, offset, limit int) *Collection {
	c := &Collection{
		records: records,
		total:   total,
		facets:  facets,
		offset:  offset,
		limit:   limit,
	}
	for i := range records {
		switch records[i].Source() {
		case record.SourcePrimary:
			c.primaryCount++
		case record.SourceSecondary:
			c.secondaryCount++
		}
	}
	return c
}

// Records returns the window in blended order.
func (c *Collection) Records() []record.Record { return c.records }

// Total returns the primary total plus the secondary total.
func (c *Collection) Total() int { return c.total }

// Facets returns the merged facet counts.
func (c *Collection) Facets() facet.Set { return c.facets }

// PrimaryCount returns how many window records came from the primary backend.
func (c *Collection) PrimaryCount() int { return c.primaryCount }

// SecondaryCount returns how many window records came from the secondary backend.
func (c *Collection) SecondaryCount() int { return c.secondaryCount }

// Offset returns the requested offset.
func (c *Collection) Offset() int { return c.offset }

// Limit returns the requested limit.
func (c *Collection) Limit() int { return c.limit }

// Len returns the window length, which may be shorter than Limit.
func (c *Collection) Len() int { return len(c.records) }
