package converter

import (
	"slices"

	"github.com/tphakala/via2coco/internal/coco"
	"github.com/tphakala/via2coco/internal/errors"
)

// DefaultFirstCategoryID is the id given to the first category name.
const DefaultFirstCategoryID = 1

// Categories maps category names to ids for one run. It is immutable
// after construction.
type Categories struct {
	names   []string
	records []coco.Category
	lookup  map[string]int
}

// NewCategories enumerates names from firstID. Every name gets a record,
// including repeats; the lookup of a repeated name resolves to its last
// occurrence. The first name is the default for unlabeled regions.
func NewCategories(names []string, firstID int) (*Categories, error) {
	if len(names) == 0 {
		return nil, errors.New(errors.NewStd("at least one category name is required")).
			Component(componentConverter).
			Category(errors.CategoryValidation).
			Build()
	}

	c := &Categories{
		names:   slices.Clone(names),
		records: make([]coco.Category, 0, len(names)),
		lookup:  make(map[string]int, len(names)),
	}
	for i, name := range names {
		id := firstID + i
		c.lookup[name] = id
		c.records = append(c.records, coco.Category{ID: id, Name: name})
	}

	return c, nil
}

// Records returns a copy of the category records in input order.
func (c *Categories) Records() []coco.Category {
	return slices.Clone(c.records)
}

// Names returns a copy of the input names.
func (c *Categories) Names() []string {
	return slices.Clone(c.names)
}

// Default returns the name used for regions without a label.
func (c *Categories) Default() string {
	return c.names[0]
}

// Lookup returns the id for name.
func (c *Categories) Lookup(name string) (int, bool) {
	id, ok := c.lookup[name]
	return id, ok
}

// Duplicates returns names given more than once, in first-seen order.
func (c *Categories) Duplicates() []string {
	seen := make(map[string]int, len(c.names))
	var dups []string
	for _, name := range c.names {
		seen[name]++
		if seen[name] == 2 {
			dups = append(dups, name)
		}
	}
	return dups
}
