// Package taxonomy caches the category hierarchy read from the
// external ledger. One populated generation is held at a time; it is
// invalidated only explicitly and repopulated lazily on the next read.
package taxonomy

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// UnknownCategory is the name reported for a category id that is not
// in the current generation.
const UnknownCategory = "Unknown"

// Source fetches raw taxonomy lines from the ledger.
type Source interface {
	FetchTaxonomyLines(ctx context.Context) ([]string, error)
}

// Cache is a read-through, single-slot cache over the parsed taxonomy.
// Population and invalidation are mutually exclusive; readers during a
// miss wait for the in-flight fetch.
type Cache struct {
	mu        sync.Mutex
	src       Source
	log       zerolog.Logger
	cats      []Category
	populated bool
	gen       uint64
}

func NewCache(src Source, log zerolog.Logger) *Cache {
	return &Cache{src: src, log: log}
}

// Categories returns the cached categories, fetching from the ledger
// first when the cache is empty. Fetch errors degrade to an empty
// result; the caller reports "no categories" rather than crashing.
func (c *Cache) Categories(ctx context.Context) []Category {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensurePopulated(ctx); err != nil {
		c.log.Error().Err(err).Msg("taxonomy fetch failed")
		return nil
	}
	return c.cats
}

// Subcategories returns the subcategories of the given category id, or
// an empty slice when the id is unknown.
func (c *Cache) Subcategories(ctx context.Context, categoryID int) []Subcategory {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensurePopulated(ctx); err != nil {
		c.log.Error().Err(err).Msg("taxonomy fetch failed")
		return nil
	}
	for i := range c.cats {
		if c.cats[i].ID == categoryID {
			return c.cats[i].Subcategories
		}
	}
	return nil
}

// CategoryName resolves a category id to its name, or UnknownCategory.
func (c *Cache) CategoryName(ctx context.Context, id int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensurePopulated(ctx); err != nil {
		c.log.Error().Err(err).Msg("taxonomy fetch failed")
		return UnknownCategory
	}
	for i := range c.cats {
		if c.cats[i].ID == id {
			return c.cats[i].Name
		}
	}
	return UnknownCategory
}

// SubcategoryName resolves a subcategory id to its name, or "".
func (c *Cache) SubcategoryName(ctx context.Context, id int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensurePopulated(ctx); err != nil {
		c.log.Error().Err(err).Msg("taxonomy fetch failed")
		return ""
	}
	for i := range c.cats {
		for _, sub := range c.cats[i].Subcategories {
			if sub.ID == id {
				return sub.Name
			}
		}
	}
	return ""
}

// Refresh unconditionally re-fetches and re-parses the taxonomy. On
// failure the previous generation stays untouched.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, err := c.src.FetchTaxonomyLines(ctx)
	if err != nil {
		return fmt.Errorf("fetch taxonomy: %w", err)
	}

	c.cats = Parse(lines)
	c.populated = true
	c.gen++
	c.log.Info().Int("categories", len(c.cats)).Uint64("generation", c.gen).Msg("taxonomy refreshed")
	return nil
}

// Invalidate drops the populated generation; the next read fetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cats = nil
	c.populated = false
}

// Generation returns the current populated generation. Ids are only
// comparable within one generation; the wizard records this value when
// a category is picked and rejects commits across a refresh.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// ensurePopulated fetches and parses under the held lock, so exactly
// one fetch is in flight and a refresh is never partially visible.
func (c *Cache) ensurePopulated(ctx context.Context) error {
	if c.populated {
		return nil
	}

	lines, err := c.src.FetchTaxonomyLines(ctx)
	if err != nil {
		return fmt.Errorf("fetch taxonomy: %w", err)
	}

	c.cats = Parse(lines)
	c.populated = true
	c.gen++
	return nil
}
