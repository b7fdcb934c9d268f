package diffengine

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/promptops-labs/promptops-go/internal/domain"
)

// DefaultCacheSize bounds the number of cached version-pair diffs.
const DefaultCacheSize = 512

// Cache memoizes diffs between concrete version pairs. Versions are
// immutable, so entries never go stale; the LRU bound alone controls
// memory. Keys must always name resolved version strings, never a
// moving head.
type Cache struct {
	entries *lru.Cache[string, domain.DiffResult]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, domain.DiffResult](size)
	if err != nil {
		return nil, fmt.Errorf("init diff cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

func (c *Cache) Get(artifactID, fromVersion, toVersion string) (domain.DiffResult, bool) {
	if c == nil || c.entries == nil {
		return domain.DiffResult{}, false
	}
	return c.entries.Get(cacheKey(artifactID, fromVersion, toVersion))
}

func (c *Cache) Add(artifactID, fromVersion, toVersion string, result domain.DiffResult) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Add(cacheKey(artifactID, fromVersion, toVersion), result)
}

func cacheKey(artifactID, fromVersion, toVersion string) string {
	return artifactID + "\x00" + fromVersion + "\x00" + toVersion
}
