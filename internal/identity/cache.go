package identity

import (
	"strconv"

	gocache "github.com/patrickmn/go-cache"
)

// Cache memoizes match results per (name, confirmation mode). It is safe for
// concurrent use.
type Cache struct {
	store *gocache.Cache
}

func NewCache() *Cache {
	return &Cache{store: gocache.New(gocache.NoExpiration, 0)}
}

func cacheKey(name string, requireConfirmation bool) string {
	return strconv.FormatBool(requireConfirmation) + "|" + name
}

func (c *Cache) Get(name string, requireConfirmation bool) (MatchResult, bool) {
	v, ok := c.store.Get(cacheKey(name, requireConfirmation))
	if !ok {
		return MatchResult{}, false
	}
	res, ok := v.(MatchResult)
	if !ok {
		return MatchResult{}, false
	}
	res.Suggestions = append([]Suggestion(nil), res.Suggestions...)
	return res, true
}

func (c *Cache) Set(name string, requireConfirmation bool, res MatchResult) {
	c.store.Set(cacheKey(name, requireConfirmation), res, gocache.NoExpiration)
}

// Delete removes name in both confirmation modes.
func (c *Cache) Delete(name string) {
	c.store.Delete(cacheKey(name, true))
	c.store.Delete(cacheKey(name, false))
}

func (c *Cache) Len() int { return c.store.ItemCount() }

func (c *Cache) Flush() { c.store.Flush() }
