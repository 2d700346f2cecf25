package taxonomy

import (
	"strings"
)

// Group is one server-provided category group: a commerce category with the
// furniture codes it covers and its display names.
type Group struct {
	CategoryID int         `json:"categoryId"`
	NameEng    string      `json:"nameEng"`
	NameKr     string      `json:"nameKr"`
	Furnitures []Furniture `json:"furnitures"`
}

// Furniture is one code/label pair inside a category group.
type Furniture struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// AllowedCategory is one entry of the per-image allowlist: the categories
// that actually have recommendations for this specific image.
type AllowedCategory struct {
	ID           int    `json:"id"`
	CategoryName string `json:"categoryName"`
}

// Resolution is the outcome of matching a detected class against the
// catalog.
type Resolution struct {
	CategoryID int
	Code       string
	NameEng    string
	NameKr     string
}

// Catalog indexes the dynamic category taxonomy for lookup by canonical
// key. Build it once per fetched taxonomy; lookups are read-only and safe
// for concurrent use.
type Catalog struct {
	groups []Group
	byKey  map[string]Resolution
}

// CanonicalKey normalizes a label or code into the single lookup form used
// by the catalog: lower-cased with spaces, underscores and hyphens removed.
// Callers that need slash-delimited alternatives split before canonicalizing.
func CanonicalKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '_', '-':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// keyVariants returns the canonical keys a label matches under: the full
// label plus each slash-delimited alternative ("cabinet/shelf" matches
// "cabinet" and "shelf" as well).
func keyVariants(s string) []string {
	variants := []string{CanonicalKey(s)}
	if strings.Contains(s, "/") {
		for _, part := range strings.Split(s, "/") {
			if k := CanonicalKey(part); k != "" {
				variants = append(variants, k)
			}
		}
	}
	return variants
}

// NewCatalog builds the lookup index over the fetched taxonomy. Every
// furniture code and label, each group's display names, and all of their
// slash alternatives are indexed under their canonical keys. On key
// collisions the first group wins, keeping resolution deterministic for a
// given taxonomy payload.
func NewCatalog(groups []Group) *Catalog {
	c := &Catalog{
		groups: groups,
		byKey:  make(map[string]Resolution),
	}
	for _, g := range groups {
		for _, f := range g.Furnitures {
			res := Resolution{CategoryID: g.CategoryID, Code: f.Code, NameEng: g.NameEng, NameKr: g.NameKr}
			for _, key := range keyVariants(f.Code) {
				c.add(key, res)
			}
			for _, key := range keyVariants(f.Label) {
				c.add(key, res)
			}
		}
		groupRes := Resolution{CategoryID: g.CategoryID, NameEng: g.NameEng, NameKr: g.NameKr}
		for _, key := range keyVariants(g.NameEng) {
			c.add(key, groupRes)
		}
		for _, key := range keyVariants(g.NameKr) {
			c.add(key, groupRes)
		}
	}
	return c
}

func (c *Catalog) add(key string, res Resolution) {
	if key == "" {
		return
	}
	if _, exists := c.byKey[key]; !exists {
		c.byKey[key] = res
	}
}

// Resolve matches a detected class name or refined subtype code against the
// catalog: the exact canonical key first, then each slash-delimited
// alternative. It returns false when nothing in the taxonomy matches.
func (c *Catalog) Resolve(label string) (Resolution, bool) {
	for _, key := range keyVariants(label) {
		if res, ok := c.byKey[key]; ok {
			return res, true
		}
	}
	return Resolution{}, false
}

// Groups returns the groups the catalog was built from.
func (c *Catalog) Groups() []Group {
	return c.groups
}

// IsAllowed reports whether a resolved category is present in the image's
// allowlist, matching by category id first and falling back to the
// canonical category name.
func IsAllowed(res Resolution, allowed []AllowedCategory) bool {
	for _, a := range allowed {
		if a.ID == res.CategoryID {
			return true
		}
		if CanonicalKey(a.CategoryName) == CanonicalKey(res.NameEng) {
			return true
		}
	}
	return false
}
