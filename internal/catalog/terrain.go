package catalog

import "strings"

// Terrain classifies surface tags as outdoor by keyword.
type Terrain struct {
	keywords []string
}

// NewTerrain builds a classifier. Keywords match case-insensitively anywhere
// in the tag.
func NewTerrain(keywords ...string) *Terrain {
	t := &Terrain{}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			t.keywords = append(t.keywords, k)
		}
	}
	return t
}

// IsOutdoor reports whether the tag contains an outdoor keyword.
func (t *Terrain) IsOutdoor(surfaceTag string) bool {
	tag := strings.ToLower(surfaceTag)
	for _, k := range t.keywords {
		if strings.Contains(tag, k) {
			return true
		}
	}
	return false
}
