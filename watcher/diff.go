package watcher

import "github.com/dmtroyer/auctioneye/models"

// NewItems returns the items whose ids are missing from seen, in the order
// they appear in all. Neither input is modified.
func NewItems(all []models.Item, seen map[string]struct{}) []models.Item {
	var fresh []models.Item
	for _, item := range all {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh
}
