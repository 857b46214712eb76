package inventory

import (
	"strings"

	"golang.org/x/text/cases"

	"hardware-inventory/internal/models"
)

// Search returns the groups reduced to items whose name, brand, model,
// serial number or details contain query, ignoring case. Groups without a
// match are omitted. A blank query returns every group.
func (s *Store) Search(query string) models.Groups {
	if strings.TrimSpace(query) == "" {
		return s.Groups()
	}
	fold := cases.Fold()
	needle := fold.String(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(models.Groups)
	for key, items := range s.groups {
		var matched []models.HardwareItem
		for _, it := range items {
			if matches(fold, it, needle) {
				matched = append(matched, it)
			}
		}
		if len(matched) > 0 {
			out[key] = matched
		}
	}
	return out
}

func matches(fold cases.Caser, it models.HardwareItem, needle string) bool {
	for _, field := range []string{it.Name, it.Brand, it.Model, it.SerialNumber, it.Details} {
		if strings.Contains(fold.String(field), needle) {
			return true
		}
	}
	return false
}
