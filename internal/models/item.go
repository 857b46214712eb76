package models

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Persisted blobs and API payloads carry monthlyCost as a plain JSON number.
	decimal.MarshalJSONWithoutQuotes = true
}

// GroupKeySeparator joins name, brand and model into a group key.
const GroupKeySeparator = "|"

// HardwareItem is one physical unit, identified by its serial number.
type HardwareItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Brand        string          `json:"brand"`
	Model        string          `json:"model"`
	SerialNumber string          `json:"serialNumber"`
	Details      string          `json:"details,omitempty"`
	MonthlyCost  decimal.Decimal `json:"monthlyCost"`
}

// GroupKey returns the composite key of the group the item belongs to.
func (it HardwareItem) GroupKey() string {
	return GroupKey(it.Name, it.Brand, it.Model)
}

// GroupKey builds the `name|brand|model` key.
func GroupKey(name, brand, model string) string {
	return strings.Join([]string{name, brand, model}, GroupKeySeparator)
}

// SplitGroupKey is the inverse of GroupKey. ok is false when key does not have three parts.
func SplitGroupKey(key string) (name, brand, model string, ok bool) {
	parts := strings.SplitN(key, GroupKeySeparator, 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// Groups maps a group key to the ordered items sharing it.
// It is also the shape of the persisted state blob.
type Groups map[string][]HardwareItem

// Clone returns a deep copy; item slices are not shared with g.
func (g Groups) Clone() Groups {
	out := make(Groups, len(g))
	for k, items := range g {
		cp := make([]HardwareItem, len(items))
		copy(cp, items)
		out[k] = cp
	}
	return out
}

// Keys returns the group keys in ascending order.
func (g Groups) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ItemCount returns the number of items over all groups.
func (g Groups) ItemCount() int {
	n := 0
	for _, items := range g {
		n += len(items)
	}
	return n
}

// Cost returns the authoritative monthly cost of a group: the first item's.
func (g Groups) Cost(key string) (decimal.Decimal, bool) {
	items := g[key]
	if len(items) == 0 {
		return decimal.Zero, false
	}
	return items[0].MonthlyCost, true
}
