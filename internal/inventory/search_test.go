package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hardware-inventory/internal/kvstore"
)

func TestSearch(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory())

	seed := []struct {
		name, brand, model, serial, details string
	}{
		{"Laptop", "Dell", "XPS 13", "DX-001", "finance team"},
		{"Laptop", "Dell", "XPS 13", "DX-002", ""},
		{"Monitor", "LG", "27UK850", "LG-100", "xyz desk"},
		{"Écran", "AVM", "7590", "AVM-9", ""},
	}
	for _, sd := range seed {
		it := item(sd.name, sd.brand, sd.model, sd.serial, 10)
		it.Details = sd.details
		_, err := s.Save(it)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		query  string
		groups map[string]int // key -> matching item count
	}{
		{"blank returns everything", "  ", map[string]int{"Laptop|Dell|XPS 13": 2, "Monitor|LG|27UK850": 1, "Écran|AVM|7590": 1}},
		{"name case-insensitive", "laptop", map[string]int{"Laptop|Dell|XPS 13": 2}},
		{"brand", "DELL", map[string]int{"Laptop|Dell|XPS 13": 2}},
		{"model substring", "uk8", map[string]int{"Monitor|LG|27UK850": 1}},
		{"serial reduces group", "dx-002", map[string]int{"Laptop|Dell|XPS 13": 1}},
		{"details", "XYZ", map[string]int{"Monitor|LG|27UK850": 1}},
		{"details partial group", "finance", map[string]int{"Laptop|Dell|XPS 13": 1}},
		{"unicode folding", "écran", map[string]int{"Écran|AVM|7590": 1}},
		{"no match", "nothing-here", map[string]int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Search(tt.query)
			assert.Len(t, got, len(tt.groups))
			for key, n := range tt.groups {
				assert.Len(t, got[key], n, key)
			}
		})
	}
}

func TestSearchReturnsCopies(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory())
	_, err := s.Save(item("Laptop", "Dell", "X1", "S1", 50))
	require.NoError(t, err)

	got := s.Search("laptop")
	got["Laptop|Dell|X1"][0].SerialNumber = "mutated"

	again := s.Search("laptop")
	assert.Equal(t, "S1", again["Laptop|Dell|X1"][0].SerialNumber)
}
