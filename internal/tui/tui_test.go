package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hardware-inventory/internal/inventory"
	"hardware-inventory/internal/kvstore"
	"hardware-inventory/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

func newStore(t *testing.T, items ...models.HardwareItem) *inventory.Store {
	t.Helper()
	s := inventory.New(kvstore.NewMemory())
	require.NoError(t, s.Load(context.Background()))
	t.Cleanup(func() { require.NoError(t, s.Close(context.Background())) })
	for _, it := range items {
		_, err := s.Save(it)
		require.NoError(t, err)
	}
	return s
}

func laptop(serial string, cost int64) models.HardwareItem {
	return models.HardwareItem{
		Name: "Laptop", Brand: "Dell", Model: "X1",
		SerialNumber: serial, MonthlyCost: decimal.NewFromInt(cost),
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	tab       = tea.KeyMsg{Type: tea.KeyTab}
	shiftTab  = tea.KeyMsg{Type: tea.KeyShiftTab}
	backspace = tea.KeyMsg{Type: tea.KeyBackspace}
	esc       = tea.KeyMsg{Type: tea.KeyEsc}
	ctrlS     = tea.KeyMsg{Type: tea.KeyCtrlS}
)

// send feeds msgs one by one and returns the model and the last command.
func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var mi tea.Model
		mi, cmd = m.Update(msg)
		var ok bool
		m, ok = mi.(Model)
		require.True(t, ok, "Update returned %T", mi)
	}
	return m, cmd
}

// deliver runs cmd and feeds its message back into the model.
func deliver(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())
	return m
}

func TestAddItemThroughForm(t *testing.T) {
	store := newStore(t)
	m := New(store)
	assert.Contains(t, m.View(), "No hardware yet")

	m, _ = send(t, m, runes("a"))
	require.Equal(t, formView, m.state)
	assert.Equal(t, inputName, m.form.focusIndex)

	m, cmd := send(t, m,
		runes("Monitor"), tab,
		runes("LG"), tab,
		runes("27UK"), tab,
		runes("M1"), tab,
		runes("12.5"), tab,
		runes("desk 4"),
		ctrlS,
	)
	m = deliver(t, m, cmd)

	assert.Equal(t, listView, m.state)
	assert.Equal(t, "Added Monitor (M1)", m.status)

	groups := store.Groups()
	require.Len(t, groups["Monitor|LG|27UK"], 1)
	got := groups["Monitor|LG|27UK"][0]
	assert.Equal(t, "12.5", got.MonthlyCost.String())
	assert.Equal(t, "desk 4", got.Details)

	it, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, got.ID, it.ID)
}

func TestFormCostLock(t *testing.T) {
	store := newStore(t, laptop("S1", 50))
	m, _ := send(t, New(store), runes("a"),
		runes("Laptop"), tab,
		runes("Dell"), tab,
		runes("X1"),
	)
	require.True(t, m.form.locked)
	assert.Equal(t, "50", m.form.inputs[inputCost].Value())
	assert.Contains(t, m.View(), "(set by group)")

	// serial, then the cost input is skipped
	m, _ = send(t, m, tab)
	assert.Equal(t, inputSerial, m.form.focusIndex)
	m, _ = send(t, m, runes("S2"), tab)
	assert.Equal(t, inputDetails, m.form.focusIndex)

	m, cmd := send(t, m, ctrlS)
	m = deliver(t, m, cmd)
	assert.Equal(t, listView, m.state)

	items := store.Groups()["Laptop|Dell|X1"]
	require.Len(t, items, 2)
	assert.Equal(t, "50", items[1].MonthlyCost.String())
}

func TestFormCostUnlockRestoresTypedCost(t *testing.T) {
	store := newStore(t, laptop("S1", 50))
	m, _ := send(t, New(store), runes("a"),
		runes("Laptop"), tab,
		runes("Dell"), tab,
		runes("X"), tab,
		runes("S2"), tab,
		runes("12"),
	)
	require.False(t, m.form.locked)
	require.Equal(t, inputCost, m.form.focusIndex)

	m, _ = send(t, m, shiftTab, shiftTab, runes("1"))
	require.Equal(t, inputModel, m.form.focusIndex)
	assert.True(t, m.form.locked)
	assert.Equal(t, "50", m.form.inputs[inputCost].Value())

	m, _ = send(t, m, backspace)
	assert.False(t, m.form.locked)
	assert.Equal(t, "12", m.form.inputs[inputCost].Value())
}

func TestFormValidation(t *testing.T) {
	store := newStore(t, laptop("S1", 50))

	t.Run("missing name", func(t *testing.T) {
		m, _ := send(t, New(store), runes("a"), ctrlS)
		assert.Equal(t, formView, m.state)
		assert.True(t, inventory.IsValidation(m.form.err))
		assert.Equal(t, inputName, m.form.focusIndex)
		assert.Contains(t, m.View(), "Name is required")
	})

	t.Run("duplicate serial", func(t *testing.T) {
		m, _ := send(t, New(store), runes("a"),
			runes("Desk"), tab,
			runes("Ikea"), tab,
			runes("Bekant"), tab,
			runes("S1"), tab,
			runes("3"),
			ctrlS,
		)
		assert.Equal(t, formView, m.state)
		assert.ErrorIs(t, m.form.err, inventory.ErrDuplicateSerial)
		assert.Equal(t, inputSerial, m.form.focusIndex)
	})

	t.Run("cost not a number", func(t *testing.T) {
		m, _ := send(t, New(store), runes("a"),
			runes("Desk"), tab,
			runes("Ikea"), tab,
			runes("Bekant"), tab,
			runes("D1"), tab,
			runes("cheap"),
			ctrlS,
		)
		assert.Equal(t, formView, m.state)
		assert.ErrorIs(t, m.form.err, errCostNotNumber)
		assert.Equal(t, inputCost, m.form.focusIndex)
	})

	assert.Equal(t, 1, store.Len())
}

func TestFormCancel(t *testing.T) {
	store := newStore(t)
	m, cmd := send(t, New(store), runes("a"), runes("Laptop"), esc)
	m = deliver(t, m, cmd)
	assert.Equal(t, listView, m.state)
	assert.Zero(t, store.Len())
}

func TestEditMovesItem(t *testing.T) {
	store := newStore(t, laptop("S1", 50))
	m := New(store)

	m, _ = send(t, m, runes("e"))
	require.Equal(t, formView, m.state)
	require.NotNil(t, m.form.editing)
	assert.Equal(t, "Laptop", m.form.inputs[inputName].Value())
	// editing inside its own group keeps the group cost
	assert.True(t, m.form.locked)

	m, _ = send(t, m, tab, tab, backspace, runes("2"))
	require.False(t, m.form.locked)
	assert.Equal(t, "50", m.form.inputs[inputCost].Value())

	m, cmd := send(t, m, tab, tab, backspace, backspace, runes("70"), ctrlS)
	m = deliver(t, m, cmd)
	assert.Equal(t, "Updated Laptop (S1)", m.status)

	groups := store.Groups()
	assert.NotContains(t, groups, "Laptop|Dell|X1")
	require.Len(t, groups["Laptop|Dell|X2"], 1)
	assert.Equal(t, "70", groups["Laptop|Dell|X2"][0].MonthlyCost.String())
}

func TestDeleteConfirmation(t *testing.T) {
	store := newStore(t, laptop("S1", 50), laptop("S2", 50))
	m := New(store)

	m, _ = send(t, m, runes("j"), runes("d"))
	require.Equal(t, confirmDeleteView, m.state)
	assert.Equal(t, "S2", m.toDelete.SerialNumber)
	assert.Contains(t, m.View(), "Delete Laptop · Dell · X1 (S2)?")

	m, _ = send(t, m, runes("n"))
	assert.Equal(t, listView, m.state)
	assert.Equal(t, 2, store.Len())

	m, _ = send(t, m, runes("d"), runes("y"))
	assert.Equal(t, listView, m.state)
	assert.Equal(t, "Deleted Laptop (S2)", m.status)
	assert.Equal(t, 1, store.Len())
	assert.Len(t, m.entries, 1)
	assert.Equal(t, 0, m.cursor)
}

func TestSearchFiltersList(t *testing.T) {
	store := newStore(t,
		laptop("S1", 50),
		models.HardwareItem{Name: "Monitor", Brand: "LG", Model: "27UK", SerialNumber: "M1", Details: "finance"},
	)
	m := New(store)
	require.Len(t, m.entries, 2)

	m, _ = send(t, m, runes("/"), runes("FIN"))
	assert.True(t, m.searching)
	require.Len(t, m.entries, 1)
	assert.Equal(t, "M1", m.entries[0].item.SerialNumber)

	m, _ = send(t, m, runes("zz"))
	assert.Empty(t, m.entries)
	assert.Contains(t, m.View(), `No hardware matches "FINzz".`)

	m, _ = send(t, m, esc)
	assert.False(t, m.searching)
	assert.Empty(t, m.search.Value())
	assert.Len(t, m.entries, 2)
}

func TestInventoryChangedRefreshes(t *testing.T) {
	store := newStore(t, laptop("S1", 50))
	m := New(store)

	_, err := store.Save(laptop("S2", 0))
	require.NoError(t, err)
	assert.Len(t, m.entries, 1)

	m, _ = send(t, m, inventoryChangedMsg{})
	assert.Len(t, m.entries, 2)
	assert.Contains(t, m.View(), "Laptop · Dell · X1")
	assert.Contains(t, m.View(), "50.00/month (2)")
}

func TestQuit(t *testing.T) {
	m := New(newStore(t))
	_, cmd := send(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowKeepsCursorVisible(t *testing.T) {
	var items []models.HardwareItem
	for i := 0; i < 30; i++ {
		items = append(items, laptop(string(rune('A'+i)), 1))
	}
	m := New(newStore(t, items...))
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})

	lines, cursorLine := m.listLines()
	require.Len(t, lines, 31)
	assert.Len(t, m.window(lines, cursorLine), 11)

	for i := 0; i < 29; i++ {
		m, _ = send(t, m, runes("j"))
	}
	lines, cursorLine = m.listLines()
	visible := m.window(lines, cursorLine)
	assert.Equal(t, lines[len(lines)-1], visible[len(visible)-1])
}
