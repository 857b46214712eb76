package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"hardware-inventory/internal/inventory"
	"hardware-inventory/internal/models"
)

const (
	inputName = iota
	inputBrand
	inputModel
	inputSerial
	inputCost
	inputDetails
	inputCount
)

const (
	focusCancel = inputCount
	focusSave   = inputCount + 1
	focusTotal  = inputCount + 2
)

var errCostNotNumber = errors.New("monthly cost must be a number")

// itemSavedMsg is sent once the form stored an item.
type itemSavedMsg struct {
	item  models.HardwareItem
	isNew bool
}

// backToListMsg closes the form without saving.
type backToListMsg struct{}

type itemForm struct {
	store      Store
	inputs     []textinput.Model
	focusIndex int
	editing    *models.HardwareItem // nil when adding

	// The cost input mirrors the group's cost while the name/brand/model
	// triple names an existing group; userCost keeps what was typed before.
	locked     bool
	lockedCost decimal.Decimal
	userCost   string

	err  error
	help help.Model
}

func newItemForm(store Store, edit *models.HardwareItem) itemForm {
	f := itemForm{
		store:  store,
		inputs: make([]textinput.Model, inputCount),
		help:   help.New(),
	}

	for i := range f.inputs {
		t := textinput.New()
		t.Cursor.Style = focusedStyle
		t.CharLimit = 128
		t.Width = 40

		switch i {
		case inputName:
			t.Prompt = "Name:          "
			t.Placeholder = "Laptop"
		case inputBrand:
			t.Prompt = "Brand:         "
			t.Placeholder = "Dell"
		case inputModel:
			t.Prompt = "Model:         "
			t.Placeholder = "XPS 13"
		case inputSerial:
			t.Prompt = "Serial:        "
			t.Placeholder = "SN-0001"
		case inputCost:
			t.Prompt = "Monthly cost:  "
			t.Placeholder = "0.00"
		case inputDetails:
			t.Prompt = "Details:       "
			t.Placeholder = "optional"
		}
		f.inputs[i] = t
	}

	if edit != nil {
		it := *edit
		f.editing = &it
		f.inputs[inputName].SetValue(it.Name)
		f.inputs[inputBrand].SetValue(it.Brand)
		f.inputs[inputModel].SetValue(it.Model)
		f.inputs[inputSerial].SetValue(it.SerialNumber)
		f.inputs[inputCost].SetValue(it.MonthlyCost.String())
		f.inputs[inputDetails].SetValue(it.Details)
	}

	f.refreshCostLock()
	f.setFocus(inputName)
	return f
}

func (f itemForm) Init() tea.Cmd {
	return textinput.Blink
}

func (f itemForm) Update(msg tea.Msg) (itemForm, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, formKeys.Cancel):
			return f, backToList
		case key.Matches(msg, formKeys.Save):
			return f.save()
		case key.Matches(msg, formKeys.Next):
			cmd := f.move(1)
			return f, cmd
		case key.Matches(msg, formKeys.Prev):
			cmd := f.move(-1)
			return f, cmd
		case key.Matches(msg, formKeys.Submit):
			switch f.focusIndex {
			case focusCancel:
				return f, backToList
			case focusSave:
				return f.save()
			default:
				cmd := f.move(1)
				return f, cmd
			}
		}
	}

	if f.focusIndex >= inputCount {
		return f, nil
	}

	before := f.groupFields()
	var cmd tea.Cmd
	f.inputs[f.focusIndex], cmd = f.inputs[f.focusIndex].Update(msg)

	switch {
	case f.focusIndex == inputCost:
		f.userCost = f.inputs[inputCost].Value()
	case f.groupFields() != before:
		f.refreshCostLock()
	}
	return f, cmd
}

func (f itemForm) groupFields() [3]string {
	return [3]string{
		f.inputs[inputName].Value(),
		f.inputs[inputBrand].Value(),
		f.inputs[inputModel].Value(),
	}
}

// refreshCostLock asks the store whether the current name/brand/model
// fixes the monthly cost and updates the cost input accordingly.
func (f *itemForm) refreshCostLock() {
	g := f.groupFields()
	cost, locked := f.store.CostLock(g[0], g[1], g[2])

	switch {
	case locked:
		if !f.locked {
			f.userCost = f.inputs[inputCost].Value()
		}
		f.locked, f.lockedCost = true, cost
		f.inputs[inputCost].SetValue(cost.String())
	case f.locked:
		f.locked = false
		f.inputs[inputCost].SetValue(f.userCost)
	}
	f.styleInputs()
}

func (f *itemForm) move(delta int) tea.Cmd {
	next := f.focusIndex
	for {
		next = (next + delta + focusTotal) % focusTotal
		if next == inputCost && f.locked {
			continue
		}
		break
	}
	return f.setFocus(next)
}

func (f *itemForm) setFocus(index int) tea.Cmd {
	f.focusIndex = index
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == index {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	f.styleInputs()
	return cmd
}

func (f *itemForm) styleInputs() {
	for i := range f.inputs {
		style := lipgloss.NewStyle()
		switch {
		case i == inputCost && f.locked:
			style = disabledStyle
		case i == f.focusIndex:
			style = focusedStyle
		}
		f.inputs[i].TextStyle = style
		f.inputs[i].PromptStyle = style
	}
}

func (f itemForm) save() (itemForm, tea.Cmd) {
	item := models.HardwareItem{
		Name:         f.inputs[inputName].Value(),
		Brand:        f.inputs[inputBrand].Value(),
		Model:        f.inputs[inputModel].Value(),
		SerialNumber: f.inputs[inputSerial].Value(),
		Details:      f.inputs[inputDetails].Value(),
	}
	if f.editing != nil {
		item.ID = f.editing.ID
	}

	if f.locked {
		item.MonthlyCost = f.lockedCost
	} else if raw := strings.TrimSpace(f.inputs[inputCost].Value()); raw != "" {
		cost, err := decimal.NewFromString(raw)
		if err != nil {
			f.err = errCostNotNumber
			cmd := f.setFocus(inputCost)
			return f, cmd
		}
		item.MonthlyCost = cost
	}

	saved, err := f.store.Save(item)
	if err != nil {
		f.err = err
		var ve *inventory.ValidationError
		if errors.As(err, &ve) {
			if idx, ok := fieldInput[ve.Field]; ok && !(idx == inputCost && f.locked) {
				cmd := f.setFocus(idx)
				return f, cmd
			}
		}
		return f, nil
	}

	isNew := f.editing == nil
	return f, func() tea.Msg { return itemSavedMsg{item: saved, isNew: isNew} }
}

var fieldInput = map[string]int{
	inventory.FieldName:         inputName,
	inventory.FieldBrand:        inputBrand,
	inventory.FieldModel:        inputModel,
	inventory.FieldSerialNumber: inputSerial,
	inventory.FieldMonthlyCost:  inputCost,
}

func backToList() tea.Msg { return backToListMsg{} }

func (f itemForm) View() string {
	var rows []string

	if f.editing != nil {
		rows = append(rows, titleStyle.Render("Edit Hardware"))
	} else {
		rows = append(rows, titleStyle.Render("Add Hardware"))
	}
	rows = append(rows, "")

	for i := range f.inputs {
		line := f.inputs[i].View()
		if i == inputCost && f.locked {
			line = lipgloss.JoinHorizontal(lipgloss.Top, line, " ", helpStyle.Render("(set by group)"))
		}
		rows = append(rows, line)
	}

	cancel, save := buttonStyle.Render("Cancel"), buttonStyle.Render("Save")
	switch f.focusIndex {
	case focusCancel:
		cancel = activeButtonStyle.Render("Cancel")
	case focusSave:
		save = activeButtonStyle.Render("Save")
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cancel, save))

	if f.err != nil {
		rows = append(rows, "", errorStyle.Render(fmt.Sprintf("Error: %v", f.err)))
	}

	rows = append(rows, "", f.help.View(formKeys))
	return dialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
