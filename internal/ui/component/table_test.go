package component

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestTableSelection(t *testing.T) {
	tbl := NewTable(TableColumn{Header: "Symbol", Width: 8, Align: lipgloss.Left})
	tbl.SetRows([][]string{{"A"}, {"B"}, {"C"}})

	tbl.MoveUp()
	assert.Equal(t, 0, tbl.Selected())
	tbl.MoveDown().MoveDown().MoveDown()
	assert.Equal(t, 2, tbl.Selected())

	tbl.SetRows([][]string{{"A"}})
	assert.Equal(t, 0, tbl.Selected(), "selection clamps when rows shrink")

	tbl.SetRows(nil)
	assert.Equal(t, 0, tbl.Selected())
	assert.Zero(t, tbl.Len())
}

func TestTableTruncates(t *testing.T) {
	tbl := NewTable(TableColumn{Header: "Name", Width: 6, Align: lipgloss.Left})
	tbl.SetRows([][]string{{"Spaghetti"}})

	view := tbl.View()
	assert.Contains(t, view, "Spa...")
	assert.False(t, strings.Contains(view, "Spaghetti"))
}
