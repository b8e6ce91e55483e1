package ui

import (
	"bytes"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type panicModel struct{ inView bool }

func (p panicModel) Init() tea.Cmd { return nil }

func (p panicModel) Update(tea.Msg) (tea.Model, tea.Cmd) { panic("update exploded") }

func (p panicModel) View() string {
	if p.inView {
		panic("view exploded")
	}
	return "ok"
}

type quitModel struct{}

func (quitModel) Init() tea.Cmd { return tea.Quit }

func (quitModel) Update(tea.Msg) (tea.Model, tea.Cmd) { return quitModel{}, nil }

func (quitModel) View() string { return "" }

func headless() []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithInput(new(bytes.Buffer)),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	}
}

func TestSafeUIWrapperRecovers(t *testing.T) {
	w := NewSafeUIWrapper(panicModel{}, zaptest.NewLogger(t))

	model, cmd := w.Update(tea.KeyMsg{})
	assert.Same(t, w, model)
	assert.Nil(t, cmd)
	assert.Equal(t, "ok", w.View())

	w = NewSafeUIWrapper(panicModel{inView: true}, zaptest.NewLogger(t))
	assert.Contains(t, w.View(), "View crashed")
}

func TestRecoveryHandlerRestarts(t *testing.T) {
	attempts := 0
	rh := NewRecoveryHandler(zaptest.NewLogger(t), func() (tea.Model, []tea.ProgramOption) {
		attempts++
		if attempts < 3 {
			panic("startup failed")
		}
		return quitModel{}, headless()
	}, WithRestarts(5, 0))

	require.NoError(t, rh.RunWithRecovery())
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, rh.GetRestartCount())
}

func TestRecoveryHandlerGivesUp(t *testing.T) {
	rh := NewRecoveryHandler(zaptest.NewLogger(t), func() (tea.Model, []tea.ProgramOption) {
		panic("always")
	}, WithRestarts(2, 0))

	err := rh.RunWithRecovery()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many times")
}
