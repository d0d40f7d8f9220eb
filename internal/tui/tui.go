// Package tui is the offline terminal client: type a prompt, get a
// module, watch it move. It reuses the in-process classifier and the
// same session engine as the server, so no network is needed.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/motionlab/kinema/internal/classify"
	"github.com/motionlab/kinema/internal/preset"
	"github.com/motionlab/kinema/internal/session"
)

const tickInterval = 50 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	explainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Width(72)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)
)

type tickMsg time.Time

type classifiedMsg struct {
	result classify.Result
	err    error
}

// Model is the bubbletea model for the terminal client.
type Model struct {
	input      textinput.Model
	classifier classify.Backend
	sessions   *session.Manager
	presets    *preset.Library

	sess        *session.Session
	explanation string
	err         error

	pickerOpen bool
	pickerIdx  int
	pickerList []preset.Preset

	width  int
	height int
}

// New creates the terminal client model.
func New(classifier classify.Backend, sessions *session.Manager, presets *preset.Library) Model {
	ti := textinput.New()
	ti.Placeholder = "describe a motion, e.g. \"throw a ball at 30 degrees\""
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 70

	return Model{
		input:      ti,
		classifier: classifier,
		sessions:   sessions,
		presets:    presets,
		pickerList: presets.All(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) classifyCmd(prompt string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		result, err := m.classifier.Classify(ctx, prompt)
		return classifiedMsg{result: result, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tick()

	case classifiedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.explanation = msg.result.Explanation
		if msg.result.Module == "" {
			m.stopSession()
			return m, nil
		}
		m.startSession(msg.result.Module, msg.result.Inputs)
		return m, nil

	case tea.KeyMsg:
		if m.pickerOpen {
			return m.updatePicker(msg)
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.stopSession()
			return m, tea.Quit
		case tea.KeyEnter:
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" {
				return m, nil
			}
			m.input.SetValue("")
			return m, m.classifyCmd(prompt)
		case tea.KeyTab:
			m.pickerOpen = true
			return m, nil
		case tea.KeyCtrlP:
			m.togglePause()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyTab:
		m.pickerOpen = false
	case tea.KeyUp:
		if m.pickerIdx > 0 {
			m.pickerIdx--
		}
	case tea.KeyDown:
		if m.pickerIdx < len(m.pickerList)-1 {
			m.pickerIdx++
		}
	case tea.KeyEnter:
		p := m.pickerList[m.pickerIdx]
		m.explanation = p.Description
		m.startSession(p.Module, p.Inputs)
		m.pickerOpen = false
	case tea.KeyCtrlC:
		m.stopSession()
		return *m, tea.Quit
	}
	return *m, nil
}

func (m *Model) startSession(module string, inputs map[string]any) {
	m.stopSession()
	sess, err := m.sessions.Create(module, inputs)
	if err != nil {
		m.err = err
		return
	}
	m.sess = sess
	sess.Start()
}

func (m *Model) stopSession() {
	if m.sess != nil {
		_ = m.sessions.Remove(m.sess.ID())
		m.sess = nil
	}
}

func (m *Model) togglePause() {
	if m.sess == nil {
		return
	}
	if m.sess.State().IsRunning {
		m.sess.Stop()
	} else {
		m.sess.Start()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("kinema"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.pickerOpen {
		b.WriteString(m.pickerView())
		return b.String()
	}

	if m.err != nil {
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n\n")
	}
	if m.explanation != "" {
		b.WriteString(explainStyle.Render(m.explanation))
		b.WriteString("\n\n")
	}

	if m.sess != nil {
		state := m.sess.State()
		header := fmt.Sprintf("%s  t=%.2fs", m.sess.Module(), state.Time)
		if !state.IsRunning {
			header += "  [paused]"
		}
		plot := RenderTrail(m.sess.Trail(), plotWidth(m.width), plotHeight(m.height))
		b.WriteString(panelStyle.Render(header + "\n" + plot))
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render("enter: simulate  tab: presets  ctrl+p: pause  esc: quit"))
	return b.String()
}

func (m Model) pickerView() string {
	var b strings.Builder
	b.WriteString("presets:\n")
	for i, p := range m.pickerList {
		line := fmt.Sprintf("%s  (%s)", p.Name, p.Module)
		if i == m.pickerIdx {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("enter: run  esc: back"))
	return panelStyle.Render(b.String())
}

func plotWidth(termWidth int) int {
	if termWidth <= 0 {
		return 72
	}
	w := termWidth - 6
	if w < 20 {
		w = 20
	}
	if w > 100 {
		w = 100
	}
	return w
}

func plotHeight(termHeight int) int {
	if termHeight <= 0 {
		return 16
	}
	h := termHeight - 12
	if h < 8 {
		h = 8
	}
	if h > 24 {
		h = 24
	}
	return h
}

// Run starts the terminal client and blocks until it exits.
func Run(classifier classify.Backend, sessions *session.Manager, presets *preset.Library) error {
	p := tea.NewProgram(New(classifier, sessions, presets), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
