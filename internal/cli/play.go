package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/events"
	"github.com/matzehuels/explode/pkg/playback"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// playCommand creates the play command, which animates the scheduler in real
// time in an interactive terminal view.
func (c *CLI) playCommand() *cobra.Command {
	var (
		flags    runFlags
		headless bool
	)

	cmd := &cobra.Command{
		Use:   "play [assembly-file]",
		Short: "Animate explosions interactively",
		Long: `Animate the assembly in real time.

Keys: e explode all, i implode all, enter explode the selected part,
backspace implode the selected part, ↑/↓ select, space pause, q quit.

With --headless no terminal UI is shown: the requested explosion is played
in real time and the final offsets are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.loadAssembly(args[0])
			if err != nil {
				return err
			}
			sc, po, err := flags.apply(c)
			if err != nil {
				return err
			}
			if err := po.ValidateAndSetDefaults(); err != nil {
				return err
			}

			rec := &events.Recorder{}
			sched, err := scheduler.New(res.Tree, nil, rec, sc)
			if err != nil {
				return err
			}

			if headless {
				for _, req := range flags.requests() {
					if _, err := sched.Start(req); err != nil {
						printWarning("%s", err)
					}
				}
				driver := &playback.Driver{Scheduler: sched, Options: po}
				ticks, err := driver.Play(cmd.Context())
				printStats(res.Tree.Len(), ticks, false)
				for _, p := range res.Tree.Parts() {
					if p.Offset != 0 {
						printKeyValue(p.Name, fmt.Sprintf("%g", p.Offset))
					}
				}
				return err
			}

			m := newPlayModel(sched, rec, po)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&headless, "headless", false, "play without the terminal UI")
	return cmd
}

// =============================================================================
// playModel - Real-time scheduler view
// =============================================================================

var (
	playActiveStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	playDoneStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	playIdleStyle   = lipgloss.NewStyle().Foreground(colorGray)
	playCursorStyle = lipgloss.NewStyle().Foreground(colorWhite).Bold(true)
	playBarStyle    = lipgloss.NewStyle().Foreground(colorCyan)
)

const playBarWidth = 24

type frameMsg time.Time

// playModel is the bubbletea model driving a scheduler. Ticks happen in
// Update, so the scheduler is only touched from the program's goroutine.
type playModel struct {
	sched  *scheduler.Scheduler
	rec    *events.Recorder
	opts   playback.Options
	parts  []*assembly.Part
	cursor int
	paused bool
	ticks  int
	last   string
}

func newPlayModel(sched *scheduler.Scheduler, rec *events.Recorder, opts playback.Options) *playModel {
	m := &playModel{sched: sched, rec: rec, opts: opts}
	sched.Tree().ForEach(func(p *assembly.Part) { m.parts = append(m.parts, p) })
	return m
}

func (m *playModel) frame() tea.Cmd {
	return tea.Tick(m.opts.Interval(), func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *playModel) Init() tea.Cmd { return m.frame() }

func (m *playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		if !m.paused && m.sched.Running() {
			m.ticks++
			if err := m.sched.Tick(m.opts.Step()); err != nil {
				m.last = err.Error()
			}
		}
		return m, m.frame()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.parts)-1 {
				m.cursor++
			}
		case " ":
			m.paused = !m.paused
		case "e":
			m.submit(scheduler.Request{Sign: scheduler.Forward, WeightFraction: 1})
		case "i":
			m.submit(scheduler.Request{Sign: scheduler.Backward, WeightFraction: 1})
		case "enter":
			if len(m.parts) > 0 {
				m.submit(scheduler.Request{Sign: scheduler.Forward, WeightFraction: 1, Scope: []string{m.parts[m.cursor].Name}})
			}
		case "backspace":
			if len(m.parts) > 0 {
				m.submit(scheduler.Request{Sign: scheduler.Backward, WeightFraction: 1, Scope: []string{m.parts[m.cursor].Name}})
			}
		}
	}
	return m, nil
}

func (m *playModel) submit(req scheduler.Request) {
	t, err := m.sched.Start(req)
	switch {
	case err != nil:
		m.last = err.Error()
	case t.Queued:
		m.last = fmt.Sprintf("%s queued", req.Sign)
	default:
		m.last = fmt.Sprintf("%s started", req.Sign)
	}
}

func (m *playModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("explode"))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render("e explode  i implode  ⏎ target  ⌫ collapse  space pause  q quit"))
	b.WriteString("\n\n")

	nameWidth := 4
	for _, p := range m.parts {
		nameWidth = max(nameWidth, len(p.Name))
	}
	for i, p := range m.parts {
		cursor := "  "
		if i == m.cursor {
			cursor = playCursorStyle.Render("▸ ")
		}
		name := fmt.Sprintf("%-*s", nameWidth, p.Name)
		fmt.Fprintf(&b, "%s%s %s %s\n", cursor, stateStyle(p).Render(name), offsetBar(p), StyleDim.Render(fmt.Sprintf("%6.2f", p.Offset)))
	}

	b.WriteString("\n")
	status := "idle"
	if m.sched.Running() {
		status = "running"
	}
	if m.paused {
		status += " (paused)"
	}
	line := fmt.Sprintf("%s · tick %d · queued %d · events %d", status, m.ticks, m.sched.QueueLen(), m.rec.Len())
	b.WriteString(StyleDim.Render(line))
	if m.last != "" {
		b.WriteString("\n" + StyleDim.Render(m.last))
	}
	return b.String()
}

func stateStyle(p *assembly.Part) lipgloss.Style {
	switch p.State() {
	case assembly.StateActive:
		return playActiveStyle
	case assembly.StateDone:
		return playDoneStyle
	default:
		return playIdleStyle
	}
}

// offsetBar draws p's offset relative to its full travel Min+Max.
func offsetBar(p *assembly.Part) string {
	travel := p.Min + p.Max
	if p.IsContainer() || travel <= 0 {
		return StyleDim.Render(strings.Repeat("·", playBarWidth))
	}
	filled := int(math.Round(math.Min(math.Abs(p.Offset)/travel, 1) * playBarWidth))
	return playBarStyle.Render(strings.Repeat("█", filled)) + StyleDim.Render(strings.Repeat("░", playBarWidth-filled))
}
