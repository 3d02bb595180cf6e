// Package ui renders the live terminal dashboard behind `symdex status
// --watch`: corpus counts, query metrics, and a queries-per-second
// sparkline polled from a running daemon.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/symdex/internal/daemon"
	"github.com/Aman-CERP/symdex/internal/search"
	"github.com/Aman-CERP/symdex/internal/telemetry"
)

// DefaultInterval is the polling period when none is given.
const DefaultInterval = time.Second

// StatusSource is polled for daemon status. *daemon.Client implements it.
type StatusSource interface {
	Status(ctx context.Context) (*daemon.StatusResult, error)
}

// DashboardOptions configures RunDashboard.
type DashboardOptions struct {
	Interval time.Duration
	Output   io.Writer
	Input    io.Reader
	NoColor  bool
}

// RunDashboard shows the dashboard until the user quits or ctx ends.
func RunDashboard(ctx context.Context, source StatusSource, opts DashboardOptions) error {
	m := newDashboardModel(ctx, source, opts)

	progOpts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}

	_, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type statusMsg struct {
	status *daemon.StatusResult
	at     time.Time
}

type statusErrMsg struct{ err error }

type pollMsg time.Time

// latencyLabels orders the histogram buckets for display.
var latencyLabels = []struct {
	bucket telemetry.LatencyBucket
	label  string
}{
	{telemetry.BucketP1, "<1ms"},
	{telemetry.BucketP10, "1-10ms"},
	{telemetry.BucketP50, "10-50ms"},
	{telemetry.BucketP100, "50-100ms"},
	{telemetry.BucketP1000, "≥100ms"},
}

type dashboardModel struct {
	ctx      context.Context
	source   StatusSource
	interval time.Duration
	styles   Styles
	spinner  spinner.Model
	rate     *Sparkline

	status    *daemon.StatusResult
	err       error
	lastTotal int64
	lastAt    time.Time

	width    int
	quitting bool
}

func newDashboardModel(ctx context.Context, source StatusSource, opts DashboardOptions) *dashboardModel {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	styles := DefaultStyles()
	if opts.NoColor {
		styles = NoColorStyles()
	}

	return &dashboardModel{
		ctx:      ctx,
		source:   source,
		interval: interval,
		styles:   styles,
		spinner:  s,
		rate:     NewSparkline(120),
		width:    80,
	}
}

// Init implements tea.Model.
func (m *dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch())
}

func (m *dashboardModel) fetch() tea.Cmd {
	return func() tea.Msg {
		status, err := m.source.Status(m.ctx)
		if err != nil {
			return statusErrMsg{err: err}
		}
		return statusMsg{status: status, at: time.Now()}
	}
}

func (m *dashboardModel) poll() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

// Update implements tea.Model.
func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case statusMsg:
		m.observe(msg.status, msg.at)
		return m, m.poll()

	case statusErrMsg:
		m.err = msg.err
		return m, m.poll()

	case pollMsg:
		return m, m.fetch()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// observe stores a fresh status and adds the query rate since the last
// one to the sparkline.
func (m *dashboardModel) observe(status *daemon.StatusResult, at time.Time) {
	m.status = status
	m.err = nil
	if status == nil || status.Metrics == nil {
		return
	}

	total := status.Metrics.TotalQueries
	if !m.lastAt.IsZero() {
		if dt := at.Sub(m.lastAt).Seconds(); dt > 0 {
			m.rate.Add(float64(total-m.lastTotal) / dt)
		}
	}
	m.lastTotal, m.lastAt = total, at
}

// View implements tea.Model.
func (m *dashboardModel) View() string {
	if m.quitting {
		return ""
	}
	if m.status == nil {
		if m.err != nil {
			return m.styles.Error.Render("daemon unreachable: "+m.err.Error()) + "\n" +
				m.styles.Dim.Render("retrying every "+m.interval.String()+" • q to quit") + "\n"
		}
		return m.spinner.View() + " Connecting to symdex daemon...\n"
	}

	width := max(m.width-4, 40)
	divider := m.styles.Border.Render(strings.Repeat("─", width-4))

	sections := []string{
		m.renderCorpus(),
		divider,
		m.renderQueries(),
	}
	if m.status.Metrics != nil {
		sections = append(sections, divider, m.renderRate(width-6))
	}
	if m.err != nil {
		sections = append(sections, m.styles.Warning.Render("last refresh failed: "+m.err.Error()))
	}

	title := m.styles.Header.Render(fmt.Sprintf("symdex • pid %d • up %s", m.status.PID, m.status.Uptime))
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(0, 1).
		Width(width).
		Render(title + "\n" + strings.Join(sections, "\n"))

	return panel + "\n" + m.styles.Dim.Render("q to quit") + "\n"
}

func (m *dashboardModel) field(label string, value any) string {
	return m.styles.Label.Render(label) + " " + m.styles.Value.Render(fmt.Sprint(value))
}

func (m *dashboardModel) renderCorpus() string {
	c := m.status.Corpus
	source := c.Source
	if source == "" {
		source = "(none)"
	}
	counts := strings.Join([]string{
		m.field("modules", c.Modules),
		m.field("types", c.Types),
		m.field("members", c.Members),
	}, "  ")
	return counts + "\n" + m.styles.Label.Render("source") + " " + source
}

func (m *dashboardModel) renderQueries() string {
	metrics := m.status.Metrics
	if metrics == nil {
		return m.styles.Dim.Render("telemetry disabled")
	}

	summary := strings.Join([]string{
		m.field("queries", metrics.TotalQueries),
		m.field("zero-result", fmt.Sprintf("%.1f%%", metrics.ZeroResultPercentage())),
		m.field("repeats", metrics.ExactRepeatCount),
	}, "  ")

	ops := strings.Join([]string{
		m.field(search.OpBroad, metrics.OperationCounts[search.OpBroad]),
		m.field(search.OpResolve, metrics.OperationCounts[search.OpResolve]),
		m.field(search.OpReferences, metrics.OperationCounts[search.OpReferences]),
	}, "  ")

	latency := make([]string, 0, len(latencyLabels))
	for _, l := range latencyLabels {
		latency = append(latency, m.field(l.label, metrics.LatencyDistribution[l.bucket]))
	}

	return summary + "\n" + ops + "\n" + strings.Join(latency, "  ")
}

func (m *dashboardModel) renderRate(width int) string {
	label := fmt.Sprintf(" queries/s (peak %.1f)", m.rate.Max())
	sparkWidth := max(width-len(label), 10)
	return m.styles.Sparkline.Render(m.rate.Render(sparkWidth)) + m.styles.Dim.Render(label)
}
