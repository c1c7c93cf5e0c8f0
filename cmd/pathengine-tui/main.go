// Command pathengine-tui is an interactive dashboard over a demo Engine
// running a single grid graph, grounded in the look of the project's
// earlier storage-backed TUI but driving the pathfinding engine instead.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/pathengine/engine"
	"github.com/dd0wney/pathengine/internal/config"
	"github.com/dd0wney/pathengine/internal/graph"
	"github.com/dd0wney/pathengine/internal/graph/demo"
	"github.com/dd0wney/pathengine/internal/logging"
	"github.com/dd0wney/pathengine/path"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	gridBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	dashboardView view = iota
	gridView
	metricsView
)

const viewCount = 3

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	ShiftTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev view")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "new path")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding { return []key.Binding{k.Tab, k.Enter, k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.ShiftTab, k.Enter, k.Quit}}
}

const (
	gridWidth  = 24
	gridHeight = 12
)

type model struct {
	eng  *engine.Engine
	grid *demo.Grid

	currentView view
	help        help.Model
	keys        keyMap
	width       int
	height      int

	startTime time.Time
	message   string
	messageErr bool

	pathsStarted  int
	pathsReturned int
	pathsFailed   int
	lastPath      []graph.NodeIndex
	lastStart     graph.NodeIndex
	lastEnd       graph.NodeIndex
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func buildDemoGrid() *demo.Grid {
	g := demo.NewGrid(gridWidth, gridHeight)
	for y := 0; y < gridHeight-2; y++ {
		g.SetBlocked(gridWidth/2, y, true)
	}
	for x := gridWidth / 4; x < gridWidth/4*3; x++ {
		g.SetBlocked(x, gridHeight/2, true)
	}
	g.SetBlocked(gridWidth/2, gridHeight/2, false)
	return g
}

func initialModel(eng *engine.Engine, g *demo.Grid) model {
	return model{
		eng:       eng,
		grid:      g,
		help:      help.New(),
		keys:      keys,
		startTime: time.Now(),
	}
}

func (m model) Init() tea.Cmd { return tickCmd() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.eng.Tick()
		return m, tickCmd()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount
		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.currentView = viewCount - 1
			} else {
				m.currentView--
			}
		case key.Matches(msg, m.keys.Enter):
			m.startRandomPath()
		}
	}
	return m, nil
}

func (m *model) startRandomPath() {
	start := randomWalkableNode(m.grid)
	end := randomWalkableNode(m.grid)
	id := m.eng.NextPathID()
	search := demo.NewAStarSearch(m.grid, start, end, id)

	p := path.New(id, search, func(p *path.Path) {
		m.pathsReturned++
		if p.Errored() {
			m.pathsFailed++
			m.message = fmt.Sprintf("path %d errored", p.ID)
			m.messageErr = true
			return
		}
		m.lastPath = search.Result
		m.lastStart, m.lastEnd = start, end
		m.message = fmt.Sprintf("path %d found, %d nodes in %s", p.ID, len(search.Result), p.Duration())
		m.messageErr = false
	}, nil)

	if err := m.eng.StartPath(p, false); err != nil {
		m.message = fmt.Sprintf("start failed: %v", err)
		m.messageErr = true
		return
	}
	m.pathsStarted++
}

func randomWalkableNode(g *demo.Grid) graph.NodeIndex {
	for {
		x := rand.Intn(g.Width)
		y := rand.Intn(g.Height)
		n := g.NodeAt(x, y)
		if g.Walkable(n) {
			return n
		}
	}
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("pathengine - interactive demo"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case dashboardView:
		s.WriteString(m.renderDashboard())
	case gridView:
		s.WriteString(m.renderGrid())
	case metricsView:
		s.WriteString(m.renderMetrics())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("x " + m.message))
		} else {
			s.WriteString(successStyle.Render("ok " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Dashboard", "Grid", "Metrics"}
	var rendered []string
	for i, tab := range tabs {
		if view(i) == m.currentView {
			rendered = append(rendered, activeTabStyle.Render(tab))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderDashboard() string {
	uptime := time.Since(m.startTime).Round(time.Second)
	stats := fmt.Sprintf(`Engine
------
Uptime:         %s
Paths started:  %d
Paths returned: %d
Paths failed:   %d`,
		uptime, m.pathsStarted, m.pathsReturned, m.pathsFailed)

	actions := `Quick actions
-------------
[Tab]   Navigate views
[Enter] Start a random path
[q]     Quit`

	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(stats), statsBoxStyle.Render(actions)))
}

func (m model) renderGrid() string {
	inPath := make(map[graph.NodeIndex]bool, len(m.lastPath))
	for _, n := range m.lastPath {
		inPath[n] = true
	}

	var b strings.Builder
	for y := 0; y < m.grid.Height; y++ {
		for x := 0; x < m.grid.Width; x++ {
			n := m.grid.NodeAt(x, y)
			switch {
			case n == m.lastStart:
				b.WriteByte('S')
			case n == m.lastEnd:
				b.WriteByte('E')
			case !m.grid.Walkable(n):
				b.WriteByte('#')
			case inPath[n]:
				b.WriteByte('*')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}

	return contentStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			headerStyle.Render("Grid"),
			gridBoxStyle.Render(b.String())),
	)
}

func (m model) renderMetrics() string {
	content := fmt.Sprintf(`Counters
--------
Paths started:  %d
Paths returned: %d
Paths failed:   %d

This demo passes no Prometheus Registry to engine.New;
these counters are kept by the dashboard itself.`,
		m.pathsStarted, m.pathsReturned, m.pathsFailed)
	return contentStyle.Render(statsBoxStyle.Render(content))
}

func main() {
	logFile, err := os.OpenFile("pathengine-tui.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer logFile.Close()
	logger := logging.NewJSONLogger(logFile, logging.InfoLevel)

	g := buildDemoGrid()
	cfg := config.Default()
	cfg.WorkerHint = config.SingleThreaded

	eng := engine.New(cfg, []graph.Graph{g}, logger, nil)
	if err := eng.Initialize(); err != nil {
		log.Fatalf("initializing engine: %v", err)
	}
	if err := eng.Scan(); err != nil {
		log.Fatalf("scanning graph: %v", err)
	}
	defer eng.Destroy()

	p := tea.NewProgram(initialModel(eng, g), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("running tui: %v", err)
	}
}
