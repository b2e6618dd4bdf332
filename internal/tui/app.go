package tui

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/osoriano/pitwall/internal/api"
	"github.com/osoriano/pitwall/internal/engine"
	"github.com/osoriano/pitwall/internal/models"
	"github.com/osoriano/pitwall/internal/timeline"
)

type View int

const (
	ViewRunList View = iota
	ViewRunDetail
	ViewDecisions
	ViewFiles
	ViewFileContent
	ViewGatePrompt
	ViewNewRun
)

type App struct {
	client *api.Client
	engine *engine.Engine
	table  timeline.AgentPhases

	view        View
	runs        []models.RunSummary
	selectedIdx int

	current engine.View

	fileIdx     int
	fileContent *models.FileEntry

	pendingDecision models.Decision
	feedback        textinput.Model

	brief textinput.Model

	width  int
	height int
	err    error
}

func NewApp(client *api.Client, eng *engine.Engine) *App {
	feedback := textinput.New()
	feedback.Placeholder = "feedback (optional)"
	feedback.CharLimit = 500

	brief := textinput.New()
	brief.Placeholder = "project brief"
	brief.CharLimit = 2000

	return &App{
		client:   client,
		engine:   eng,
		table:    timeline.DefaultAgentPhases(),
		view:     ViewRunList,
		feedback: feedback,
		brief:    brief,
	}
}

// WatchRun drops the app straight into the detail view for one run,
// used by `pitwall watch <run-id>`.
func (a *App) WatchRun(runID string) {
	a.engine.Activate(runID)
	a.view = ViewRunDetail
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadRuns, a.tickCmd())
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type tickMsg time.Time

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tickMsg:
		// The engine polls on its own schedule; the tick only refreshes
		// the rendered snapshot.
		a.current = a.engine.View()
		if a.view == ViewRunList {
			return a, tea.Batch(a.loadRuns, a.tickCmd())
		}
		return a, a.tickCmd()

	case runsLoadedMsg:
		a.runs = msg.runs
		a.err = msg.err
		return a, nil

	case runStartedMsg:
		a.err = msg.err
		if msg.err == nil && msg.run != nil {
			a.engine.Activate(msg.run.ID)
			a.current = a.engine.View()
			a.view = ViewRunDetail
		}
		return a, nil

	case decisionSubmittedMsg:
		a.err = msg.err
		a.current = a.engine.View()
		a.view = ViewRunDetail
		return a, nil

	case fileLoadedMsg:
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.fileContent = msg.file
			a.view = ViewFileContent
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.view {
	case ViewRunList:
		return a.handleRunListKey(msg)
	case ViewRunDetail:
		return a.handleRunDetailKey(msg)
	case ViewDecisions, ViewFileContent:
		return a.handleBackKey(msg)
	case ViewFiles:
		return a.handleFilesKey(msg)
	case ViewGatePrompt:
		return a.handleGatePromptKey(msg)
	case ViewNewRun:
		return a.handleNewRunKey(msg)
	}
	return a, nil
}

func (a *App) handleRunListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "up", "k":
		if a.selectedIdx > 0 {
			a.selectedIdx--
		}

	case "down", "j":
		if a.selectedIdx < len(a.runs)-1 {
			a.selectedIdx++
		}

	case "enter":
		if len(a.runs) > 0 && a.selectedIdx < len(a.runs) {
			a.engine.Activate(a.runs[a.selectedIdx].ID)
			a.current = a.engine.View()
			a.view = ViewRunDetail
		}

	case "n":
		a.brief.SetValue("")
		a.brief.Focus()
		a.view = ViewNewRun

	case "r":
		return a, a.loadRuns
	}

	return a, nil
}

func (a *App) handleRunDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		a.engine.Deactivate()
		a.view = ViewRunList
		return a, a.loadRuns

	case "ctrl+c":
		return a, tea.Quit

	case "d":
		a.view = ViewDecisions

	case "f":
		a.fileIdx = 0
		a.view = ViewFiles

	case "a", "c", "x":
		if !a.atGate() {
			return a, nil
		}
		switch msg.String() {
		case "a":
			a.pendingDecision = models.DecisionApproved
		case "c":
			a.pendingDecision = models.DecisionChangesRequested
		case "x":
			a.pendingDecision = models.DecisionRejected
		}
		a.feedback.SetValue("")
		a.feedback.Focus()
		a.view = ViewGatePrompt
	}

	return a, nil
}

// atGate reports whether the merged view is waiting at a HITL gate with
// no decision already pending.
func (a *App) atGate() bool {
	run := a.current.Run
	return run != nil &&
		run.Status == models.RunStatusWaitingHITL &&
		run.CurrentPhase.IsGate() &&
		!a.current.Pending
}

func (a *App) handleBackKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		if a.view == ViewFileContent {
			a.fileContent = nil
			a.view = ViewFiles
		} else {
			a.view = ViewRunDetail
		}

	case "ctrl+c":
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) handleFilesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		a.view = ViewRunDetail

	case "ctrl+c":
		return a, tea.Quit

	case "up", "k":
		if a.fileIdx > 0 {
			a.fileIdx--
		}

	case "down", "j":
		if a.fileIdx < len(a.current.Files)-1 {
			a.fileIdx++
		}

	case "enter":
		if len(a.current.Files) > 0 && a.fileIdx < len(a.current.Files) {
			return a, a.loadFile(a.current.RunID, a.current.Files[a.fileIdx].Path)
		}
	}

	return a, nil
}

func (a *App) handleGatePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.feedback.Blur()
		a.view = ViewRunDetail
		return a, nil

	case "ctrl+c":
		return a, tea.Quit

	case "enter":
		decision := a.pendingDecision
		feedback := a.feedback.Value()
		a.feedback.Blur()
		return a, a.submitDecision(decision, feedback)
	}

	var cmd tea.Cmd
	a.feedback, cmd = a.feedback.Update(msg)
	return a, cmd
}

func (a *App) handleNewRunKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.brief.Blur()
		a.view = ViewRunList
		return a, nil

	case "ctrl+c":
		return a, tea.Quit

	case "enter":
		brief := strings.TrimSpace(a.brief.Value())
		if brief == "" {
			return a, nil
		}
		a.brief.Blur()
		return a, a.startRun(brief)
	}

	var cmd tea.Cmd
	a.brief, cmd = a.brief.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	switch a.view {
	case ViewRunList:
		return a.viewRunList()
	case ViewRunDetail:
		return a.viewRunDetail()
	case ViewDecisions:
		return a.viewDecisions()
	case ViewFiles:
		return a.viewFiles()
	case ViewFileContent:
		return a.viewFileContent()
	case ViewGatePrompt:
		return a.viewGatePrompt()
	case ViewNewRun:
		return a.viewNewRun()
	}
	return ""
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	statusRunning   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	statusWaiting   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusErr       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	phaseDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	phaseCurrent = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	phasePending = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

func (a *App) viewRunList() string {
	s := titleStyle.Render("Pitwall") + "\n\n"

	if a.err != nil {
		s += statusErr.Render(fmt.Sprintf("Error: %v", a.err)) + "\n\n"
	}

	if len(a.runs) == 0 {
		s += "No runs. Press 'n' to start one.\n"
	} else {
		s += "Pipeline Runs\n"
		s += "─────────────\n"

		for i, run := range a.runs {
			line := fmt.Sprintf("%-10s %s  %-12s %s",
				run.ID, a.formatStatus(run.Status), run.CurrentPhase, truncate(run.Brief, 40))
			if i == a.selectedIdx {
				line = selectedStyle.Render("▶ " + line)
			} else {
				line = "  " + line
			}
			s += line + "\n"
		}
	}

	s += "\n" + helpStyle.Render("[enter] watch  [n] new run  [r] refresh  [q] quit")

	return s
}

func (a *App) formatStatus(status models.RunStatus) string {
	switch status {
	case models.RunStatusRunning:
		return statusRunning.Render("● running")
	case models.RunStatusWaitingHITL:
		return statusWaiting.Render("⏸ waiting")
	case models.RunStatusCompleted:
		return statusCompleted.Render("✓ completed")
	case models.RunStatusError:
		return statusErr.Render("✗ error")
	default:
		return string(status)
	}
}

func (a *App) viewRunDetail() string {
	v := a.current

	if v.Absent {
		s := titleStyle.Render("Run "+v.RunID) + "\n\n"
		s += statusErr.Render("This run no longer exists on the backend.") + "\n"
		s += dimStyle.Render("Polling stopped. Go back and re-enter to retry.") + "\n"
		s += "\n" + helpStyle.Render("[esc] back  [ctrl+c] quit")
		return s
	}

	run := v.Run
	if run == nil {
		return titleStyle.Render("Run "+v.RunID) + "\n\nWaiting for first poll...\n\n" +
			helpStyle.Render("[esc] back  [ctrl+c] quit")
	}

	s := titleStyle.Render("Run "+run.ID) + "  " + a.formatStatus(run.Status)
	if v.Pending {
		s += "  " + dimStyle.Render("(decision submitted, confirming...)")
	}
	s += "\n\n"

	if run.Brief != "" {
		s += truncate(run.Brief, 100) + "\n\n"
	}

	s += a.renderTimeline(v)

	s += "\n" + labelStyle.Render("Artifacts: ") + fmt.Sprintf(
		"%d reqs  %d stories  %d tests  %d files  (iteration %d)",
		run.NumRequirements, run.NumUserStories, run.NumTestCases,
		run.NumGeneratedFiles, run.PlanningIteration,
	) + "\n"

	if v.Deploy != nil && v.Deploy.Status != "" && v.Deploy.Status != "idle" {
		s += labelStyle.Render("Deploy:    ") + v.Deploy.Status
		if url, ok := v.Deploy.URLs["frontend"]; ok {
			s += dimStyle.Render("  " + url)
		}
		s += "\n"
	}

	help := "[d] decisions  [f] files  [esc] back  [ctrl+c] quit"
	if a.atGate() {
		help = "[a] approve  [c] request changes  [x] reject  " + help
	}
	s += "\n" + helpStyle.Render(help)

	return s
}

func (a *App) renderTimeline(v engine.View) string {
	var b strings.Builder

	for _, pv := range timeline.Project(v.Run, v.Activity, a.table) {
		var marker, name string
		switch pv.State {
		case timeline.StateDone:
			marker = phaseDone.Render("✓")
			name = phaseDone.Render(string(pv.Phase))
		case timeline.StateCurrent:
			marker = phaseCurrent.Render("●")
			name = phaseCurrent.Render(string(pv.Phase))
		default:
			marker = phasePending.Render("○")
			name = phasePending.Render(string(pv.Phase))
		}
		b.WriteString(fmt.Sprintf(" %s %s\n", marker, name))

		for _, agent := range pv.Agents {
			line := fmt.Sprintf("     %s %s — %s", agent.Entry.Icon, agent.Agent, truncate(agent.Entry.Message, 60))
			b.WriteString(dimStyle.Render(line) + "\n")
		}
	}

	return b.String()
}

func (a *App) viewDecisions() string {
	s := titleStyle.Render("Decision Log") + "\n\n"

	if len(a.current.Decisions) == 0 {
		s += "(no decisions yet)\n"
	} else {
		for _, d := range a.current.Decisions {
			s += fmt.Sprintf("%s  %-24s %s\n",
				dimStyle.Render(formatTimestamp(d.Timestamp)), d.Agent, d.Decision)
			if d.Justification != "" {
				s += "    " + dimStyle.Render(truncate(d.Justification, 90)) + "\n"
			}
		}
	}

	s += "\n" + helpStyle.Render("[esc] back")

	return s
}

func (a *App) viewFiles() string {
	s := titleStyle.Render("Generated Files") + "\n\n"

	if len(a.current.Files) == 0 {
		s += "(no files yet)\n"
	} else {
		for i, f := range a.current.Files {
			line := fmt.Sprintf("%-50s %s  %s",
				truncate(f.Path, 50), dimStyle.Render(fmt.Sprintf("%4d lines", f.Lines)), dimStyle.Render(f.CreatedBy))
			if i == a.fileIdx {
				line = selectedStyle.Render("▶ " + line)
			} else {
				line = "  " + line
			}
			s += line + "\n"
		}
	}

	s += "\n" + helpStyle.Render("[enter] open  [esc] back")

	return s
}

func (a *App) viewFileContent() string {
	if a.fileContent == nil {
		return "No file selected"
	}

	s := titleStyle.Render(a.fileContent.Path) + "\n\n"
	s += a.fileContent.Content + "\n"
	s += "\n" + helpStyle.Render("[esc] back")

	return s
}

func (a *App) viewGatePrompt() string {
	gate := ""
	if a.current.Run != nil {
		gate = string(a.current.Run.CurrentPhase)
	}

	s := titleStyle.Render("Gate Decision — "+gate) + "\n\n"
	s += labelStyle.Render("Decision: ") + string(a.pendingDecision) + "\n\n"
	s += a.feedback.View() + "\n"
	s += "\n" + helpStyle.Render("[enter] submit  [esc] cancel")

	return s
}

func (a *App) viewNewRun() string {
	s := titleStyle.Render("New Run") + "\n\n"
	s += a.brief.View() + "\n"
	s += "\n" + helpStyle.Render("[enter] start  [esc] cancel")

	return s
}

// Messages

type runsLoadedMsg struct {
	runs []models.RunSummary
	err  error
}

type runStartedMsg struct {
	run *models.Run
	err error
}

type decisionSubmittedMsg struct {
	err error
}

type fileLoadedMsg struct {
	file *models.FileEntry
	err  error
}

// Commands

func (a *App) loadRuns() tea.Msg {
	runs, err := a.client.ListRuns(context.Background())
	return runsLoadedMsg{runs: runs, err: err}
}

func (a *App) startRun(brief string) tea.Cmd {
	return func() tea.Msg {
		run, err := a.client.StartRun(context.Background(), brief)
		return runStartedMsg{run: run, err: err}
	}
}

func (a *App) submitDecision(decision models.Decision, feedback string) tea.Cmd {
	return func() tea.Msg {
		err := a.engine.Submit(context.Background(), decision, feedback)
		return decisionSubmittedMsg{err: err}
	}
}

func (a *App) loadFile(runID, path string) tea.Cmd {
	return func() tea.Msg {
		file, err := a.client.GetFileContent(context.Background(), runID, path)
		return fileLoadedMsg{file: file, err: err}
	}
}

// truncate shortens s to maxLen runes; feed messages and briefs carry
// accents and emoji, so byte slicing is not safe here.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		if len(ts) >= 19 {
			return strings.Replace(ts[:19], "T", " ", 1)
		}
		return ts
	}
	return t.Format("15:04:05")
}
