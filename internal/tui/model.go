// Package tui is an interactive terminal front end for asking questions.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reviewrag/internal/domain"
)

// Asker is the TUI-facing subset of the question answering service.
type Asker interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}

type answerMsg struct {
	answer  *domain.Answer
	err     error
	elapsed time.Duration
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	asker    Asker
	input    textinput.Model
	viewport viewport.Model
	answer   *domain.Answer
	subtitle string
	status   string
	cursor   int
	busy     bool
	retry    bool
	ready    bool
	question string
}

// New creates a new TUI model instance. subtitle is shown under the header.
func New(ctx context.Context, asker Asker, subtitle string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the products and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, asker: asker, input: ti, viewport: vp, subtitle: subtitle, status: "Ready. Type a question."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ans, err := m.asker.Ask(m.ctx, q)
		return answerMsg{answer: ans, err: err, elapsed: time.Since(start)}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, subtitle, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case answerMsg:
		m.busy = false
		m.answer = msg.answer
		m.cursor = 0
		m.retry = msg.err != nil && domain.IsRetryable(msg.err)
		switch {
		case m.retry:
			m.status = "Timed out, press Enter to retry: " + msg.err.Error()
		case msg.err != nil:
			m.status = "Error: " + msg.err.Error()
		default:
			m.status = fmt.Sprintf("Answered %q in %s", m.question, msg.elapsed.Round(time.Millisecond))
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" && m.retry {
				q = m.question
			}
			if q != "" && !m.busy {
				m.busy = true
				m.question = q
				m.input.SetValue("")
				m.status = fmt.Sprintf("Asking %q...", q)
				return m, m.ask(q)
			}
			return m, nil
		case "down":
			if m.answer != nil && len(m.answer.Sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.answer.Sources)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "up":
			if m.answer != nil && len(m.answer.Sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.answer.Sources)) % len(m.answer.Sources)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Review Q&A")
	subtitle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.subtitle)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	body := answerBoxStyle.Render(m.viewport.View())
	return header + "\n" + subtitle + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		return "No answer yet."
	}
	var b strings.Builder
	text := m.answer.Answer
	if text == "" {
		text = "(no answer generated)"
	}
	b.WriteString(highlightBestSentence(text, m.question))
	b.WriteString("\n\n")
	if len(m.answer.Sources) == 0 {
		b.WriteString(dimStyle.Render("No sources."))
		return b.String()
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Sources"))
	for i, s := range m.answer.Sources {
		line := fmt.Sprintf("%s  %s  (%s)  distance=%.4f", s.ASIN, s.ProductName, s.ChunkID, s.Distance)
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
)

// highlightBestSentence marks the sentence of text sharing the most words
// with query. The rest of text is left as is.
func highlightBestSentence(text, query string) string {
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}
	bestScore := 0
	var best []int
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if score := tokenOverlapScore(qTokens, text[loc[0]:loc[1]]); score > bestScore {
			bestScore = score
			best = loc
		}
	}
	if best == nil {
		return text
	}
	sent := text[best[0]:best[1]]
	trimmed := strings.TrimSpace(sent)
	lead := strings.Index(sent, trimmed)
	return text[:best[0]] + sent[:lead] + highlightStyle.Render(trimmed) + sent[lead+len(trimmed):] + text[best[1]:]
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
