// Package tui is the interactive chat client for a running kotae server.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/models"
)

const (
	requestTimeout = 2 * time.Minute
	welcome        = "¡Hola! Soy tu asistente de estudio. Pregúntame sobre el libro."
)

// ChatService is the TUI-facing subset of the API client.
type ChatService interface {
	Ask(ctx context.Context, q *models.SearchQuery) (*models.SynthesizedAnswer, error)
	SendFeedback(ctx context.Context, fb cli.FeedbackInput) (string, error)
}

type role int

const (
	roleUser role = iota
	roleBot
	roleError
)

type message struct {
	id      string
	role    role
	text    string
	query   string
	answer  *models.SynthesizedAnswer
	useful  *bool
	pending bool
}

type answerMsg struct {
	id     string
	answer *models.SynthesizedAnswer
	err    error
}

type feedbackMsg struct {
	id     string
	useful bool
	err    error
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	service  ChatService
	topK     int
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	messages []message
	status   string
	ready    bool
	waiting  bool
}

// New creates a chat model. topK <= 0 uses the server default.
func New(service ChatService, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Escribe tu pregunta y presiona Enter"
	ti.Focus()
	ti.CharLimit = 500
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		service:  service,
		topK:     topK,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		messages: []message{{id: uuid.NewString(), role: roleBot, text: welcome}},
		status:   "Ctrl+Y útil · Ctrl+N no útil · Ctrl+C salir",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and response events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := historyBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.waiting = false
		for i := range m.messages {
			if m.messages[i].id != msg.id {
				continue
			}
			m.messages[i].pending = false
			if msg.err != nil {
				m.messages[i].role = roleError
				m.messages[i].text = "Error: " + msg.err.Error()
			} else {
				m.messages[i].answer = msg.answer
				m.messages[i].text = msg.answer.Answer
			}
		}
		m.refresh()
		return m, nil

	case feedbackMsg:
		if msg.err != nil {
			m.status = "No se pudo enviar el feedback: " + msg.err.Error()
		} else {
			for i := range m.messages {
				if m.messages[i].id == msg.id {
					u := msg.useful
					m.messages[i].useful = &u
				}
			}
			m.status = "Gracias por tu feedback."
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlY:
			return m, m.rateLast(true)
		case tea.KeyCtrlN:
			return m, m.rateLast(false)
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	q := strings.TrimSpace(m.input.Value())
	if q == "" || m.waiting {
		return m, nil
	}
	m.input.SetValue("")
	m.messages = append(m.messages, message{id: uuid.NewString(), role: roleUser, text: q})
	reply := message{id: uuid.NewString(), role: roleBot, query: q, pending: true}
	m.messages = append(m.messages, reply)
	m.waiting = true
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.ask(reply.id, q))
}

func (m Model) ask(id, q string) tea.Cmd {
	service, topK := m.service, m.topK
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		ans, err := service.Ask(ctx, &models.SearchQuery{Query: q, TopK: topK})
		return answerMsg{id: id, answer: ans, err: err}
	}
}

// rateLast sends feedback for the most recent answered, unrated bot message.
func (m Model) rateLast(useful bool) tea.Cmd {
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.role != roleBot || msg.answer == nil {
			continue
		}
		if msg.useful != nil {
			return nil
		}
		service := m.service
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			_, err := service.SendFeedback(ctx, cli.FeedbackInput{MessageID: msg.id, Query: msg.query, Useful: useful})
			return feedbackMsg{id: msg.id, useful: useful, err: err}
		}
	}
	return nil
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Cargando..."
	}
	header := headerStyle.Render("Kotae · Asistente de estudio")
	history := historyBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + history + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	width := max(20, m.viewport.Width-2)
	var b strings.Builder
	for _, msg := range m.messages {
		switch msg.role {
		case roleUser:
			b.WriteString(userStyle.Render("Tú: "))
			b.WriteString(lipgloss.NewStyle().Width(width).Render(msg.text))
		case roleError:
			b.WriteString(errorStyle.Width(width).Render(msg.text))
		default:
			b.WriteString(botStyle.Render("Kotae: "))
			if msg.pending {
				b.WriteString(m.spinner.View() + " pensando...")
			} else {
				b.WriteString(lipgloss.NewStyle().Width(width).Render(msg.text))
				b.WriteString(renderSources(msg, width))
			}
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSources(msg message, width int) string {
	if msg.answer == nil {
		return ""
	}
	var b strings.Builder
	if len(msg.answer.Results) > 0 {
		top := msg.answer.Results[0]
		b.WriteString("\n")
		b.WriteString(sourceStyle.Render(fmt.Sprintf("%s · %.1f%%", top.Source, top.SimilarityPercent)))
		b.WriteString("\n")
		excerpt := cli.Truncate(strings.Join(strings.Fields(top.Text), " "), 400)
		b.WriteString(lipgloss.NewStyle().Width(width).Render(highlightBestSentence(excerpt, msg.query)))
		if n := len(msg.answer.Results) - 1; n > 0 {
			others := make([]string, 0, n)
			for _, r := range msg.answer.Results[1:] {
				others = append(others, r.Source)
			}
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render("También: " + strings.Join(others, ", ")))
		}
	}
	if len(msg.answer.Suggestions) > 0 {
		b.WriteString("\n")
		b.WriteString(sourceStyle.Render("¿Quisiste decir? " + strings.Join(msg.answer.Suggestions, " · ")))
	}
	if msg.useful != nil {
		label := "👎 no útil"
		if *msg.useful {
			label = "👍 útil"
		}
		b.WriteString("\n")
		b.WriteString(sourceStyle.Render(label))
	}
	return b.String()
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	highlightStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe   = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe      = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence renders the sentence sharing the most words with query in bold.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx && bestScore > 0 {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
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
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
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
