// Package quiz is the interactive terminal front end for taking an exam.
package quiz

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examforge/internal/evaluate"
	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/ui/components"
	"github.com/abhisek/examforge/internal/ui/layout"
)

type phase int

const (
	phaseAnswering phase = iota
	phaseScoring
	phaseFeedback
	phaseResults
)

const answerCharLimit = 2000

// Model walks the items of an exam, scores each answer as it is
// submitted and ends on a results page.
type Model struct {
	ctx       context.Context
	exam      *exam.Exam
	evaluator *evaluate.Evaluator

	index  int
	phase  phase
	choice components.Choice
	input  components.TextInput
	graded []evaluate.Graded

	width  int
	height int
}

// New creates a quiz over ex. Answers are scored with ev.
func New(ctx context.Context, ex *exam.Exam, ev *evaluate.Evaluator) Model {
	m := Model{ctx: ctx, exam: ex, evaluator: ev}
	if len(ex.Items) == 0 {
		m.phase = phaseResults
		return m
	}
	m.prepare()
	return m
}

// prepare sets up the answer widget for the current item.
func (m *Model) prepare() {
	rec := m.current()
	m.choice = components.Choice{}
	switch rec.Kind {
	case exam.KindMultipleChoice:
		m.choice = components.NewChoice(exam.ChoiceLetters, rec.Choices)
	case exam.KindTrueFalse:
		m.choice = components.NewChoice([]string{"T", "F"}, []string{"True", "False"})
	default:
		m.input = components.NewTextInput(placeholder(rec.Kind), answerCharLimit)
	}
}

func placeholder(k exam.Kind) string {
	switch k {
	case exam.KindCloze:
		return "Fill in the blank"
	case exam.KindFlashcard:
		return "Your recall"
	}
	return "Type your answer"
}

func (m Model) current() exam.QuestionRecord {
	return m.exam.Items[m.index].Record
}

func (m Model) usesChoice() bool {
	return len(m.choice.Options) > 0
}

// Init starts the cursor blink for free-text items.
func (m Model) Init() tea.Cmd {
	if m.phase == phaseAnswering && !m.usesChoice() {
		return m.input.Init()
	}
	return nil
}

// Update handles input and scoring results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case scoredMsg:
		if msg.Index != m.index || m.phase != phaseScoring {
			return m, nil
		}
		m.graded = append(m.graded, msg.Graded)
		if m.usesChoice() {
			m.choice.Correct = m.correctIndex()
		}
		m.phase = phaseFeedback
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.phase {
		case phaseAnswering:
			return m.updateAnswering(msg)
		case phaseFeedback:
			return m.advance()
		case phaseResults:
			switch msg.String() {
			case "enter", "q", "esc":
				return m, tea.Quit
			}
		}
		return m, nil
	}

	if m.phase == phaseAnswering && !m.usesChoice() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateAnswering(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.phase = phaseResults
		return m, nil
	}

	if m.usesChoice() {
		var cmd tea.Cmd
		m.choice, cmd = m.choice.Update(msg)
		if m.choice.Submitted {
			return m.submit(m.choice.Value())
		}
		return m, cmd
	}

	if msg.String() == "enter" {
		if m.input.Value() == "" {
			return m, nil
		}
		return m.submit(m.input.Value())
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit hands the answer to the evaluator off the update loop.
func (m Model) submit(answer string) (tea.Model, tea.Cmd) {
	m.phase = phaseScoring
	if m.current().Kind == exam.KindTrueFalse {
		answer = map[string]string{"T": "true", "F": "false"}[answer]
	}
	ctx, ev, idx, rec := m.ctx, m.evaluator, m.index, m.current()
	return m, func() tea.Msg {
		return scoredMsg{Index: idx, Graded: evaluate.Graded{
			ID:     rec.ID,
			Kind:   rec.Kind,
			Answer: answer,
			Result: ev.Evaluate(ctx, rec, answer),
		}}
	}
}

func (m Model) advance() (tea.Model, tea.Cmd) {
	if m.index+1 >= len(m.exam.Items) {
		m.phase = phaseResults
		return m, nil
	}
	m.index++
	m.phase = phaseAnswering
	m.prepare()
	return m, m.Init()
}

func (m Model) correctIndex() int {
	rec := m.current()
	switch rec.Kind {
	case exam.KindMultipleChoice:
		return exam.LetterIndex(rec.Answer.Text())
	case exam.KindTrueFalse:
		if rec.Answer.Text() == "true" {
			return 0
		}
		return 1
	}
	return -1
}

// Sheet returns the answers scored so far. Items skipped with Esc are
// not included.
func (m Model) Sheet() evaluate.Sheet {
	sheet := evaluate.Sheet{Items: append([]evaluate.Graded(nil), m.graded...)}
	for _, g := range m.graded {
		sheet.Points += g.Result.Points
	}
	sheet.MaxPoints = m.exam.MaxPoints()
	return sheet
}

// Done reports whether the results page is showing.
func (m Model) Done() bool {
	return m.phase == phaseResults
}

func (m Model) keyHints() []layout.KeyHint {
	switch m.phase {
	case phaseAnswering:
		if m.usesChoice() {
			return []layout.KeyHint{
				{Key: "↑↓", Description: "Select"},
				{Key: "Enter", Description: "Submit"},
				{Key: "Esc", Description: "Finish"},
			}
		}
		return []layout.KeyHint{
			{Key: "Enter", Description: "Submit"},
			{Key: "Esc", Description: "Finish"},
		}
	case phaseFeedback:
		return []layout.KeyHint{{Key: "Any key", Description: "Next"}}
	case phaseResults:
		return []layout.KeyHint{{Key: "Enter", Description: "Quit"}}
	}
	return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
}

func (m Model) score() string {
	s := m.Sheet()
	return fmt.Sprintf("%s / %d pts", formatPoints(s.Points), s.MaxPoints)
}

// Run takes the exam interactively and returns the scored sheet.
func Run(ctx context.Context, ex *exam.Exam, ev *evaluate.Evaluator) (evaluate.Sheet, error) {
	p := tea.NewProgram(New(ctx, ex, ev))
	final, err := p.Run()
	if err != nil {
		return evaluate.Sheet{}, fmt.Errorf("run quiz: %w", err)
	}
	return final.(Model).Sheet(), nil
}
