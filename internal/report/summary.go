package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
)

// LabelMetrics holds one-vs-rest counts and scores for a gold label.
type LabelMetrics struct {
	Label          string
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	F1             float64
}

// Summary aggregates a report.
type Summary struct {
	Type    ClassificationType
	Rows    int
	Skipped int

	// Classification.
	Correct  int
	Accuracy float64
	Labels   []LabelMetrics

	// Regression.
	MeanAbsError float64

	absErrSum float64
	counts    map[string]*LabelMetrics
}

func newSummary(t ClassificationType) *Summary {
	return &Summary{Type: t, counts: make(map[string]*LabelMetrics)}
}

func (s *Summary) label(name string) *LabelMetrics {
	m, ok := s.counts[name]
	if !ok {
		m = &LabelMetrics{Label: name}
		s.counts[name] = m
	}
	return m
}

func (s *Summary) add(row Row, t ClassificationType) {
	s.Rows++
	if t == Regression {
		s.absErrSum += row.AbsError
		return
	}

	if row.Eval == Correct {
		s.Correct++
		s.label(row.Gold).TruePositives++
		return
	}
	s.label(row.Gold).FalseNegatives++
	s.label(row.System).FalsePositives++
}

func (s *Summary) finish() {
	if s.Rows == 0 {
		return
	}
	if s.Type == Regression {
		s.MeanAbsError = s.absErrSum / float64(s.Rows)
		return
	}

	s.Accuracy = float64(s.Correct) / float64(s.Rows)
	names := lo.Keys(s.counts)
	slices.Sort(names)
	s.Labels = make([]LabelMetrics, 0, len(names))
	for _, name := range names {
		m := *s.counts[name]
		tp, fp, fn := m.TruePositives, m.FalsePositives, m.FalseNegatives
		if tp+fp > 0 {
			m.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			m.Recall = float64(tp) / float64(tp+fn)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		s.Labels = append(s.Labels, m)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// Render writes the summary as tables.
func (s *Summary) Render(w io.Writer) error {
	if s.Type == Regression {
		overview := newTable().Headers("examples", "skipped", "mean abs error")
		overview.Row(fmt.Sprint(s.Rows), fmt.Sprint(s.Skipped), fmt.Sprintf("%.3f", s.MeanAbsError))
		_, err := fmt.Fprintln(w, overview.String())
		return err
	}

	overview := newTable().Headers("examples", "skipped", "correct", "accuracy")
	overview.Row(fmt.Sprint(s.Rows), fmt.Sprint(s.Skipped), fmt.Sprint(s.Correct), fmt.Sprintf("%.4f", s.Accuracy))
	if _, err := fmt.Fprintln(w, overview.String()); err != nil {
		return err
	}
	if len(s.Labels) == 0 {
		return nil
	}

	labels := newTable().Headers("label", "tp", "fp", "fn", "precision", "recall", "f1")
	for _, m := range s.Labels {
		labels.Row(m.Label,
			fmt.Sprint(m.TruePositives), fmt.Sprint(m.FalsePositives), fmt.Sprint(m.FalseNegatives),
			fmt.Sprintf("%.4f", m.Precision), fmt.Sprintf("%.4f", m.Recall), fmt.Sprintf("%.4f", m.F1))
	}
	_, err := fmt.Fprintln(w, labels.String())
	return err
}
