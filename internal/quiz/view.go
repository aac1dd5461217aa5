package quiz

import (
	"hash/fnv"
	"math/rand"
)

// View is what a student sees of a quiz: no answer keys, no explanations.
type View struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	TimeLimitMinutes *int           `json:"time_limit_minutes,omitempty"`
	PassingScore     int            `json:"passing_score"`
	TotalPoints      int            `json:"total_points"`
	Questions        []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID         string       `json:"id"`
	Type       Kind         `json:"type"`
	Prompt     string       `json:"prompt"`
	Points     int          `json:"points"`
	Difficulty string       `json:"difficulty,omitempty"`
	Hint       string       `json:"hint,omitempty"`
	Options    []OptionView `json:"options,omitempty"`
	Blanks     int          `json:"blanks,omitempty"`
	MinLength  int          `json:"min_length,omitempty"`
	MaxLength  int          `json:"max_length,omitempty"`
}

type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// StudentView strips q for delivery to a student. When the quiz randomizes
// questions or options the order is derived from seed, so the same attempt
// always sees the same order.
func StudentView(q *Quiz, seed string) View {
	v := View{
		ID:               q.ID,
		Title:            q.Title,
		Description:      q.Description,
		TimeLimitMinutes: q.Settings.TimeLimitMinutes,
		PassingScore:     q.Settings.PassingScore,
		TotalPoints:      q.TotalPoints(),
		Questions:        make([]QuestionView, 0, len(q.Questions)),
	}
	rng := rand.New(rand.NewSource(seedOf(seed)))

	for _, qu := range q.Questions {
		h := qu.Common()
		qv := QuestionView{
			ID:         h.ID,
			Type:       qu.Kind(),
			Prompt:     h.Prompt,
			Points:     h.Points,
			Difficulty: h.Difficulty,
			Hint:       h.Hint,
		}
		switch t := qu.(type) {
		case *MultipleChoice:
			qv.Options = optionViews(t.Options)
		case *MultipleSelect:
			qv.Options = optionViews(t.Options)
		case *TrueFalse:
			qv.Options = optionViews(t.Options())
		case *FillBlank:
			qv.Blanks = len(t.Blanks)
		case *Essay:
			qv.MinLength, qv.MaxLength = t.MinLength, t.MaxLength
		}
		if q.Settings.RandomizeOptions && qu.Kind() != KindTrueFalse {
			rng.Shuffle(len(qv.Options), func(i, j int) {
				qv.Options[i], qv.Options[j] = qv.Options[j], qv.Options[i]
			})
		}
		v.Questions = append(v.Questions, qv)
	}

	if q.Settings.RandomizeQuestions {
		rng.Shuffle(len(v.Questions), func(i, j int) {
			v.Questions[i], v.Questions[j] = v.Questions[j], v.Questions[i]
		})
	}
	return v
}

func optionViews(opts []Option) []OptionView {
	out := make([]OptionView, len(opts))
	for i, o := range opts {
		out[i] = OptionView{ID: o.ID, Text: o.Text}
	}
	return out
}

func seedOf(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
