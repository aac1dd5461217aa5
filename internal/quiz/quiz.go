package quiz

import "time"

type Settings struct {
	PassingScore          int  `json:"passing_score" yaml:"passing_score"` // 0-100
	TimeLimitMinutes      *int `json:"time_limit_minutes,omitempty" yaml:"time_limit_minutes,omitempty"`
	AllowMultipleAttempts bool `json:"allow_multiple_attempts" yaml:"allow_multiple_attempts"`
	MaxAttempts           *int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	ShowCorrectAnswers    bool `json:"show_correct_answers" yaml:"show_correct_answers"`
	ShowExplanations      bool `json:"show_explanations" yaml:"show_explanations"`
	RandomizeQuestions    bool `json:"randomize_questions" yaml:"randomize_questions"`
	RandomizeOptions      bool `json:"randomize_options" yaml:"randomize_options"`
	AllowReview           bool `json:"allow_review" yaml:"allow_review"`
}

// TimeLimit returns the configured limit, or 0 when the quiz is untimed.
func (s Settings) TimeLimit() time.Duration {
	if s.TimeLimitMinutes == nil || *s.TimeLimitMinutes <= 0 {
		return 0
	}
	return time.Duration(*s.TimeLimitMinutes) * time.Minute
}

type Quiz struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Questions   QuestionList `json:"questions" yaml:"questions"`
	Settings    Settings     `json:"settings" yaml:"settings"`
	Published   bool         `json:"published" yaml:"published"`

	CreatedAt int64 `json:"created_at,omitempty" yaml:"-"`
}

// TotalPoints sums the point value of every question.
func (q *Quiz) TotalPoints() int {
	total := 0
	for _, qu := range q.Questions {
		total += qu.Common().Points
	}
	return total
}

// Question looks a question up by id.
func (q *Quiz) Question(id string) (Question, int, bool) {
	for i, qu := range q.Questions {
		if qu.Common().ID == id {
			return qu, i, true
		}
	}
	return nil, -1, false
}

// IntPtr is a convenience for optional settings.
func IntPtr(v int) *int { return &v }
