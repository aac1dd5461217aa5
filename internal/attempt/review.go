package attempt

import (
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// ReviewItem is one graded question as shown to the student after finishing.
type ReviewItem struct {
	QuestionID    string        `json:"question_id"`
	Kind          quiz.Kind     `json:"type"`
	Prompt        string        `json:"prompt"`
	Points        int           `json:"points"`
	Response      quiz.Response `json:"response"`
	IsCorrect     *bool         `json:"is_correct"`
	PointsEarned  int           `json:"points_earned"`
	CorrectAnswer any           `json:"correct_answer,omitempty"`
	Explanation   string        `json:"explanation,omitempty"`
}

type Review struct {
	AttemptID    string       `json:"attempt_id"`
	QuizID       string       `json:"quiz_id"`
	Score        int          `json:"score"`
	Passed       bool         `json:"passed"`
	EarnedPoints int          `json:"earned_points"`
	TotalPoints  int          `json:"total_points"`
	FinishReason FinishReason `json:"finish_reason"`
	Items        []ReviewItem `json:"items,omitempty"`
}

// BuildReview summarizes a graded attempt. Per-question items are included
// only when the quiz allows review; answer keys and explanations follow
// showCorrectAnswers and showExplanations.
func BuildReview(q *quiz.Quiz, a Attempt) (Review, error) {
	if !a.Finalized() {
		return Review{}, ErrNotFinalized
	}
	r := Review{
		AttemptID:    a.ID,
		QuizID:       a.QuizID,
		Score:        *a.Score,
		Passed:       *a.Passed,
		EarnedPoints: a.EarnedPoints,
		TotalPoints:  a.TotalPoints,
		FinishReason: a.FinishReason,
	}
	if !q.Settings.AllowReview {
		return r, nil
	}
	for _, qu := range q.Questions {
		h := qu.Common()
		item := ReviewItem{QuestionID: h.ID, Kind: qu.Kind(), Prompt: h.Prompt, Points: h.Points}
		if i := a.Slot(h.ID); i >= 0 {
			ans := a.Answers[i]
			item.Response = ans.Value
			item.IsCorrect = ans.IsCorrect
			item.PointsEarned = ans.PointsEarned
		}
		if q.Settings.ShowCorrectAnswers {
			item.CorrectAnswer = quiz.AnswerKey(qu)
		}
		if q.Settings.ShowExplanations {
			item.Explanation = h.Explanation
		}
		r.Items = append(r.Items, item)
	}
	return r, nil
}
