package stats

import (
	"sort"

	mstats "github.com/montanaflynn/stats"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
)

// QuizStatistics is recomputed from the attempt snapshot on every call.
type QuizStatistics struct {
	QuizID        string         `json:"quiz_id"`
	TotalAttempts int            `json:"total_attempts"`
	UniqueUsers   int            `json:"unique_users"`
	AverageScore  float64        `json:"average_score"`
	PassRate      float64        `json:"pass_rate"` // percent of attempts passed
	BestScores    map[string]int `json:"best_scores"`

	Distribution *Distribution  `json:"distribution,omitempty"`
	Questions    []QuestionRate `json:"questions,omitempty"`
}

// Distribution describes the spread of attempt scores.
type Distribution struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	P90    float64 `json:"p90"`
}

// QuestionRate is how often one question was answered correctly. Answers
// awaiting manual grading are not counted.
type QuestionRate struct {
	QuestionID  string  `json:"question_id"`
	Graded      int     `json:"graded"`
	Correct     int     `json:"correct"`
	CorrectRate float64 `json:"correct_rate"`
}

// Compute aggregates the finalized attempts of quizID. Attempts for other
// quizzes and attempts still in progress are ignored.
func Compute(quizID string, attempts []attempt.Attempt) QuizStatistics {
	out := QuizStatistics{QuizID: quizID, BestScores: map[string]int{}}

	var scores mstats.Float64Data
	passed := 0
	perQuestion := map[string]*QuestionRate{}
	var order []string

	for _, a := range attempts {
		if a.QuizID != quizID || !a.Finalized() || a.Score == nil {
			continue
		}
		score := *a.Score
		scores = append(scores, float64(score))
		if a.Passed != nil && *a.Passed {
			passed++
		}
		if best, ok := out.BestScores[a.UserID]; !ok || score > best {
			out.BestScores[a.UserID] = score
		}
		for _, ans := range a.Answers {
			qr, ok := perQuestion[ans.QuestionID]
			if !ok {
				qr = &QuestionRate{QuestionID: ans.QuestionID}
				perQuestion[ans.QuestionID] = qr
				order = append(order, ans.QuestionID)
			}
			if ans.IsCorrect == nil {
				continue
			}
			qr.Graded++
			if *ans.IsCorrect {
				qr.Correct++
			}
		}
	}

	out.TotalAttempts = len(scores)
	out.UniqueUsers = len(out.BestScores)
	if out.TotalAttempts == 0 {
		return out
	}
	out.AverageScore, _ = mstats.Mean(scores)
	out.PassRate = 100 * float64(passed) / float64(out.TotalAttempts)
	out.Distribution = distribution(scores)

	for _, id := range order {
		qr := perQuestion[id]
		if qr.Graded > 0 {
			qr.CorrectRate = 100 * float64(qr.Correct) / float64(qr.Graded)
		}
		out.Questions = append(out.Questions, *qr)
	}
	return out
}

func distribution(scores mstats.Float64Data) *Distribution {
	d := &Distribution{}
	d.Min, _ = mstats.Min(scores)
	d.Max, _ = mstats.Max(scores)
	d.Median, _ = mstats.Median(scores)
	d.StdDev, _ = mstats.StandardDeviation(scores)
	d.P90, _ = mstats.Percentile(scores, 90)
	return d
}

// Leaderboard returns user ids ordered by best score, highest first. Ties
// are broken by user id.
func (s QuizStatistics) Leaderboard() []string {
	ids := make([]string, 0, len(s.BestScores))
	for id := range s.BestScores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		bi, bj := s.BestScores[ids[i]], s.BestScores[ids[j]]
		if bi != bj {
			return bi > bj
		}
		return ids[i] < ids[j]
	})
	return ids
}
