package grading

import (
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Verdict is the correctness outcome of grading one answer.
type Verdict int

const (
	Incorrect Verdict = iota
	Correct
	// Pending marks answers that need a human (essays). They never count
	// toward automatic pass/fail.
	Pending
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case Pending:
		return "pending"
	default:
		return "incorrect"
	}
}

// Bool maps the verdict onto the persisted isCorrect field, nil when pending.
func (v Verdict) Bool() *bool {
	if v == Pending {
		return nil
	}
	b := v == Correct
	return &b
}

// Result is the outcome of grading a single question response.
type Result struct {
	Verdict      Verdict
	PointsEarned int
	MaxPoints    int
	// Inconsistent is set when the response shape does not match the
	// question kind. The answer is scored incorrect instead of failing.
	Inconsistent bool
	Feedback     []string
}

// Grade scores one response against one question. It has no state and
// returns the same result for the same inputs. A nil response is an
// unanswered question and earns nothing.
func Grade(q quiz.Question, r quiz.Response) Result {
	res := Result{MaxPoints: q.Common().Points}
	if r == nil {
		res.Feedback = append(res.Feedback, "unanswered")
		return res
	}
	if !quiz.Accepts(q, r) {
		res.Inconsistent = true
		res.Feedback = append(res.Feedback, "answer type does not match question type")
		return res
	}

	var ok bool
	switch v := q.(type) {
	case *quiz.MultipleChoice:
		ok = gradeChoice(v, r.(quiz.ChoiceResponse))
	case *quiz.MultipleSelect:
		ok = gradeSelect(v, r.(quiz.SelectResponse))
	case *quiz.TrueFalse:
		ok = bool(r.(quiz.BoolResponse)) == v.Answer
	case *quiz.ShortAnswer:
		ok = matchAny(string(r.(quiz.TextResponse)), v.Answer, v.Acceptable, v.CaseSensitive)
	case *quiz.FillBlank:
		ok = gradeBlanks(v, r.(quiz.BlanksResponse))
	case *quiz.Essay:
		res.Verdict = Pending
		res.Feedback = append(res.Feedback, "manual grading required")
		return res
	}
	if ok {
		res.Verdict = Correct
		res.PointsEarned = res.MaxPoints
	}
	return res
}

func gradeChoice(q *quiz.MultipleChoice, r quiz.ChoiceResponse) bool {
	want := q.CorrectOptionID()
	return want != "" && string(r) == want
}

// gradeSelect is all-or-nothing: the submitted ids must equal the correct set.
func gradeSelect(q *quiz.MultipleSelect, r quiz.SelectResponse) bool {
	correct := toSet(q.CorrectOptionIDs())
	if len(correct) == 0 {
		return false
	}
	return setEqual(correct, toSet(r))
}

func gradeBlanks(q *quiz.FillBlank, r quiz.BlanksResponse) bool {
	if len(q.Blanks) == 0 || len(r) != len(q.Blanks) {
		return false
	}
	for i, b := range q.Blanks {
		if !matchAny(r[i], b.Answer, b.Acceptable, q.CaseSensitive) {
			return false
		}
	}
	return true
}

// Graded pairs a question id with its result.
type Graded struct {
	QuestionID string
	Result
}

// GradeAll grades responses keyed by question id in question order.
func GradeAll(questions []quiz.Question, responses map[string]quiz.Response) (out []Graded, earned, possible int) {
	out = make([]Graded, 0, len(questions))
	for _, q := range questions {
		id := q.Common().ID
		res := Grade(q, responses[id])
		earned += res.PointsEarned
		possible += res.MaxPoints
		out = append(out, Graded{QuestionID: id, Result: res})
	}
	return out, earned, possible
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
