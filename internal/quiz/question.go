package quiz

// Kind is the discriminant of a Question.
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindMultipleSelect Kind = "multiple_select"
	KindTrueFalse      Kind = "true_false"
	KindShortAnswer    Kind = "short_answer"
	KindEssay          Kind = "essay"
	KindFillBlank      Kind = "fill_blank"
)

// Valid reports whether k is one of the six known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindMultipleSelect, KindTrueFalse,
		KindShortAnswer, KindEssay, KindFillBlank:
		return true
	}
	return false
}

// Question is implemented only by the variant structs in this package.
type Question interface {
	Kind() Kind
	Common() *Header
	sealed()
}

// Header holds the fields every question kind shares.
type Header struct {
	ID          string `json:"id" yaml:"id"`
	Prompt      string `json:"prompt" yaml:"prompt"`
	Points      int    `json:"points" yaml:"points"`
	Difficulty  string `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Hint        string `json:"hint,omitempty" yaml:"hint,omitempty"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

type Option struct {
	ID      string `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"correct,omitempty" yaml:"correct,omitempty"`
}

type MultipleChoice struct {
	Header
	Options []Option
}

func (*MultipleChoice) Kind() Kind         { return KindMultipleChoice }
func (q *MultipleChoice) Common() *Header { return &q.Header }
func (*MultipleChoice) sealed()           {}

// CorrectOptionID returns the first option flagged correct, or "".
func (q *MultipleChoice) CorrectOptionID() string {
	for _, o := range q.Options {
		if o.Correct {
			return o.ID
		}
	}
	return ""
}

type MultipleSelect struct {
	Header
	Options []Option
}

func (*MultipleSelect) Kind() Kind         { return KindMultipleSelect }
func (q *MultipleSelect) Common() *Header { return &q.Header }
func (*MultipleSelect) sealed()           {}

// CorrectOptionIDs returns the ids of every option flagged correct, in authored order.
func (q *MultipleSelect) CorrectOptionIDs() []string {
	out := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		if o.Correct {
			out = append(out, o.ID)
		}
	}
	return out
}

type TrueFalse struct {
	Header
	Answer bool
}

func (*TrueFalse) Kind() Kind         { return KindTrueFalse }
func (q *TrueFalse) Common() *Header { return &q.Header }
func (*TrueFalse) sealed()           {}

// Options returns the fixed true/false pair so clients can render every
// choice-like question the same way.
func (q *TrueFalse) Options() []Option {
	return []Option{
		{ID: "true", Text: "True", Correct: q.Answer},
		{ID: "false", Text: "False", Correct: !q.Answer},
	}
}

type ShortAnswer struct {
	Header
	Answer        string
	Acceptable    []string
	CaseSensitive bool
}

func (*ShortAnswer) Kind() Kind         { return KindShortAnswer }
func (q *ShortAnswer) Common() *Header { return &q.Header }
func (*ShortAnswer) sealed()           {}

// Blank is one gap of a fill-in-the-blank question.
type Blank struct {
	Answer     string   `json:"answer" yaml:"answer"`
	Acceptable []string `json:"acceptable,omitempty" yaml:"acceptable,omitempty"`
}

type FillBlank struct {
	Header
	Blanks        []Blank
	CaseSensitive bool
}

func (*FillBlank) Kind() Kind         { return KindFillBlank }
func (q *FillBlank) Common() *Header { return &q.Header }
func (*FillBlank) sealed()           {}

// Essay questions are never auto-graded. MinLength and MaxLength bound the
// submitted text in runes; zero means unbounded.
type Essay struct {
	Header
	SampleAnswer string
	MinLength    int
	MaxLength    int
}

func (*Essay) Kind() Kind         { return KindEssay }
func (q *Essay) Common() *Header { return &q.Header }
func (*Essay) sealed()           {}
