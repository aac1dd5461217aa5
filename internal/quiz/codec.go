package quiz

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// QuestionList is an ordered list of questions that encodes each element with
// its "type" discriminant.
type QuestionList []Question

// record is the flat persisted shape of a question.
type record struct {
	ID          string `json:"id" yaml:"id"`
	Type        Kind   `json:"type" yaml:"type"`
	Prompt      string `json:"prompt" yaml:"prompt"`
	Points      int    `json:"points" yaml:"points"`
	Difficulty  string `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Hint        string `json:"hint,omitempty" yaml:"hint,omitempty"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`

	Options       []Option `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer any      `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty"`
	Acceptable    []string `json:"acceptable_answers,omitempty" yaml:"acceptable_answers,omitempty"`
	Blanks        []Blank  `json:"blanks,omitempty" yaml:"blanks,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty"`
	SampleAnswer  string   `json:"sample_answer,omitempty" yaml:"sample_answer,omitempty"`
	MinLength     int      `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength     int      `json:"max_length,omitempty" yaml:"max_length,omitempty"`
}

func toRecord(q Question) record {
	h := q.Common()
	r := record{
		ID:          h.ID,
		Type:        q.Kind(),
		Prompt:      h.Prompt,
		Points:      h.Points,
		Difficulty:  h.Difficulty,
		Hint:        h.Hint,
		Explanation: h.Explanation,
	}
	switch v := q.(type) {
	case *MultipleChoice:
		r.Options = v.Options
		if id := v.CorrectOptionID(); id != "" {
			r.CorrectAnswer = id
		}
	case *MultipleSelect:
		r.Options = v.Options
		r.CorrectAnswer = v.CorrectOptionIDs()
	case *TrueFalse:
		r.Options = v.Options()
		r.CorrectAnswer = v.Answer
	case *ShortAnswer:
		r.CorrectAnswer = v.Answer
		r.Acceptable = v.Acceptable
		r.CaseSensitive = v.CaseSensitive
	case *FillBlank:
		r.Blanks = v.Blanks
		r.CaseSensitive = v.CaseSensitive
	case *Essay:
		r.SampleAnswer = v.SampleAnswer
		r.MinLength = v.MinLength
		r.MaxLength = v.MaxLength
	}
	return r
}

func fromRecord(r record) (Question, error) {
	h := Header{
		ID:          r.ID,
		Prompt:      r.Prompt,
		Points:      r.Points,
		Difficulty:  r.Difficulty,
		Hint:        r.Hint,
		Explanation: r.Explanation,
	}
	switch r.Type {
	case KindMultipleChoice:
		opts := markCorrect(r.Options, stringsOf(r.CorrectAnswer))
		return &MultipleChoice{Header: h, Options: opts}, nil
	case KindMultipleSelect:
		opts := markCorrect(r.Options, stringsOf(r.CorrectAnswer))
		return &MultipleSelect{Header: h, Options: opts}, nil
	case KindTrueFalse:
		b, ok := r.CorrectAnswer.(bool)
		if !ok && r.CorrectAnswer != nil {
			return nil, fmt.Errorf("question %q: true_false correct_answer must be a boolean", r.ID)
		}
		return &TrueFalse{Header: h, Answer: b}, nil
	case KindShortAnswer:
		s, _ := r.CorrectAnswer.(string)
		return &ShortAnswer{Header: h, Answer: s, Acceptable: r.Acceptable, CaseSensitive: r.CaseSensitive}, nil
	case KindFillBlank:
		blanks := r.Blanks
		if len(blanks) == 0 {
			// flat form: correct_answer is the per-blank list
			for _, s := range stringsOf(r.CorrectAnswer) {
				blanks = append(blanks, Blank{Answer: s})
			}
		}
		return &FillBlank{Header: h, Blanks: blanks, CaseSensitive: r.CaseSensitive}, nil
	case KindEssay:
		sample := r.SampleAnswer
		if sample == "" {
			sample, _ = r.CorrectAnswer.(string)
		}
		return &Essay{Header: h, SampleAnswer: sample, MinLength: r.MinLength, MaxLength: r.MaxLength}, nil
	default:
		return nil, fmt.Errorf("question %q: unknown type %q", r.ID, r.Type)
	}
}

// markCorrect sets the correctness flag of options named in ids. Options that
// already carry the flag keep it.
func markCorrect(opts []Option, ids []string) []Option {
	if len(ids) == 0 {
		return opts
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]Option, len(opts))
	for i, o := range opts {
		if _, ok := want[o.ID]; ok {
			o.Correct = true
		}
		out[i] = o
	}
	return out
}

func stringsOf(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (l QuestionList) MarshalJSON() ([]byte, error) {
	recs := make([]record, len(l))
	for i, q := range l {
		recs[i] = toRecord(q)
	}
	return json.Marshal(recs)
}

func (l *QuestionList) UnmarshalJSON(b []byte) error {
	var recs []record
	if err := json.Unmarshal(b, &recs); err != nil {
		return err
	}
	return l.fromRecords(recs)
}

func (l QuestionList) MarshalYAML() (interface{}, error) {
	recs := make([]record, len(l))
	for i, q := range l {
		recs[i] = toRecord(q)
	}
	return recs, nil
}

func (l *QuestionList) UnmarshalYAML(n *yaml.Node) error {
	var recs []record
	if err := n.Decode(&recs); err != nil {
		return err
	}
	return l.fromRecords(recs)
}

func (l *QuestionList) fromRecords(recs []record) error {
	out := make(QuestionList, 0, len(recs))
	for _, r := range recs {
		q, err := fromRecord(r)
		if err != nil {
			return err
		}
		out = append(out, q)
	}
	*l = out
	return nil
}

// DecodeYAML parses a quiz document in YAML form.
func DecodeYAML(b []byte) (*Quiz, error) {
	var q Quiz
	if err := yaml.Unmarshal(b, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// DecodeJSON parses a quiz document in JSON form.
func DecodeJSON(b []byte) (*Quiz, error) {
	var q Quiz
	if err := json.Unmarshal(b, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// AnswerKey returns the expected answer of q in its response shape: an option
// id, a list of option ids, a boolean, a string, or one string per blank.
// Essays return their sample answer.
func AnswerKey(q Question) any {
	switch v := q.(type) {
	case *FillBlank:
		out := make([]string, len(v.Blanks))
		for i, b := range v.Blanks {
			out[i] = b.Answer
		}
		return out
	case *Essay:
		return v.SampleAnswer
	}
	return toRecord(q).CorrectAnswer
}
