package quiz

import (
	"encoding/json"
	"fmt"
)

// Response is a submitted value. The concrete type depends on the kind of
// question it answers.
type Response interface {
	// Shape names the question kind the value is shaped for.
	Shape() Kind
}

// ChoiceResponse is the selected option id of a multiple_choice question.
type ChoiceResponse string

// SelectResponse is the set of option ids selected on a multiple_select question.
type SelectResponse []string

type BoolResponse bool

// TextResponse answers short_answer and essay questions.
type TextResponse string

// BlanksResponse holds one string per blank of a fill_blank question.
type BlanksResponse []string

func (ChoiceResponse) Shape() Kind { return KindMultipleChoice }
func (SelectResponse) Shape() Kind { return KindMultipleSelect }
func (BoolResponse) Shape() Kind   { return KindTrueFalse }
func (TextResponse) Shape() Kind   { return KindShortAnswer }
func (BlanksResponse) Shape() Kind { return KindFillBlank }

// Accepts reports whether r has the value shape expected by q.
func Accepts(q Question, r Response) bool {
	if r == nil {
		return true
	}
	switch q.(type) {
	case *MultipleChoice:
		_, ok := r.(ChoiceResponse)
		return ok
	case *MultipleSelect:
		_, ok := r.(SelectResponse)
		return ok
	case *TrueFalse:
		_, ok := r.(BoolResponse)
		return ok
	case *ShortAnswer, *Essay:
		_, ok := r.(TextResponse)
		return ok
	case *FillBlank:
		_, ok := r.(BlanksResponse)
		return ok
	}
	return false
}

// DecodeResponse interprets raw JSON as the value shape q expects. A JSON null
// or empty input decodes to a nil Response (unanswered).
func DecodeResponse(q Question, raw json.RawMessage) (Response, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return DecodeShape(q.Kind(), raw)
}

// DecodeShape decodes raw JSON into the response type for kind.
func DecodeShape(kind Kind, raw json.RawMessage) (Response, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch kind {
	case KindMultipleChoice:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%s answer must be an option id: %w", kind, err)
		}
		return ChoiceResponse(s), nil
	case KindMultipleSelect:
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, fmt.Errorf("%s answer must be a list of option ids: %w", kind, err)
		}
		return SelectResponse(ids), nil
	case KindTrueFalse:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%s answer must be a boolean: %w", kind, err)
		}
		return BoolResponse(b), nil
	case KindShortAnswer, KindEssay:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%s answer must be a string: %w", kind, err)
		}
		return TextResponse(s), nil
	case KindFillBlank:
		var parts []string
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, fmt.Errorf("%s answer must be a list of strings: %w", kind, err)
		}
		return BlanksResponse(parts), nil
	}
	return nil, fmt.Errorf("unknown question type %q", kind)
}
