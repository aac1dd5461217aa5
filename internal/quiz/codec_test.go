package quiz

import (
	"encoding/json"
	"testing"
)

const draftYAML = `
id: geo-1
title: Geography
published: true
settings:
  passing_score: 60
  time_limit_minutes: 10
  allow_multiple_attempts: true
  max_attempts: 3
questions:
  - id: q1
    type: multiple_choice
    prompt: Largest ocean?
    points: 2
    options:
      - {id: a, text: Atlantic}
      - {id: b, text: Pacific}
    correct_answer: b
  - id: q2
    type: multiple_select
    prompt: Landlocked countries
    points: 3
    options:
      - {id: x, text: Austria}
      - {id: y, text: Bolivia}
      - {id: z, text: Chile}
    correct_answer: [x, y]
  - id: q3
    type: true_false
    prompt: The Nile flows north
    points: 1
    correct_answer: true
  - id: q4
    type: fill_blank
    prompt: "__ is the capital of __"
    points: 2
    correct_answer: [Rome, Italy]
  - id: q5
    type: short_answer
    prompt: Capital of France
    points: 1
    correct_answer: Paris
    acceptable_answers: [Paname]
`

func TestDecodeYAMLDraft(t *testing.T) {
	q, err := DecodeYAML([]byte(draftYAML))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(q.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(q.Questions))
	}
	if *q.Settings.TimeLimitMinutes != 10 || *q.Settings.MaxAttempts != 3 {
		t.Fatalf("settings not decoded: %+v", q.Settings)
	}

	mc, ok := q.Questions[0].(*MultipleChoice)
	if !ok || mc.CorrectOptionID() != "b" {
		t.Fatalf("q1: want multiple_choice keyed b, got %#v", q.Questions[0])
	}
	ms := q.Questions[1].(*MultipleSelect)
	if got := ms.CorrectOptionIDs(); len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Fatalf("q2: correct ids %v", got)
	}
	if tf := q.Questions[2].(*TrueFalse); !tf.Answer {
		t.Fatal("q3: expected true")
	}
	fb := q.Questions[3].(*FillBlank)
	if len(fb.Blanks) != 2 || fb.Blanks[1].Answer != "Italy" {
		t.Fatalf("q4: blanks %+v", fb.Blanks)
	}
	sa := q.Questions[4].(*ShortAnswer)
	if sa.Answer != "Paris" || len(sa.Acceptable) != 1 {
		t.Fatalf("q5: %+v", sa)
	}
	if errs := Validate(q); len(errs) != 0 {
		t.Fatalf("decoded draft should be valid: %v", errs)
	}
}

func TestQuestionListJSONKeepsVariants(t *testing.T) {
	src, err := DecodeYAML([]byte(draftYAML))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(src)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := DecodeJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	for i := range src.Questions {
		if src.Questions[i].Kind() != dst.Questions[i].Kind() {
			t.Errorf("question %d: kind %s became %s", i, src.Questions[i].Kind(), dst.Questions[i].Kind())
		}
	}
	if dst.TotalPoints() != 9 {
		t.Fatalf("expected 9 total points, got %d", dst.TotalPoints())
	}
}

func TestUnknownQuestionTypeRejected(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"title":"x","questions":[{"id":"q","type":"matching"}]}`))
	if err == nil {
		t.Fatal("expected error for unknown question type")
	}
}

func TestDecodeResponseShapes(t *testing.T) {
	q, _ := DecodeYAML([]byte(draftYAML))
	cases := []struct {
		idx  int
		raw  string
		want Response
		bad  bool
	}{
		{0, `"b"`, ChoiceResponse("b"), false},
		{1, `["y","x"]`, nil, false},
		{2, `false`, BoolResponse(false), false},
		{3, `["Rome","Italy"]`, nil, false},
		{4, `"paris"`, TextResponse("paris"), false},
		{0, `["b"]`, nil, true},
		{2, `"yes"`, nil, true},
		{4, `null`, nil, false},
	}
	for _, c := range cases {
		r, err := DecodeResponse(q.Questions[c.idx], json.RawMessage(c.raw))
		if c.bad {
			if err == nil {
				t.Errorf("%s on question %d: expected error", c.raw, c.idx)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s on question %d: %v", c.raw, c.idx, err)
			continue
		}
		if c.want != nil && r != c.want {
			t.Errorf("%s on question %d: got %#v", c.raw, c.idx, r)
		}
		if !Accepts(q.Questions[c.idx], r) {
			t.Errorf("%s on question %d: decoded value not accepted", c.raw, c.idx)
		}
	}
}
