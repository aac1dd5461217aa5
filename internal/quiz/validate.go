package quiz

import (
	"fmt"
	"strings"
)

// Validate runs the authoring checks over a draft and returns every violation
// found. The draft may be published only when the result is empty.
func Validate(q *Quiz) []string {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(q.Title) == "" {
		add("Quiz title is required")
	}
	if len(q.Questions) == 0 {
		add("Quiz must have at least one question")
	}

	seen := map[string]int{}
	for i, qu := range q.Questions {
		n := i + 1
		h := qu.Common()
		if h.ID != "" {
			if first, dup := seen[h.ID]; dup {
				add("Question %d: id %q duplicates question %d", n, h.ID, first)
			} else {
				seen[h.ID] = n
			}
		}
		if strings.TrimSpace(h.Prompt) == "" {
			add("Question %d: prompt is required", n)
		}
		if h.Points <= 0 {
			add("Question %d: points must be greater than 0", n)
		}

		switch v := qu.(type) {
		case *MultipleChoice:
			errs = append(errs, validateOptions(n, v.Options)...)
		case *MultipleSelect:
			errs = append(errs, validateOptions(n, v.Options)...)
		case *TrueFalse:
			// fixed options, any boolean is a valid key
		case *ShortAnswer:
			if strings.TrimSpace(v.Answer) == "" {
				add("Question %d: correct answer is required", n)
			}
		case *Essay:
			if strings.TrimSpace(v.SampleAnswer) == "" {
				add("Question %d: sample answer is required", n)
			}
			if v.MaxLength > 0 && v.MinLength > v.MaxLength {
				add("Question %d: minimum length exceeds maximum length", n)
			}
		case *FillBlank:
			if len(v.Blanks) == 0 {
				add("Question %d: at least one blank answer is required", n)
			}
		}
	}

	s := q.Settings
	if s.PassingScore < 0 || s.PassingScore > 100 {
		add("Passing score must be between 0 and 100")
	}
	if s.MaxAttempts != nil && *s.MaxAttempts < 1 {
		add("Max attempts must be at least 1")
	}
	if s.TimeLimitMinutes != nil && *s.TimeLimitMinutes < 1 {
		add("Time limit must be at least 1 minute")
	}
	return errs
}

func validateOptions(n int, opts []Option) []string {
	var errs []string
	if len(opts) < 2 {
		errs = append(errs, fmt.Sprintf("Question %d: at least 2 options are required", n))
	}
	ids := map[string]bool{}
	hasCorrect := false
	for j, o := range opts {
		if strings.TrimSpace(o.Text) == "" {
			errs = append(errs, fmt.Sprintf("Question %d: option %d text is required", n, j+1))
		}
		if o.ID != "" {
			if ids[o.ID] {
				errs = append(errs, fmt.Sprintf("Question %d: duplicate option id %q", n, o.ID))
			}
			ids[o.ID] = true
		}
		hasCorrect = hasCorrect || o.Correct
	}
	if !hasCorrect {
		errs = append(errs, fmt.Sprintf("Question %d: at least one option must be marked correct", n))
	}
	return errs
}
