// Package quiz turns sampled study material into validated, deduplicated quiz
// questions via an external text-generation service.
package quiz

import (
	"fmt"
	"time"
)

// Kind discriminates the question variants.
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindOpen           Kind = "open"
)

// optionCount is the fixed option arity for multiple-choice questions.
const optionCount = 4

// Choice is one displayed answer option. The slice order is the display order;
// letters are reassigned whenever that order changes.
type Choice struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question is a single generated quiz question. Options and Correct are only
// meaningful for the multiple-choice kind; Validate enforces that open
// questions carry neither.
type Question struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	Text        string   `json:"text"`
	Options     []Choice `json:"options,omitempty"`
	Correct     string   `json:"correct,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Topic       string   `json:"topic,omitempty"`
}

// CorrectText returns the text of the correct option.
func (q Question) CorrectText() (string, bool) {
	for _, opt := range q.Options {
		if opt.Letter == q.Correct {
			return opt.Text, true
		}
	}
	return "", false
}

// Validate checks the structural invariants of a question: four contiguously
// lettered options with unique non-empty text and a resolvable correct letter
// for multiple choice, and no options at all for open questions.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question has empty text")
	}

	switch q.Kind {
	case KindOpen:
		if len(q.Options) != 0 || q.Correct != "" {
			return fmt.Errorf("open question carries options")
		}
		return nil

	case KindMultipleChoice:
		if len(q.Options) != optionCount {
			return fmt.Errorf("expected %d options, got %d", optionCount, len(q.Options))
		}
		texts := make(map[string]bool, optionCount)
		correctFound := false
		for i, opt := range q.Options {
			if want := string(rune('A' + i)); opt.Letter != want {
				return fmt.Errorf("option %d lettered %q, want %q", i, opt.Letter, want)
			}
			if opt.Text == "" {
				return fmt.Errorf("option %s has empty text", opt.Letter)
			}
			if texts[opt.Text] {
				return fmt.Errorf("options %s and another share the text %q", opt.Letter, opt.Text)
			}
			texts[opt.Text] = true
			if opt.Letter == q.Correct {
				correctFound = true
			}
		}
		if !correctFound {
			return fmt.Errorf("correct answer %q is not an option letter", q.Correct)
		}
		return nil

	default:
		return fmt.Errorf("unknown question kind %q", q.Kind)
	}
}

// GenerationRequest describes one quiz-generation run. Empty Topics means all
// topics of the subject.
type GenerationRequest struct {
	Subject    string   `json:"subject"`
	Topics     []string `json:"topics,omitempty"`
	Count      int      `json:"count"`
	Kind       Kind     `json:"kind,omitempty"`
	OverSample int      `json:"-"`
}

// clamp fills defaults and bounds the requested count.
func (r *GenerationRequest) clamp(minCount, maxCount int) {
	if r.Kind == "" {
		r.Kind = KindMultipleChoice
	}
	if r.Count < minCount {
		r.Count = minCount
	}
	if r.Count > maxCount {
		r.Count = maxCount
	}
}

// Batch is the ordered result of one generation run. It may hold fewer
// questions than requested; that is a valid outcome, not an error.
type Batch struct {
	ID        string     `json:"id"`
	Subject   string     `json:"subject"`
	Requested int        `json:"requested"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"`
}

// Short reports whether the run fell short of the requested count.
func (b *Batch) Short() bool {
	return len(b.Questions) < b.Requested
}
