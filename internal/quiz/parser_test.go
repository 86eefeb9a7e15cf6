package quiz_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/quizforge/quizforge/internal/quiz"
)

const mcReply = `[
  {
    "question": "What does DNS resolve?",
    "options": {"A": "Names to addresses", "B": "Ports to services", "C": "Routes to hops", "D": "Frames to bits"},
    "correct_answer": "A",
    "explanation": "DNS maps hostnames to IP addresses."
  },
  {
    "question": "Which protocol is connectionless?",
    "options": {"A": "TCP", "B": "UDP", "C": "FTP", "D": "SMTP"},
    "correct_answer": "B",
    "explanation": "UDP provides no connection setup."
  }
]`

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"bare array", mcReply, nil},
		{"prose wrapped", "Sure! Here are your questions:\n" + mcReply + "\nHope this helps!", nil},
		{"markdown fence", "```json\n" + mcReply + "\n```", nil},
		{"no array", "I could not generate any questions.", quiz.ErrNoJSONFound},
		{"empty array", "[]", quiz.ErrNoJSONFound},
		{"empty string", "", quiz.ErrNoJSONFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := quiz.ExtractJSONArray(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasPrefix(got, "[") || !strings.HasSuffix(got, "]") {
				t.Errorf("extracted %q is not an array literal", got)
			}
		})
	}
}

func TestParseQuestions(t *testing.T) {
	questions, err := quiz.ParseQuestions(mcReply, quiz.KindMultipleChoice)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}

	q := questions[0]
	if q.ID == "" {
		t.Error("question missing generated ID")
	}
	if q.Kind != quiz.KindMultipleChoice {
		t.Errorf("kind = %q", q.Kind)
	}
	if q.Text != "What does DNS resolve?" {
		t.Errorf("text = %q", q.Text)
	}
	if len(q.Options) != 4 {
		t.Fatalf("got %d options", len(q.Options))
	}
	for i, opt := range q.Options {
		if want := string(rune('A' + i)); opt.Letter != want {
			t.Errorf("option %d lettered %q, want %q", i, opt.Letter, want)
		}
	}
	if text, _ := q.CorrectText(); text != "Names to addresses" {
		t.Errorf("correct text = %q", text)
	}
}

func TestParseQuestions_CanonicalizesLetters(t *testing.T) {
	reply := `[{"question": "Pick one.",
		"options": {"b": "beta", " a ": "alpha", "d": "delta", "c": "gamma"},
		"correct_answer": " b ",
		"explanation": "x"}]`

	questions, err := quiz.ParseQuestions(reply, quiz.KindMultipleChoice)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	q := questions[0]
	if q.Correct != "B" {
		t.Errorf("correct = %q, want B", q.Correct)
	}
	if text, _ := q.CorrectText(); text != "beta" {
		t.Errorf("correct text = %q, want beta", text)
	}
	if q.Options[0].Text != "alpha" {
		t.Errorf("option A text = %q, want alpha", q.Options[0].Text)
	}
}

func TestParseQuestions_Open(t *testing.T) {
	reply := `Here you go: [{"question": "Discuss paging versus segmentation.", "explanation": "Both manage memory."}]`

	questions, err := quiz.ParseQuestions(reply, quiz.KindOpen)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("got %d questions", len(questions))
	}
	if questions[0].Kind != quiz.KindOpen {
		t.Errorf("kind = %q", questions[0].Kind)
	}
	if len(questions[0].Options) != 0 {
		t.Error("open question should carry no options")
	}
}

func TestParseQuestions_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json", "nothing to see here"},
		{"schema violation: three options", `[{"question": "q", "options": {"A": "1", "B": "2", "C": "3"}, "correct_answer": "A"}]`},
		{"schema violation: missing question", `[{"options": {"A": "1", "B": "2", "C": "3", "D": "4"}, "correct_answer": "A"}]`},
		{"all questions invalid", `[{"question": "q", "options": {"A": "same", "B": "same", "C": "3", "D": "4"}, "correct_answer": "A", "explanation": "x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quiz.ParseQuestions(tt.raw, quiz.KindMultipleChoice)
			if !errors.Is(err, quiz.ErrMalformedOutput) {
				t.Errorf("error = %v, want ErrMalformedOutput", err)
			}
		})
	}
}

func TestParseQuestions_NoJSONIsSubCase(t *testing.T) {
	_, err := quiz.ParseQuestions("prose only", quiz.KindMultipleChoice)
	if !errors.Is(err, quiz.ErrNoJSONFound) {
		t.Errorf("error = %v, want to match ErrNoJSONFound", err)
	}
	if !errors.Is(err, quiz.ErrMalformedOutput) {
		t.Errorf("error = %v, want to also match ErrMalformedOutput", err)
	}
}

func TestParseQuestions_DropsInvalidKeepsValid(t *testing.T) {
	reply := `[
		{"question": "Good one?", "options": {"A": "1", "B": "2", "C": "3", "D": "4"}, "correct_answer": "A", "explanation": "x"},
		{"question": "Bad one?", "options": {"A": "1", "B": "2", "C": "3", "D": "4"}, "correct_answer": "Z", "explanation": "x"}
	]`

	questions, err := quiz.ParseQuestions(reply, quiz.KindMultipleChoice)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(questions))
	}
	if questions[0].Text != "Good one?" {
		t.Errorf("kept %q, want the valid question", questions[0].Text)
	}
}
