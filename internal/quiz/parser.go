package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrNoJSONFound is returned when the model's reply contains no JSON
	// array at all.
	ErrNoJSONFound = errors.New("no JSON array found in model output")

	// ErrMalformedOutput is returned when the reply's JSON does not yield a
	// single valid question. ErrNoJSONFound is a sub-case and matches it.
	ErrMalformedOutput = errors.New("malformed model output")
)

// The model gives no format guarantee, so the array is located with a
// greedy-but-bounded match over the raw reply before any JSON parsing.
var jsonArrayRe = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)

// JSON Schemas enforced on the extracted array, per question kind. Validating
// before decoding gives precise failure reasons for replies that are valid
// JSON but not valid question lists.
const (
	multipleChoiceSchema = `{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"properties": {
				"question": {"type": "string", "minLength": 1},
				"options": {
					"type": "object",
					"minProperties": 4,
					"maxProperties": 4,
					"additionalProperties": {"type": "string"}
				},
				"correct_answer": {"type": "string", "minLength": 1},
				"explanation": {"type": "string"}
			},
			"required": ["question", "options", "correct_answer"]
		}
	}`

	openSchema = `{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"properties": {
				"question": {"type": "string", "minLength": 1},
				"explanation": {"type": "string", "minLength": 1}
			},
			"required": ["question", "explanation"]
		}
	}`
)

// ExtractJSONArray returns the first substring of raw that looks like a JSON
// array of objects, verbatim, ignoring any surrounding prose.
func ExtractJSONArray(raw string) (string, error) {
	match := jsonArrayRe.FindString(raw)
	if match == "" {
		return "", ErrNoJSONFound
	}
	return match, nil
}

// rawQuestion is the wire shape the prompt asks the model for.
type rawQuestion struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
}

// ParseQuestions extracts the JSON array from a raw model reply, validates it
// against the kind's schema, and decodes it into Questions. Individually
// broken questions are dropped with a warning; the reply as a whole fails with
// ErrMalformedOutput only when it yields no valid question at all.
func ParseQuestions(raw string, kind Kind) ([]Question, error) {
	extracted, err := ExtractJSONArray(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	schema := multipleChoiceSchema
	if kind == KindOpen {
		schema = openSchema
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(extracted),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMalformedOutput, schemaErrors(result))
	}

	var rawQuestions []rawQuestion
	if err := json.Unmarshal([]byte(extracted), &rawQuestions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	questions := make([]Question, 0, len(rawQuestions))
	for i, rq := range rawQuestions {
		q, err := rq.question(kind)
		if err != nil {
			slog.Warn("dropping invalid question from model reply", "index", i, "error", err)
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no valid questions in reply", ErrMalformedOutput)
	}
	return questions, nil
}

func (rq rawQuestion) question(kind Kind) (Question, error) {
	q := Question{
		ID:          uuid.NewString(),
		Kind:        kind,
		Text:        strings.TrimSpace(rq.Question),
		Explanation: strings.TrimSpace(rq.Explanation),
	}

	if kind == KindMultipleChoice {
		letters := make([]string, 0, len(rq.Options))
		for letter := range rq.Options {
			letters = append(letters, strings.ToUpper(strings.TrimSpace(letter)))
		}
		sort.Strings(letters)

		for _, letter := range letters {
			text := rq.Options[findOriginalKey(rq.Options, letter)]
			q.Options = append(q.Options, Choice{Letter: letter, Text: strings.TrimSpace(text)})
		}
		q.Correct = strings.ToUpper(strings.TrimSpace(rq.CorrectAnswer))
	}

	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// findOriginalKey maps a canonicalized letter back to the key the model used.
func findOriginalKey(options map[string]string, letter string) string {
	for k := range options {
		if strings.ToUpper(strings.TrimSpace(k)) == letter {
			return k
		}
	}
	return letter
}

func schemaErrors(result *gojsonschema.Result) string {
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}
