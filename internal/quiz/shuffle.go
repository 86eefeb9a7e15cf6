package quiz

import (
	"math/rand/v2"
	"time"
)

// Shuffler randomizes the display order of multiple-choice options while
// keeping track of which option is correct.
type Shuffler struct {
	rng *rand.Rand
}

// NewShuffler creates a shuffler. A nil rng gets a time-seeded source.
func NewShuffler(rng *rand.Rand) *Shuffler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return &Shuffler{rng: rng}
}

// Shuffle permutes a multiple-choice question's option texts, reassigns
// letters in the new order, and points Correct at the letter now holding the
// originally correct text. Open questions pass through unchanged. The input is
// not mutated.
//
// If two options carried identical text the first matching letter would win;
// Validate rejects such questions before they get here.
func (s *Shuffler) Shuffle(q Question) Question {
	if q.Kind != KindMultipleChoice || len(q.Options) == 0 {
		return q
	}

	correctText, ok := q.CorrectText()
	if !ok {
		return q
	}

	texts := make([]string, len(q.Options))
	for i, opt := range q.Options {
		texts[i] = opt.Text
	}
	s.rng.Shuffle(len(texts), func(i, j int) {
		texts[i], texts[j] = texts[j], texts[i]
	})

	shuffled := q
	shuffled.Options = make([]Choice, len(texts))
	found := false
	for i, text := range texts {
		letter := string(rune('A' + i))
		shuffled.Options[i] = Choice{Letter: letter, Text: text}
		if !found && text == correctText {
			shuffled.Correct = letter
			found = true
		}
	}
	return shuffled
}
