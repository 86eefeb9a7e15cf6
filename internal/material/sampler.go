package material

import (
	"math/rand/v2"
	"strings"
	"time"
)

const passageSeparator = "\n\n"

// Sampler draws random passages for prompt content.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler creates a sampler. A nil rng gets a time-seeded source;
// tests pass a fixed one for determinism.
func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return &Sampler{rng: rng}
}

// SampleForTopic picks n+extra passages and joins their content with a blank
// line. With a big enough pool it picks without replacement; a smaller pool is
// drawn from with replacement until the target count is reached. An empty pool
// yields "".
func (s *Sampler) SampleForTopic(passages []Passage, n, extra int) string {
	need := n + extra
	if len(passages) == 0 || need <= 0 {
		return ""
	}

	picked := make([]Passage, 0, need)
	if len(passages) >= need {
		for _, ix := range s.rng.Perm(len(passages))[:need] {
			picked = append(picked, passages[ix])
		}
	} else {
		for len(picked) < need {
			picked = append(picked, passages[s.rng.IntN(len(passages))])
		}
	}

	return joinContent(picked)
}

// AllocateCounts distributes desired across topics. When desired is smaller
// than the topic count, every topic still gets one question: the run is
// intentionally oversubscribed so each chosen topic is represented. Otherwise
// a largest-remainder split sums exactly to desired.
func AllocateCounts(topics []string, desired int) []int {
	if len(topics) == 0 {
		return nil
	}

	counts := make([]int, len(topics))
	if desired < len(topics) {
		for i := range counts {
			counts[i] = 1
		}
		return counts
	}

	base := desired / len(topics)
	rem := desired % len(topics)
	for i := range counts {
		counts[i] = base
		if i < rem {
			counts[i]++
		}
	}
	return counts
}

// SampleAcrossTopics pools the listed topics' passages and draws n+extra with
// replacement, mixing topics in a single content block.
func (s *Sampler) SampleAcrossTopics(group TopicGroup, topics []string, n, extra int) string {
	need := n + extra
	if need <= 0 {
		return ""
	}

	var pool []Passage
	for _, topic := range topics {
		pool = append(pool, group[topic]...)
	}
	if len(pool) == 0 {
		return ""
	}

	picked := make([]Passage, 0, need)
	for len(picked) < need {
		picked = append(picked, pool[s.rng.IntN(len(pool))])
	}
	return joinContent(picked)
}

func joinContent(passages []Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Content
	}
	return strings.Join(parts, passageSeparator)
}
