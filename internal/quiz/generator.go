package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quizforge/quizforge/internal/ai"
	"github.com/quizforge/quizforge/internal/material"
	"github.com/quizforge/quizforge/internal/platform/config"
)

// ErrUnknownTopic is returned when a requested topic does not exist in the
// subject's corpus.
var ErrUnknownTopic = errors.New("unknown topic")

// Generator runs the full generation pipeline: sample material, prompt the
// model, parse and validate the output, shuffle options and filter out
// questions the caller has already seen. It retries transient model failures
// within a bounded attempt budget and accepts a short batch when the budget
// runs out.
type Generator struct {
	store    *material.Store
	sampler  *material.Sampler
	shuffler *Shuffler
	provider ai.Provider
	cfg      config.GenerationConfig
	logger   *slog.Logger
}

// NewGenerator wires a generator from its collaborators. A nil logger falls
// back to slog.Default.
func NewGenerator(store *material.Store, provider ai.Provider, cfg config.GenerationConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		store:    store,
		sampler:  material.NewSampler(nil),
		shuffler: NewShuffler(nil),
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// Generate produces a batch of fresh questions for the request. The seen set
// carries fingerprints across calls; pass nil to disable deduplication
// against earlier runs. A batch shorter than requested is a success. The
// returned error is non-nil only for hard failures: unavailable corpus,
// unknown topics or context cancellation.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest, seen SeenSet) (*Batch, error) {
	batch := &Batch{
		ID:        uuid.NewString(),
		Subject:   req.Subject,
		CreatedAt: time.Now().UTC(),
	}
	err := g.run(ctx, req, seen, func(q Question) {
		batch.Questions = append(batch.Questions, q)
	})
	if err != nil {
		return nil, err
	}
	batch.Requested = clampedCount(req, g.cfg)
	return batch, nil
}

// GenerateStream runs the same pipeline but delivers questions on a channel
// as each attempt yields them. The channel is closed when the run reaches a
// terminal state; a hard failure before the first model call is reported
// synchronously, later failures end the stream early.
func (g *Generator) GenerateStream(ctx context.Context, req GenerationRequest, seen SeenSet) (<-chan Question, error) {
	group, topics, err := g.resolveTopics(req)
	if err != nil {
		return nil, err
	}
	out := make(chan Question)
	go func() {
		defer close(out)
		err := g.loop(ctx, req, seen, group, topics, func(q Question) {
			select {
			case out <- q:
			case <-ctx.Done():
			}
		})
		if err != nil {
			g.logger.Warn("streaming generation ended early", "error", err)
		}
	}()
	return out, nil
}

func clampedCount(req GenerationRequest, cfg config.GenerationConfig) int {
	req.clamp(cfg.MinQuestions, cfg.MaxQuestions)
	return req.Count
}

// run resolves the corpus and drives the attempt loop, handing each accepted
// question to emit.
func (g *Generator) run(ctx context.Context, req GenerationRequest, seen SeenSet, emit func(Question)) error {
	group, topics, err := g.resolveTopics(req)
	if err != nil {
		return err
	}
	return g.loop(ctx, req, seen, group, topics, emit)
}

// resolveTopics loads the subject corpus and resolves the requested topic
// list against it. Empty Topics selects every topic of the subject.
func (g *Generator) resolveTopics(req GenerationRequest) (material.TopicGroup, []string, error) {
	group, err := g.store.Group(req.Subject)
	if err != nil {
		return nil, nil, err
	}
	if len(req.Topics) == 0 {
		return group, group.Topics(), nil
	}
	for _, t := range req.Topics {
		if _, ok := group[t]; !ok {
			return nil, nil, fmt.Errorf("%w: %q in subject %q", ErrUnknownTopic, t, req.Subject)
		}
	}
	return group, req.Topics, nil
}

func (g *Generator) loop(ctx context.Context, req GenerationRequest, seen SeenSet, group material.TopicGroup, topics []string, emit func(Question)) error {
	req.clamp(g.cfg.MinQuestions, g.cfg.MaxQuestions)
	label := topicLabel(req.Subject, req.Topics, topics)
	overSample := req.OverSample
	if overSample <= 0 {
		overSample = g.cfg.OverSample
	}

	remaining := req.Count
	retry := false
	for attempt := 1; attempt <= g.cfg.MaxAttempts && remaining > 0; attempt++ {
		if retry {
			if err := g.wait(ctx); err != nil {
				return err
			}
			retry = false
		}

		content, askCount := g.sampleContent(group, req.Topics, topics, remaining, overSample)
		prompt := BuildPrompt(content, label, askCount, req.Kind, g.cfg.MaxContentChars)
		resp, err := g.provider.Complete(ctx, ai.CompletionRequest{
			Messages: []ai.Message{{Role: "user", Content: prompt}},
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.logger.Warn("model call failed", "attempt", attempt, "error", err)
			retry = true
			continue
		}

		questions, err := ParseQuestions(resp.Content, req.Kind)
		if err != nil {
			g.logger.Warn("model output unusable", "attempt", attempt, "error", err)
			retry = true
			continue
		}

		for i := range questions {
			questions[i].Topic = label
			questions[i] = g.shuffler.Shuffle(questions[i])
		}
		// An oversubscribed allocation can yield more than the shortfall;
		// the surplus is kept.
		fresh := FilterNew(questions, seen)
		for _, q := range fresh {
			emit(q)
		}
		remaining -= len(fresh)
		g.logger.Info("generation attempt done",
			"attempt", attempt, "produced", len(fresh), "remaining", remaining)
	}

	if remaining > 0 {
		g.logger.Warn("attempt budget exhausted, returning short batch",
			"subject", req.Subject, "missing", remaining)
	}
	return nil
}

// sampleContent draws the reference text for one attempt. A request naming
// explicit topics gets a per-topic allocation so each one is represented; a
// subject-wide request mixes passages from every topic instead.
func (g *Generator) sampleContent(group material.TopicGroup, requested, topics []string, remaining, overSample int) (string, int) {
	if len(requested) == 0 {
		return g.sampler.SampleAcrossTopics(group, topics, remaining, overSample), remaining
	}

	counts := material.AllocateCounts(topics, remaining)
	askCount := 0
	var sb strings.Builder
	for i, topic := range topics {
		if counts[i] == 0 {
			continue
		}
		askCount += counts[i]
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(g.sampler.SampleForTopic(group[topic], counts[i], overSample))
	}
	return sb.String(), askCount
}

// wait sleeps for the retry backoff, returning early if the context ends.
func (g *Generator) wait(ctx context.Context) error {
	if g.cfg.RetryBackoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// topicLabel renders the topic line used in prompts and on produced
// questions.
func topicLabel(subject string, requested, resolved []string) string {
	if len(requested) == 0 {
		return subject + " (all topics)"
	}
	return strings.Join(resolved, ", ")
}
