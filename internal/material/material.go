// Package material loads and samples the study-material corpus that quiz
// questions are generated from.
package material

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// ErrCorpusUnavailable is returned when a corpus cannot be read or does not
// contain well-formed passage records. It is a hard, load-time failure.
var ErrCorpusUnavailable = errors.New("corpus unavailable")

// Passage is one study-material excerpt, immutable once loaded.
type Passage struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

// TopicGroup maps a topic label to its passages in encounter order.
type TopicGroup map[string][]Passage

// Topics returns the group's labels, sorted.
func (g TopicGroup) Topics() []string {
	labels := make([]string, 0, len(g))
	for label := range g {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// GroupByTopic groups passages by topic label in encounter order. Topics with
// no passages never appear as keys.
func GroupByTopic(passages []Passage) TopicGroup {
	grouped := make(TopicGroup)
	for _, p := range passages {
		grouped[p.Topic] = append(grouped[p.Topic], p)
	}
	return grouped
}

// Subject is one manifest entry: a display name plus the corpus file behind it.
type Subject struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

type manifest struct {
	Subjects []Subject `yaml:"subjects"`
}

// Store resolves subjects to corpora and caches loaded passages.
type Store struct {
	rootDir  string
	subjects []Subject
	byName   map[string]Subject
	corpora  map[string][]Passage
	mu       sync.RWMutex
}

// NewStore reads subjects.yaml from rootDir and prepares the store. Corpora
// themselves are loaded lazily per subject.
func NewStore(rootDir string) (*Store, error) {
	data, err := os.ReadFile(filepath.Join(rootDir, "subjects.yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: reading subjects manifest: %v", ErrCorpusUnavailable, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing subjects manifest: %v", ErrCorpusUnavailable, err)
	}
	if len(m.Subjects) == 0 {
		return nil, fmt.Errorf("%w: subjects manifest lists no subjects", ErrCorpusUnavailable)
	}

	s := &Store{
		rootDir:  rootDir,
		subjects: m.Subjects,
		byName:   make(map[string]Subject, len(m.Subjects)),
		corpora:  make(map[string][]Passage),
	}
	for _, sub := range m.Subjects {
		if sub.Name == "" || sub.File == "" {
			return nil, fmt.Errorf("%w: manifest entry missing name or file", ErrCorpusUnavailable)
		}
		s.byName[sub.Name] = sub
	}

	slog.Info("corpus store ready", "root", rootDir, "subjects", len(m.Subjects))
	return s, nil
}

// Subjects lists manifest entries in manifest order.
func (s *Store) Subjects() []Subject {
	out := make([]Subject, len(s.subjects))
	copy(out, s.subjects)
	return out
}

// Load returns the passages of a subject's corpus, loading and caching on
// first use.
func (s *Store) Load(subject string) ([]Passage, error) {
	s.mu.RLock()
	if passages, ok := s.corpora[subject]; ok {
		s.mu.RUnlock()
		return passages, nil
	}
	s.mu.RUnlock()

	sub, ok := s.byName[subject]
	if !ok {
		return nil, fmt.Errorf("%w: unknown subject %q", ErrCorpusUnavailable, subject)
	}

	passages, err := loadFile(filepath.Join(s.rootDir, sub.File))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.corpora[subject] = passages
	s.mu.Unlock()

	slog.Info("corpus loaded", "subject", subject, "passages", len(passages))
	return passages, nil
}

// Topics returns a subject's topic labels, sorted.
func (s *Store) Topics(subject string) ([]string, error) {
	passages, err := s.Load(subject)
	if err != nil {
		return nil, err
	}
	return GroupByTopic(passages).Topics(), nil
}

// Group returns a subject's passages grouped by topic.
func (s *Store) Group(subject string) (TopicGroup, error) {
	passages, err := s.Load(subject)
	if err != nil {
		return nil, err
	}
	return GroupByTopic(passages), nil
}

func loadFile(path string) ([]Passage, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: unsupported corpus format %q", ErrCorpusUnavailable, filepath.Ext(path))
	}
}

// corpusRecord accepts both "topic" and the legacy "summary" label field.
type corpusRecord struct {
	Topic   string `json:"topic"`
	Summary string `json:"summary"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

func (r corpusRecord) passage() (Passage, error) {
	topic := r.Topic
	if topic == "" {
		topic = r.Summary
	}
	if topic == "" || r.Content == "" {
		return Passage{}, fmt.Errorf("record missing topic or content")
	}
	return Passage{Topic: topic, Content: r.Content, Source: r.Source}, nil
}

func loadJSON(path string) ([]Passage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCorpusUnavailable, filepath.Base(path), err)
	}

	var records []corpusRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrCorpusUnavailable, filepath.Base(path), err)
	}

	passages := make([]Passage, 0, len(records))
	for i, r := range records {
		p, err := r.passage()
		if err != nil {
			return nil, fmt.Errorf("%w: %s record %d: %v", ErrCorpusUnavailable, filepath.Base(path), i, err)
		}
		passages = append(passages, p)
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: %s holds no passages", ErrCorpusUnavailable, filepath.Base(path))
	}
	return passages, nil
}

func loadXLSX(path string) ([]Passage, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrCorpusUnavailable, filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCorpusUnavailable, filepath.Base(path), err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrCorpusUnavailable, filepath.Base(path))
	}

	// Header row names the columns; topic/summary and content are required.
	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	topicCol, ok := cols["topic"]
	if !ok {
		topicCol, ok = cols["summary"]
	}
	contentCol, okContent := cols["content"]
	if !ok || !okContent {
		return nil, fmt.Errorf("%w: %s missing topic/content columns", ErrCorpusUnavailable, filepath.Base(path))
	}
	sourceCol, hasSource := cols["source"]

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var passages []Passage
	for i, row := range rows[1:] {
		p := Passage{Topic: cell(row, topicCol), Content: cell(row, contentCol)}
		if hasSource {
			p.Source = cell(row, sourceCol)
		}
		if p.Topic == "" && p.Content == "" {
			continue // trailing blank row
		}
		if p.Topic == "" || p.Content == "" {
			return nil, fmt.Errorf("%w: %s row %d missing topic or content", ErrCorpusUnavailable, filepath.Base(path), i+2)
		}
		passages = append(passages, p)
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: %s holds no passages", ErrCorpusUnavailable, filepath.Base(path))
	}
	return passages, nil
}
