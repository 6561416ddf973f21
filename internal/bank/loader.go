// Package bank loads question banks from the filesystem.
package bank

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

//go:embed schema/questions.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func bankSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Loader loads and caches the questions of every bank file below a root directory.
type Loader struct {
	rootDir   string
	questions []question.Question
	byID      map[string]int
	problems  []Problem
	mu        sync.RWMutex
}

// NewLoader creates a loader and loads all bank files. Invalid files and
// entries are skipped and reported through Problems.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		byID:    make(map[string]int),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading question bank: %w", err)
	}

	slog.Info("question bank loaded", "questions", len(l.questions), "problems", len(l.problems))
	return l, nil
}

// Questions returns every loaded question in file order.
func (l *Loader) Questions() []question.Question {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]question.Question, len(l.questions))
	copy(out, l.questions)
	return out
}

// Get returns a loaded question by ID.
func (l *Loader) Get(id string) (question.Question, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return question.Question{}, false
	}
	return l.questions[i], true
}

// Problems returns every validation finding collected while loading.
func (l *Loader) Problems() []Problem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Problem, len(l.problems))
	copy(out, l.problems)
	return out
}

// Stats summarizes the loaded bank.
type Stats struct {
	Total        int                         `json:"total"`
	BySubject    map[string]int              `json:"by_subject"`
	ByDifficulty map[question.Difficulty]int `json:"by_difficulty"`
	ByType       map[question.Type]int       `json:"by_type"`
	Subjects     []string                    `json:"subjects"`
}

// Stats counts loaded questions per subject, difficulty and type.
func (l *Loader) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Stats{
		Total:        len(l.questions),
		BySubject:    make(map[string]int),
		ByDifficulty: make(map[question.Difficulty]int),
		ByType:       make(map[question.Type]int),
	}
	for _, q := range l.questions {
		if s.BySubject[q.Subject] == 0 {
			s.Subjects = append(s.Subjects, q.Subject)
		}
		s.BySubject[q.Subject]++
		s.ByDifficulty[q.Difficulty]++
		s.ByType[q.Type]++
	}
	sort.Strings(s.Subjects)
	return s
}

func (l *Loader) loadAll() error {
	info, err := os.Stat(l.rootDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return l.loadFile(l.rootDir)
	}
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		return l.loadFile(path)
	})
}

func (l *Loader) loadFile(path string) error {
	switch {
	case strings.HasSuffix(path, ".questions.yaml") || strings.HasSuffix(path, ".questions.yml"):
		return l.loadYAML(path)
	case strings.HasSuffix(path, ".xlsx"):
		return l.loadWorkbook(path)
	}
	return nil
}

func (l *Loader) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		l.report(path, fmt.Sprintf("invalid YAML: %v", err))
		return nil
	}

	sch, err := bankSchema()
	if err != nil {
		return fmt.Errorf("compiling bank schema: %w", err)
	}
	result, err := sch.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		l.report(path, fmt.Sprintf("schema check failed: %v", err))
		return nil
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			l.report(path, e.String())
		}
		return nil
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		l.report(path, fmt.Sprintf("invalid YAML: %v", err))
		return nil
	}

	for i, entry := range file.Questions {
		q, err := entry.toQuestion(file)
		if err != nil {
			l.report(path, fmt.Sprintf("question %d: %v", i+1, err))
			continue
		}
		l.add(path, q)
	}
	return nil
}

func (e FileEntry) toQuestion(file File) (question.Question, error) {
	d, err := question.ParseDifficulty(e.Difficulty)
	if err != nil {
		return question.Question{}, err
	}
	t, err := question.ParseType(e.Type)
	if err != nil {
		return question.Question{}, err
	}
	q := question.Question{
		ID:            e.ID,
		Text:          strings.TrimSpace(e.Text),
		Type:          t,
		Subject:       firstNonEmpty(e.Subject, file.Subject),
		Topic:         firstNonEmpty(e.Topic, file.Topic),
		Difficulty:    d,
		Options:       e.Options,
		CorrectAnswer: strings.TrimSpace(e.CorrectAnswer),
		Explanation:   e.Explanation,
		Tags:          mergeTags(file.Tags, e.Tags),
		CreatedBy:     "bank",
	}
	return q, q.Validate()
}

// add registers q, deriving a stable ID from its fingerprint when the file
// does not set one. Later duplicates of an ID are reported and dropped.
func (l *Loader) add(path string, q question.Question) {
	if q.ID == "" {
		q.ID = StableID(q)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.byID[q.ID]; dup {
		l.problems = append(l.problems, Problem{Path: path, Message: fmt.Sprintf("duplicate question id %s", q.ID)})
		return
	}
	l.byID[q.ID] = len(l.questions)
	l.questions = append(l.questions, q)
}

func (l *Loader) report(path, msg string) {
	slog.Warn("skipping invalid bank entry", "path", path, "error", msg)
	l.mu.Lock()
	l.problems = append(l.problems, Problem{Path: path, Message: msg})
	l.mu.Unlock()
}

// StableID derives an ID from the question fingerprint, so reloading the same
// bank upserts instead of duplicating rows.
func StableID(q question.Question) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("pai-quiz:"+question.Fingerprint(q))).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func mergeTags(base, extra []string) []string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, tag := range append(append([]string{}, base...), extra...) {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}
