package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/generation"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/store"
)

var (
	chunkPattern   = regexp.MustCompile(`Generate PARTS (\d+)-(\d+)`)
	scriptPattern  = regexp.MustCompile(`Write the script for Part (\d+)`)
	rewritePattern = regexp.MustCompile(`(?m)^PART: (\d+)$`)
)

// scriptedProvider answers each kind of prompt with well-formed content.
type scriptedProvider struct {
	mu    sync.Mutex
	calls int
	fail  func(req provider.Request) error
}

func (p *scriptedProvider) Generate(_ context.Context, req provider.Request) (json.RawMessage, error) {
	p.mu.Lock()
	p.calls++
	fail := p.fail
	p.mu.Unlock()
	if fail != nil {
		if err := fail(req); err != nil {
			return nil, err
		}
	}

	switch {
	case req.Schema == provider.ScenesSchema:
		return json.RawMessage(`[{"segmentText":"Draft text","segmentTextUa":"Чернетка","imagePrompt":"Poster style, a road","imagePromptUa":"Плакат, дорога"}]`), nil
	case req.Schema == provider.ImagePromptSchema:
		return json.RawMessage(`{"imagePrompt":"Hyper-realistic road at dusk"}`), nil
	case req.Schema == provider.NicheAnalysisSchema:
		return json.RawMessage(`{"structurePrompt":"Plan {{TITLE}}","scriptPrompt":"Write part {{CURRENT_PART_NUM}}"}`), nil
	case req.Schema == provider.KeywordsSchema:
		return json.RawMessage(`["tanks","convoy"]`), nil
	case chunkPattern.MatchString(req.Prompt):
		m := chunkPattern.FindStringSubmatch(req.Prompt)
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		return structureItems("Part", from, to), nil
	case scriptPattern.MatchString(req.Prompt):
		n := scriptPattern.FindStringSubmatch(req.Prompt)[1]
		return scriptBody("Part "+n+"\nDraft text "+n, "Чернетка "+n), nil
	case rewritePattern.MatchString(req.Prompt):
		n := rewritePattern.FindStringSubmatch(req.Prompt)[1]
		return scriptBody("Rewritten "+n, "Переписано "+n), nil
	case strings.Contains(req.Prompt, "Current Structure:"):
		return structureItems("Refined", 1, 2), nil
	case strings.Contains(req.Prompt, "refinedPrompt"):
		return json.RawMessage(`{"refinedPrompt":"Sharper prompt"}`), nil
	}
	return nil, fmt.Errorf("%w: unexpected prompt", domain.ErrMalformedResponse)
}

func structureItems(prefix string, from, to int) json.RawMessage {
	items := make([]map[string]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		items = append(items, map[string]string{
			"title":             fmt.Sprintf("%s %d", prefix, i),
			"titleUa":           fmt.Sprintf("Частина %d", i),
			"description":       fmt.Sprintf("Beat %d", i),
			"descriptionUa":     fmt.Sprintf("Подія %d", i),
			"estimatedDuration": "3 min",
		})
	}
	b, _ := json.Marshal(map[string]interface{}{"items": items})
	return b
}

func scriptBody(en, ua string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"scriptEnglish": en, "scriptUkrainian": ua})
	return b
}

// memStorage is an in-memory ObjectStorage.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) GetURL(key string) string {
	return "https://cdn.test/" + key
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

// memCollections is an in-memory persistence.Collections.
type memCollections struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

func newMemCollections() *memCollections {
	return &memCollections{data: map[string][]byte{}}
}

func (m *memCollections) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.data[name]; ok {
		return d, nil
	}
	return []byte("[]"), nil
}

func (m *memCollections) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *memCollections) get(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[name]
}

type serviceEnv struct {
	projects   *store.ProjectStore
	niches     *store.NicheStore
	provider   *scriptedProvider
	storage    *memStorage
	notices    *NoticeFeed
	dispatcher *LocalDispatcher
	svc        *ProjectService
	nicheSvc   *NicheService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	env := &serviceEnv{
		projects: store.NewProjectStore(),
		niches:   store.NewNicheStore(store.DefaultNiches()...),
		provider: &scriptedProvider{},
		storage:  newMemStorage(),
		notices:  NewNoticeFeed(50),
	}
	engine := generation.NewEngine(generation.Deps{
		Provider: env.provider,
		Store:    env.projects,
		Niches:   env.niches,
		Cost:     generation.NewCostMeter(nil),
		Retry: &generation.RetryPolicy{
			MaxRetries:   1,
			InitialDelay: time.Millisecond,
			Sleep:        func(context.Context, time.Duration) error { return nil },
		},
		Notifier: env.notices,
	})
	env.dispatcher = NewLocalDispatcher(NewExecutor(engine, env.projects))
	env.svc = NewProjectService(ProjectServiceDeps{
		Projects:   env.projects,
		Niches:     env.niches,
		Engine:     engine,
		Dispatcher: env.dispatcher,
		Storage:    env.storage,
		Notices:    env.notices,
	})
	env.nicheSvc = NewNicheService(env.niches, engine.Refine, engine.Analysis)
	return env
}

func topic(title string, structs, scripts float64) domain.TopicRequest {
	return domain.TopicRequest{
		Title:             title,
		NicheID:           "caprio",
		DurationMinutes:   9,
		StructureVariants: structs,
		ScriptVariants:    scripts,
	}
}
