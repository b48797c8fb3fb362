package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/store"
)

// fakeProvider records requests and answers them with respond.
type fakeProvider struct {
	mu       sync.Mutex
	requests []provider.Request
	inFlight int
	maxPar   int
	respond  func(n int, req provider.Request) (json.RawMessage, error)
}

func (f *fakeProvider) Generate(ctx context.Context, req provider.Request) (json.RawMessage, error) {
	f.mu.Lock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	f.inFlight++
	if f.inFlight > f.maxPar {
		f.maxPar = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	return f.respond(n, req)
}

func (f *fakeProvider) calls() []provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Request(nil), f.requests...)
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (r *noticeRecorder) Notify(_ context.Context, n domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) all() []domain.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notice(nil), r.notices...)
}

func noSleep(context.Context, time.Duration) error { return nil }

type testEnv struct {
	engine   *Engine
	store    *store.ProjectStore
	niches   *store.NicheStore
	provider *fakeProvider
	notices  *noticeRecorder
}

func newTestEnv(t *testing.T, respond func(n int, req provider.Request) (json.RawMessage, error), projects ...domain.Project) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    store.NewProjectStore(projects...),
		niches:   store.NewNicheStore(store.DefaultNiches()...),
		provider: &fakeProvider{respond: respond},
		notices:  &noticeRecorder{},
	}
	env.engine = NewEngine(Deps{
		Provider: env.provider,
		Store:    env.store,
		Niches:   env.niches,
		Cost:     NewCostMeter(nil),
		Retry:    &RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, Sleep: noSleep},
		Notifier: env.notices,
	})
	return env
}

var (
	chunkTaskPattern   = regexp.MustCompile(`Generate PARTS (\d+)-(\d+)`)
	scriptTaskPattern  = regexp.MustCompile(`Write the script for Part (\d+)`)
	rewritePartPattern = regexp.MustCompile(`(?m)^PART: (\d+)$`)
)

// chunkRange returns the 1-based part range a structure chunk prompt asks for.
func chunkRange(prompt string) (int, int) {
	m := chunkTaskPattern.FindStringSubmatch(prompt)
	if m == nil {
		return 0, 0
	}
	from, _ := strconv.Atoi(m[1])
	to, _ := strconv.Atoi(m[2])
	return from, to
}

func partNumber(pattern *regexp.Regexp, prompt string) int {
	m := pattern.FindStringSubmatch(prompt)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func structureJSON(from, to int) json.RawMessage {
	items := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		items = append(items, fmt.Sprintf(`{"title":"Part %d","titleUa":"Частина %d","description":"Beat %d","descriptionUa":"Подія %d","estimatedDuration":"3 min"}`, i, i, i, i))
	}
	return json.RawMessage(`{"items":[` + strings.Join(items, ",") + `]}`)
}

func scriptJSON(en, ua string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"scriptEnglish": en, "scriptUkrainian": ua})
	return b
}

// structuredProject returns a project with n structure sections and, when withScript
// is set, n written script sections.
func structuredProject(id int64, n int, withScript bool) domain.Project {
	p := domain.Project{
		ID:              id,
		BatchID:         "batch-1",
		Title:           "The Long Road",
		Variant:         domain.DecodeTitle("The Long Road"),
		NicheID:         "caprio",
		DurationMinutes: 15,
	}
	for i := 0; i < n; i++ {
		p.Structure = append(p.Structure, domain.StructureSection{Title: fmt.Sprintf("Part %d", i+1), Description: fmt.Sprintf("Beat %d", i+1)})
		if withScript {
			p.ScriptParts = append(p.ScriptParts, domain.ScriptSection{
				ID:           domain.SectionID(id, i),
				SectionTitle: fmt.Sprintf("Part %d", i+1),
				ContentEn:    fmt.Sprintf("Original text %d", i+1),
				ContentUa:    fmt.Sprintf("Оригінал %d", i+1),
			})
		}
	}
	return p
}
