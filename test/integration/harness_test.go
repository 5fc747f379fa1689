//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jsamuelsen/quotebook/internal/adapters/http"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/bootstrap"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mirrorPost is one create request received by the fake mirror.
type mirrorPost struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	UserID    int    `json:"userId"`
	RequestID string `json:"-"`
}

// fakeMirror imitates a JSONPlaceholder style /posts collection.
// posts records every create request, including rejected ones. When keep is
// set, accepted posts are appended to the listed collection.
type fakeMirror struct {
	server *httptest.Server
	start  sync.Once

	mu         sync.Mutex
	titles     []string
	posts      []mirrorPost
	requestIDs []string
	keep       bool

	// hold runs at the start of every request. Set it before calling url.
	hold func(r *http.Request)

	// fail makes the next n requests answer 503.
	fail     atomic.Int32
	down     atomic.Bool
	requests atomic.Int32
}

func newFakeMirror(t *testing.T, titles ...string) *fakeMirror {
	t.Helper()

	m := &fakeMirror{titles: titles}
	m.server = httptest.NewUnstartedServer(m)
	t.Cleanup(m.server.Close)

	return m
}

// url starts the server on first use and returns its base URL.
func (m *fakeMirror) url() string {
	m.start.Do(m.server.Start)

	return m.server.URL
}

func (m *fakeMirror) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.requests.Add(1)

	if m.hold != nil {
		m.hold(r)
	}

	m.mu.Lock()
	m.requestIDs = append(m.requestIDs, r.Header.Get(middleware.HeaderRequestID))
	m.mu.Unlock()

	body, _ := io.ReadAll(r.Body)

	if r.Method == http.MethodPost {
		var post mirrorPost
		_ = json.Unmarshal(body, &post)
		post.RequestID = r.Header.Get(middleware.HeaderRequestID)

		m.mu.Lock()
		m.posts = append(m.posts, post)
		m.mu.Unlock()
	}

	if m.down.Load() {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if m.fail.Load() > 0 {
		m.fail.Add(-1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodPost:
		var post mirrorPost
		_ = json.Unmarshal(body, &post)

		m.mu.Lock()
		if m.keep {
			m.titles = append(m.titles, post.Title)
		}
		id := 100 + len(m.posts)
		m.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "title": post.Title})

	default:
		m.mu.Lock()
		items := make([]map[string]any, len(m.titles))
		for i, title := range m.titles {
			items[i] = map[string]any{"id": i + 1, "title": title, "body": "", "userId": 1}
		}
		m.mu.Unlock()

		_ = json.NewEncoder(w).Encode(items)
	}
}

func (m *fakeMirror) pushedTitles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	titles := make([]string, len(m.posts))
	for i, p := range m.posts {
		titles[i] = p.Title
	}

	return titles
}

func (m *fakeMirror) seenRequestIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.requestIDs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns an in-memory configuration pointed at the mirror.
func testConfig(t *testing.T, mirrorURL string) *config.Config {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.App.Environment = "test"
	cfg.Store.Driver = bootstrap.DriverMemory
	cfg.Store.SeedDefaults = false
	cfg.Services.Mirror.BaseURL = mirrorURL
	cfg.Client.Timeout = 2 * time.Second
	cfg.Client.Retry.MaxAttempts = 1
	cfg.Client.Retry.InitialInterval = 10 * time.Millisecond
	cfg.Client.Retry.MaxInterval = 100 * time.Millisecond
	cfg.Client.CircuitBreaker.Timeout = time.Second
	cfg.Messages.TTL = time.Minute

	return cfg
}

// stack is the whole service running in process.
type stack struct {
	t          *testing.T
	components *bootstrap.Components
	server     *httptest.Server
}

func newStack(t *testing.T, cfg *config.Config) *stack {
	t.Helper()

	require.NoError(t, cfg.Validate())

	c, err := bootstrap.Build(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	healthHandler := handlers.NewHealthHandler(c.Health, handlers.NewBuildInfo("test", "test", "test"))

	routerCfg := apphttp.NewDefaultRouterConfig(c.Logger, &cfg.App, &cfg.Auth, healthHandler)
	routerCfg.QuoteHandler = handlers.NewQuoteHandler(c.Book)
	routerCfg.SyncHandler = handlers.NewSyncHandler(c.Reconciler, c.Messages)

	engine := gin.New()
	apphttp.SetupRouter(engine, routerCfg)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return &stack{t: t, components: c, server: server}
}

// do issues a request against the stack and returns the status and body.
func (s *stack) do(method, path, body string, headers ...string) (int, []byte) {
	s.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, s.server.URL+path, reader)
	require.NoError(s.t, err)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.server.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)

	return resp.StatusCode, raw
}
