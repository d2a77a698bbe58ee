// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"madlibs-stories/internal/api"
	"madlibs-stories/internal/common/config"
	"madlibs-stories/internal/common/database"
	"madlibs-stories/internal/common/logger"
	"madlibs-stories/internal/gateway"
	"madlibs-stories/internal/store"
	"madlibs-stories/internal/story"
	"madlibs-stories/pkg/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenAI is a generation endpoint that echoes the prompt it received.
type fakeGenAI struct {
	mu      sync.Mutex
	prompts []string
	budgets []int
	fail    bool
}

func (f *fakeGenAI) handler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt    string `json:"prompt"`
		MaxTokens int    `json:"max_tokens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.budgets = append(f.budgets, req.MaxTokens)
	fail := f.fail
	f.mu.Unlock()

	if fail {
		http.Error(w, "model overloaded: internal trace id 7f3a", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"text":  "STORY: " + req.Prompt,
		"usage": map[string]int{"input_tokens": len(strings.Fields(req.Prompt)), "output_tokens": 42},
	})
}

func (f *fakeGenAI) calls() ([]string, []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...), append([]int(nil), f.budgets...)
}

type harness struct {
	server *httptest.Server
	genai  *fakeGenAI
	redis  *miniredis.Miniredis
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..")
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	genai := &fakeGenAI{}
	genaiSrv := httptest.NewServer(http.HandlerFunc(genai.handler))
	t.Cleanup(genaiSrv.Close)

	mr := miniredis.RunT(t)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfgYAML := fmt.Sprintf(`
app:
  name: madlibs-e2e
source:
  kind: registry
  registry_path: %s
cache:
  enabled: true
  ttl: 60
  prefix: e2e
genai:
  provider: http
  base_url: %s
  timeout: 5000
  default_max_tokens: 300
database:
  redis:
    address: %s
logging:
  level: debug
`, filepath.Join(repoRoot(t), "configs", "stories.yaml"), genaiSrv.URL, mr.Addr())
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o600))

	cfg, err := config.LoadFromFile(cfgPath)
	require.NoError(t, err)

	ctx := context.Background()
	log := logger.NewTestLogger(t)

	reg, err := registry.LoadRegistry(cfg.Source.RegistryPath)
	require.NoError(t, err)

	rdb, err := database.OpenRedis(ctx, cfg.Database.Redis)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	source := store.NewCachedSource(reg, rdb, cfg.Cache, log)

	gw, err := gateway.New(ctx, cfg.GenAI, nil)
	require.NoError(t, err)

	orch := story.NewOrchestrator(gw, log,
		story.WithSource(source),
		story.WithDefaultMaxTokens(cfg.GenAI.DefaultMaxTokens),
		story.WithProvider(cfg.GenAI.Provider),
	)
	handler := api.NewHandler(orch, story.NewCatalog(source), map[string]api.ReadinessCheck{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}, log)
	router := api.NewRouter(api.RouterConfig{Handler: handler, Logger: log, ServiceName: cfg.App.Name})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &harness{server: srv, genai: genai, redis: mr}
}

func (h *harness) post(t *testing.T, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(h.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (h *harness) get(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(h.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestE2E_InlinePromptStory(t *testing.T) {
	h := newHarness(t)

	status, body := h.post(t, "/api/generate-story", map[string]interface{}{
		"promptTemplate": "A {animal} walks into a bar.",
		"answers":        map[string]string{"animal": "giraffe"},
	})

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "STORY: A giraffe walks into a bar.", body["story"])
	usage := body["usage"].(map[string]interface{})
	assert.Equal(t, float64(6), usage["input_tokens"])
	assert.Equal(t, float64(42), usage["output_tokens"])

	prompts, budgets := h.genai.calls()
	assert.Equal(t, []string{"A giraffe walks into a bar."}, prompts)
	assert.Equal(t, []int{300}, budgets)
}

func TestE2E_TemplateStoryFromRegistry(t *testing.T) {
	h := newHarness(t)
	answers := map[string]string{"animal": "owl", "drink": "Warm milk", "complaint": "taxes"}

	for i := 0; i < 2; i++ {
		status, body := h.post(t, "/api/templates/bar-joke/stories", map[string]interface{}{"answers": answers})
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, body["story"], "A owl walks into a bar and orders a Warm milk.")
	}

	_, budgets := h.genai.calls()
	assert.Equal(t, []int{200, 200}, budgets)
	assert.True(t, h.redis.Exists("e2e:template:bar-joke"))
	assert.True(t, h.redis.Exists("e2e:prompt:t-bar-joke"))
}

func TestE2E_ValidationFailureNeverReachesGenAI(t *testing.T) {
	h := newHarness(t)

	status, body := h.post(t, "/api/templates/first-date/stories", map[string]interface{}{
		"answers": map[string]string{"name": "Sam", "place": "  "},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "A terrible date venue is required", body["error"])
	prompts, _ := h.genai.calls()
	assert.Empty(t, prompts)
}

func TestE2E_MissingPrompt(t *testing.T) {
	h := newHarness(t)

	status, body := h.post(t, "/api/templates/dragon-heist/stories", map[string]interface{}{
		"answers": map[string]string{"item": "a crown", "plan": "ask nicely"},
	})

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "PROMPT_UNAVAILABLE", body["code"])
}

func TestE2E_GenerationFailureIsHidden(t *testing.T) {
	h := newHarness(t)
	h.genai.fail = true

	status, body := h.post(t, "/api/generate-story", map[string]interface{}{
		"promptTemplate": "Hello {name}",
		"answers":        map[string]string{"name": "Ann"},
	})

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "Failed to generate story. Please try again.", body["error"])
	assert.NotContains(t, fmt.Sprint(body), "7f3a")
	prompts, _ := h.genai.calls()
	assert.Len(t, prompts, 1)
}

func TestE2E_Catalog(t *testing.T) {
	h := newHarness(t)

	status, body := h.get(t, "/api/templates?featured=true")
	require.Equal(t, http.StatusOK, status)
	templates := body["templates"].([]interface{})
	require.Len(t, templates, 2)
	assert.Equal(t, "bar-joke", templates[0].(map[string]interface{})["slug"])
	assert.Equal(t, "dragon-heist", templates[1].(map[string]interface{})["slug"])

	status, body = h.get(t, "/api/templates/first-date")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["promptAvailable"])
	assert.Equal(t, "Rom-com narration.", body["styleInstructions"])

	status, body = h.get(t, "/api/settings")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Mad Libs After Dark", body["siteTitle"])

	status, _ = h.get(t, "/ready")
	assert.Equal(t, http.StatusOK, status)
}
