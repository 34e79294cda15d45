package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livp123/logsift/internal/config"
)

// fixedNow pins the clock so admin tokens stay valid for the whole test run.
var fixedNow = time.Date(2017, 6, 30, 12, 30, 0, 0, time.UTC)

func newTestServer() *Server {
	cfg := config.Default()
	s := NewServer(&cfg)
	s.now = func() time.Time { return fixedNow }
	return s
}

// postJSON sends a request through the full handler chain and returns the
// recorder.
func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

// envelope builds a valid request body for a regular user.
func envelope(method string, args map[string]any) map[string]any {
	return map[string]any{
		"account":   "horns&hoofs",
		"login":     "h&f",
		"token":     userDigest("horns&hoofs", "h&f"),
		"arguments": args,
		"method":    method,
	}
}

// TestMethodEnvelope tests envelope level behavior of POST /method
// TestMethodEnvelope 测试 POST /method 的信封层行为
func TestMethodEnvelope(t *testing.T) {
	s := newTestServer()

	t.Run("Malformed JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/method", strings.NewReader("{not json"))
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.Equal(t, "Bad Request", env["error"])
		assert.Equal(t, float64(http.StatusBadRequest), env["code"])
	})

	t.Run("JSON null body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/method", strings.NewReader("null"))
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("GET is not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/method", nil)
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)

		require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.Equal(t, "Method Not Allowed", env["error"])
	})

	t.Run("Invalid envelope enumerates fields", func(t *testing.T) {
		rr := postJSON(t, s, "/method", map[string]any{"account": "a"})

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		env := decodeEnvelope(t, rr)
		errs, ok := env["error"].(map[string]any)
		require.True(t, ok, "error payload should be a field map")
		for _, name := range []string{"login", "token", "arguments", "method"} {
			assert.Equal(t, "field is required, but not filled", errs[name], name)
		}
	})

	t.Run("Wrong token is forbidden", func(t *testing.T) {
		body := envelope("online_score", map[string]any{})
		body["token"] = "deadbeef"
		rr := postJSON(t, s, "/method", body)

		require.Equal(t, http.StatusForbidden, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.Equal(t, "Forbidden", env["error"])
	})

	t.Run("Missing account with a matching digest passes auth", func(t *testing.T) {
		body := map[string]any{
			"login":     "h&f",
			"token":     userDigest("", "h&f"),
			"arguments": map[string]any{"phone": "79175002040", "email": "a@b"},
			"method":    "online_score",
		}
		rr := postJSON(t, s, "/method", body)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Unknown method", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("horoscope", map[string]any{}))

		require.Equal(t, http.StatusNotFound, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.Contains(t, env["error"], "unknown method")
	})

	t.Run("Unknown path", func(t *testing.T) {
		rr := postJSON(t, s, "/nope", envelope("online_score", map[string]any{}))

		require.Equal(t, http.StatusNotFound, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.Equal(t, "Not Found", env["error"])
	})

	t.Run("Unknown envelope keys are ignored", func(t *testing.T) {
		body := envelope("online_score", map[string]any{"phone": "79175002040", "email": "a@b"})
		body["extra"] = "whatever"
		rr := postJSON(t, s, "/method", body)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

// TestOnlineScore tests the online_score method end to end
// TestOnlineScore 端到端测试 online_score 方法
func TestOnlineScore(t *testing.T) {
	s := newTestServer()

	score := func(t *testing.T, rr *httptest.ResponseRecorder) float64 {
		t.Helper()
		require.Equal(t, http.StatusOK, rr.Code)
		env := decodeEnvelope(t, rr)
		resp, ok := env["response"].(map[string]any)
		require.True(t, ok, "response payload should be an object")
		got, ok := resp["score"].(float64)
		require.True(t, ok, "score should be a number")
		return got
	}

	t.Run("Phone and email", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("online_score", map[string]any{
			"phone": "79175002040",
			"email": "stupnikov@otus.ru",
		}))
		assert.InDelta(t, 3.0, score(t, rr), 1e-9)
	})

	t.Run("Numeric phone", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("online_score", map[string]any{
			"phone": float64(79175002040),
			"email": "stupnikov@otus.ru",
		}))
		assert.InDelta(t, 3.0, score(t, rr), 1e-9)
	})

	t.Run("Everything filled", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("online_score", map[string]any{
			"phone": "79175002040", "email": "stupnikov@otus.ru",
			"first_name": "Stanislav", "last_name": "Stupnikov",
			"birthday": "01.01.1990", "gender": float64(1),
		}))
		assert.InDelta(t, 5.0, score(t, rr), 1e-9)
	})

	t.Run("Unknown gender with birthday is a valid pair scoring nothing", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("online_score", map[string]any{
			"gender": float64(0), "birthday": "01.01.1990",
		}))
		assert.InDelta(t, 0.0, score(t, rr), 1e-9)
	})

	t.Run("Admin always scores 42", func(t *testing.T) {
		body := map[string]any{
			"account":   "",
			"login":     adminLogin,
			"token":     adminDigest(fixedNow),
			"arguments": map[string]any{"phone": "79175002040", "email": "a@b"},
			"method":    "online_score",
		}
		rr := postJSON(t, s, "/method", body)
		assert.InDelta(t, 42.0, score(t, rr), 1e-9)
	})

	t.Run("No valid pairs", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("online_score", map[string]any{
			"first_name": "Stanislav",
		}))

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		env := decodeEnvelope(t, rr)
		errs := env["error"].(map[string]any)
		assert.Contains(t, errs, "pairs")
	})

	t.Run("Field errors and the pair error are reported together", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("online_score", map[string]any{
			"email": "no-at-sign",
		}))

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		env := decodeEnvelope(t, rr)
		errs := env["error"].(map[string]any)
		assert.Equal(t, "email has wrong format", errs["email"])
		assert.Contains(t, errs, "pairs")
	})

	t.Run("Empty arguments", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("online_score", map[string]any{}))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

// TestClientsInterests tests the clients_interests method end to end
// TestClientsInterests 端到端测试 clients_interests 方法
func TestClientsInterests(t *testing.T) {
	s := newTestServer()

	t.Run("Interests per client", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("clients_interests", map[string]any{
			"client_ids": []any{float64(1), float64(2), float64(3)},
			"date":       "19.07.2017",
		}))

		require.Equal(t, http.StatusOK, rr.Code)
		env := decodeEnvelope(t, rr)
		resp, ok := env["response"].(map[string]any)
		require.True(t, ok)
		require.Len(t, resp, 3)

		pool := make(map[string]bool, len(interestPool))
		for _, name := range interestPool {
			pool[name] = true
		}
		for _, id := range []string{"1", "2", "3"} {
			list, ok := resp[id].([]any)
			require.True(t, ok, "client %s missing", id)
			require.Len(t, list, 2)
			assert.NotEqual(t, list[0], list[1])
			assert.True(t, pool[list[0].(string)])
			assert.True(t, pool[list[1].(string)])
		}
	})

	t.Run("Empty client ids", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("clients_interests", map[string]any{
			"client_ids": []any{},
		}))

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		env := decodeEnvelope(t, rr)
		errs := env["error"].(map[string]any)
		assert.Contains(t, errs, "client_ids")
	})

	t.Run("Bad date", func(t *testing.T) {
		rr := postJSON(t, s, "/method", envelope("clients_interests", map[string]any{
			"client_ids": []any{float64(1)},
			"date":       "2017.07.19",
		}))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

// TestServerEndpoints tests the liveness, metrics and request id plumbing
// TestServerEndpoints 测试存活探针、指标端点与请求 ID 透传
func TestServerEndpoints(t *testing.T) {
	s := newTestServer()

	t.Run("Healthz", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.NotEmpty(t, body["version"])
		assert.NotEmpty(t, body["uptime"])
	})

	t.Run("Metrics endpoint serves Prometheus text", func(t *testing.T) {
		// The preceding healthz request must already be counted.
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "go_goroutines")
		assert.Contains(t, rr.Body.String(), `logsift_api_requests_total{code="200",path="/healthz"}`)
	})

	t.Run("Request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-Id", "req-42")
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)

		assert.Equal(t, "req-42", rr.Header().Get("X-Request-Id"))
	})

	t.Run("Request id is generated when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)

		assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	})
}
