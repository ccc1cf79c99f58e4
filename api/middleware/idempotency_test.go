package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/resale-backend/api/validators"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
)

type memoryReplayStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryReplayStore() *memoryReplayStore {
	return &memoryReplayStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memoryReplayStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *memoryReplayStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key], s.ttls[key] = value.(string), ttl
	return true, nil
}

func (s *memoryReplayStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key], s.ttls[key] = value.(string), ttl
	return nil
}

func (s *memoryReplayStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *memoryReplayStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func postWithKey(path, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	store := newMemoryReplayStore()
	calls := 0
	handler := Idempotency(store, CheckoutReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, postWithKey("/api/v1/checkout/card", "", `{"items":[]}`))
		assert.Equal(t, http.StatusCreated, resp.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysFinishedResponse(t *testing.T) {
	store := newMemoryReplayStore()
	calls := 0
	handler := Idempotency(store, CheckoutReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"order_id":"o-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postWithKey("/api/v1/checkout/pickup", "abc", `{"outlet_id":"x"}`))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, postWithKey("/api/v1/checkout/pickup", "abc", `{"outlet_id":"x"}`))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"data":{"order_id":"o-1"}}`, replay.Body.String())
	assert.Equal(t, CheckoutReplayTTL, store.ttls["idem:anon:192.0.2.1:abc"])
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store := newMemoryReplayStore()
	handler := Idempotency(store, TransitionReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/checkout/pickup", "xyz", `{"foo":"bar"}`))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postWithKey("/api/v1/checkout/pickup", "xyz", `{"foo":"diff"}`))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, resp))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newMemoryReplayStore()
	release := make(chan struct{})
	started := make(chan struct{})
	handler := Idempotency(store, CheckoutReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/checkout/card", "dup", `{}`))
	}()
	<-started

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postWithKey("/api/v1/checkout/card", "dup", `{}`))
	close(release)
	<-done

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, resp))
}

func TestIdempotencyFreesKeyAfterServerError(t *testing.T) {
	store := newMemoryReplayStore()
	status := http.StatusServiceUnavailable
	calls := 0
	handler := Idempotency(store, CheckoutReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/checkout/card", "k1", `{}`))
	assert.Empty(t, store.data)

	status = http.StatusCreated
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postWithKey("/api/v1/checkout/card", "k1", `{}`))
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	handler := Idempotency(newMemoryReplayStore(), CheckoutReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postWithKey("/api/v1/checkout/card", strings.Repeat("k", maxIdempotencyKey+1), `{}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestIdempotencyRejectsOversizedBody(t *testing.T) {
	store := newMemoryReplayStore()
	handler := Idempotency(store, CheckoutReplayTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postWithKey("/api/v1/checkout/card", "big", strings.Repeat("x", validators.MaxBodyBytes+1)))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, resp))
	assert.Empty(t, store.data, "oversized request never claims the key")
}
