package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/resale-backend/api/responses"
	"github.com/angelmondragon/resale-backend/api/validators"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/resale-backend/pkg/redis"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	maxIdempotencyKey   = 255
	inFlightTTL         = time.Minute
	CheckoutReplayTTL   = 7 * 24 * time.Hour
	TransitionReplayTTL = 24 * time.Hour
)

// ReplayStore is the redis surface the idempotency middleware needs.
type ReplayStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// replayRecord is either an in-flight marker (Done=false) or a finished
// response. Body is base64 in JSON via []byte.
type replayRecord struct {
	Fingerprint string `json:"fingerprint"`
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes a write route safe to retry under an Idempotency-Key
// header. The first request claims the key, later requests with the same
// body replay its response, and a different body under the same key is
// rejected. Server errors free the key so the client can retry.
func Idempotency(store ReplayStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(clientKey) > maxIdempotencyKey {
				responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be at most %d characters", idempotencyHeader, maxIdempotencyKey))
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "request body exceeds %d bytes", validators.MaxBodyBytes))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := requestFingerprint(r, body)
			key := store.IdempotencyKey(replayScope(r), clientKey)

			pending, _ := json.Marshal(replayRecord{Fingerprint: fingerprint})
			claimed, err := store.SetNX(ctx, key, string(pending), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayExisting(ctx, store, key, fingerprint, logg, w)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(context.WithoutCancel(ctx), key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			done, err := json.Marshal(replayRecord{
				Fingerprint: fingerprint,
				Done:        true,
				Status:      capture.statusCode(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err == nil {
				err = store.Set(context.WithoutCancel(ctx), key, string(done), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "store idempotent response", err)
			}
		})
	}
}

func replayExisting(ctx context.Context, store ReplayStore, key, fingerprint string, logg *logger.Logger, w http.ResponseWriter) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// the first attempt failed and released the key between our calls
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is being retried, try again"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	var record replayRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
	case !record.Done:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(record.Body)
	}
}

// replayScope keeps keys from different callers apart.
func replayScope(r *http.Request) string {
	caller := UserIDFromContext(r.Context())
	if caller == "" {
		caller = "anon:" + clientIP(r)
	}
	return caller
}

func requestFingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
