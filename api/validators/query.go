package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
)

// QueryText returns the trimmed query value cut to at most maxLen bytes
// without splitting a rune. maxLen <= 0 disables the cut.
func QueryText(r *http.Request, key string, maxLen int) string {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if maxLen <= 0 || len(value) <= maxLen {
		return value
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

// QueryInt parses an optional bounded integer; absent keys yield fallback.
func QueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := QueryText(r, key, 0)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be an integer", key).
			WithDetails(map[string]any{"field": key})
	}
	if n < lo || n > hi {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", key, lo, hi).
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return n, nil
}

// QueryUUID parses an optional id; absent keys yield nil.
func QueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := QueryText(r, key, 0)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+strings.ReplaceAll(key, "_", " ")).
			WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}
