package enums

import (
	"fmt"
	"slices"
	"strings"
)

// members is the closed value set of one string enum.
type members[T ~string] []T

func (m members[T]) has(v T) bool {
	return slices.Contains(m, v)
}

// parse accepts surrounding whitespace and any letter case.
func (m members[T]) parse(kind, raw string) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if m.has(v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
