package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	unsafeRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

const fileTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`

// NewFile writes an empty goose migration named <version>_<slug>.sql into dir.
func NewFile(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := strings.Trim(unsafeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, now.UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, fileTemplate, slug); err != nil {
		return "", fmt.Errorf("write migration: %w", err)
	}
	return path, nil
}

// Validate checks file naming, version uniqueness and that every file
// declares an Up section ahead of its Down section.
func Validate(migrations fs.FS) error {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	versions := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("%s: expected <YYYYMMDDHHMMSS>_<name>.sql", name)
		}
		if prev, dup := versions[m[1]]; dup {
			return fmt.Errorf("%s: version %s already used by %s", name, m[1], prev)
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(migrations, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		up := strings.Index(string(body), "-- +goose Up")
		down := strings.Index(string(body), "-- +goose Down")
		switch {
		case up < 0:
			return fmt.Errorf("%s: missing -- +goose Up", name)
		case down < 0:
			return fmt.Errorf("%s: missing -- +goose Down", name)
		case down < up:
			return fmt.Errorf("%s: Down section precedes Up", name)
		}
	}
	return nil
}
