package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ReadType reads <dir>/type, healing the missing-sentinel cases from spec
// §6: a missing `store/type` is inferred as "git" if `store/git_target`
// exists, else "local"; for op_store/op_heads/index a missing `type` file
// defaults to defaultType. A legacy `store/backend` file is renamed to
// `store/type`.
func ReadType(dir, defaultType string) (string, error) {
	typePath := filepath.Join(dir, "type")

	if dir == filepath.Join(dir) && strings.HasSuffix(dir, "store") && !strings.Contains(dir, "op_store") {
		if legacy := filepath.Join(dir, "backend"); fileExists(legacy) && !fileExists(typePath) {
			if err := os.Rename(legacy, typePath); err != nil {
				return "", &PathError{Path: legacy, Err: err}
			}
		}
	}

	b, err := os.ReadFile(typePath)
	if err == nil {
		return strings.TrimSpace(string(b)), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", &StoreLoadReadError{Err: err}
	}

	if fileExists(filepath.Join(dir, "git_target")) {
		return "git", nil
	}
	return defaultType, nil
}

// WriteType writes the `type` sentinel so future loads don't need healing.
func WriteType(dir, typeName string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PathError{Path: dir, Err: err}
	}
	path := filepath.Join(dir, "type")
	if err := os.WriteFile(path, []byte(typeName+"\n"), 0o644); err != nil {
		return &PathError{Path: path, Err: err}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
