package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"TokenRadar/internal/model"
)

// loadState reads the state file. Returns (nil, nil) if the file doesn't
// exist yet.
func loadState(filePath string) (*model.GlobalState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var state model.GlobalState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &state, nil
}

// saveState writes the state as JSON via a temp file and rename, so a crash
// mid-write never leaves a half-written state file behind.
func saveState(filePath string, state *model.GlobalState) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
