package sessionstore

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Dir holding persisted sessions and CLI config.
const dirName = ".odtuclass"

// DefaultPath resolves a session file name to its fixed location under
// the per-user configuration directory.
func DefaultPath(filename string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName, filename), nil
}

// Store persists one backend's session state as JSON at a fixed path,
// readable and writable by the owner only.
type Store[T any] struct {
	Path string
}

func Open[T any](path string) Store[T] {
	return Store[T]{Path: path}
}

func (s Store[T]) Save(session T) error {
	err := os.MkdirAll(filepath.Dir(s.Path), 0700)
	if err != nil {
		return err
	}
	contents, err := json.Marshal(session)
	if err != nil {
		return err
	}
	err = os.WriteFile(s.Path, contents, 0600)
	if err != nil {
		return err
	}
	// WriteFile only applies the mode on create; clamp pre-existing files.
	return os.Chmod(s.Path, 0600)
}

// Load reads the persisted session. Any I/O or parse failure reads as
// "no session": callers treat an unreadable file as not logged in.
func (s Store[T]) Load() (T, bool) {
	var session T
	contents, err := os.ReadFile(s.Path)
	if err != nil {
		return session, false
	}
	err = json.Unmarshal(contents, &session)
	if err != nil {
		return session, false
	}
	return session, true
}

func (s Store[T]) Clear() error {
	err := os.Remove(s.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
