// Package session holds the bearer token of the signed-in user. A Store keeps
// at most one token under the key "token".
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Key is the name the token is stored under in every backend.
const Key = "token"

// Store is the session token store shared by the API client and the access guard.
type Store interface {
	Token() (string, bool)
	SetToken(token string) error
	Clear() error
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.RWMutex
	token string
}

// NewMemory returns a Memory store holding token, which may be empty.
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

// Token reports the held token.
func (m *Memory) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

// SetToken replaces the held token.
func (m *Memory) SetToken(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// Clear forgets the token.
func (m *Memory) Clear() error {
	return m.SetToken("")
}

// File is a Store backed by a small JSON document on disk, used by the CLI
// so a login survives between invocations. A missing file means no token.
type File struct {
	Path string
}

// NewFile returns a File store at path. Nothing is read or written yet.
func NewFile(path string) *File {
	return &File{Path: path}
}

type fileDoc struct {
	Token string `json:"token"`
}

// Token reports the stored token. Unreadable or corrupt files count as no token.
func (f *File) Token() (string, bool) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", false
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", false
	}
	return doc.Token, doc.Token != ""
}

// SetToken writes token to the file, creating its directory if needed.
func (f *File) SetToken(token string) error {
	if token == "" {
		return f.Clear()
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return errors.Wrap(err, "creating session directory")
	}
	data, err := json.Marshal(fileDoc{Token: token})
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.Path, data, 0600); err != nil {
		return errors.Wrapf(err, "writing %s", f.Path)
	}
	return nil
}

// Clear removes the file. A missing file is not an error.
func (f *File) Clear() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %s", f.Path)
	}
	return nil
}
