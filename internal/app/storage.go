package app

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rozgar/job-board/internal/user"
)

const StateFileName = "rozgar_user.json"

var (
	ErrNoSession      = errors.New("no stored session")
	ErrCorruptSession = errors.New("stored session is corrupt")
)

// Session is what survives a restart: the signed in user and their token.
type Session struct {
	User  user.User `json:"user"`
	Token string    `json:"token"`
}

type Storage interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// FileStorage keeps the session as JSON in a single file.
type FileStorage struct {
	path string
}

func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{path: filepath.Join(dir, StateFileName)}
}

func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) Load() (Session, error) {
	var s Session
	b, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return s, ErrNoSession
	}
	if err != nil {
		return s, errors.Wrap(err, "unable to read session file")
	}
	if err := json.Unmarshal(b, &s); err != nil || s.User.Email == "" {
		return Session{}, ErrCorruptSession
	}
	return s, nil
}

func (f *FileStorage) Save(s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "unable to encode session")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "unable to create state dir")
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return errors.Wrap(err, "unable to write session file")
	}
	return errors.Wrap(os.Rename(tmp, f.path), "unable to replace session file")
}

func (f *FileStorage) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "unable to remove session file")
	}
	return nil
}
