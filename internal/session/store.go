// Package session persists chat sessions one file per session, named by a
// timestamp-derived identifier so that a plain string sort of the ids is
// also a chronological sort.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lbj0223/AI/internal/models"
)

// IDLayout formats a creation time at second granularity. Two sessions
// created within the same second share an id and the later save wins; this
// matches the observed behavior of the tool and is acceptable for a
// single-user deployment.
const IDLayout = "2006-01-02 15-04-05"

const fileSuffix = ".json"

// ErrNotFound reports that no backing file exists for the requested id. It
// is distinct from IO failures so callers can ignore or report it.
var ErrNotFound = errors.New("session not found")

// ParseError reports a backing file whose content is not a valid session
// record. The caller's in-memory state must be left unchanged.
type ParseError struct {
	ID  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("session %s: malformed backing file: %v", e.ID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewID derives a session identifier from the current wall-clock time. It
// has no side effects.
func NewID() string {
	return time.Now().Format(IDLayout)
}

// Store maps session ids to backing files under a single directory. There
// is no shared index file; the directory listing is the index.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created lazily
// on the first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+fileSuffix)
}

// Save serializes the full session record to its backing file, overwriting
// any previous content for the same id.
func (s *Store) Save(sess *models.Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session id is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}

	record := *sess
	if record.Messages == nil {
		record.Messages = []models.Message{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&record); err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := os.WriteFile(s.path(sess.ID), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	return nil
}

// sessionFile mirrors models.Session with pointer fields so missing keys
// can be told apart from empty values during validation.
type sessionFile struct {
	ID       *string          `json:"current_session"`
	Nickname *string          `json:"nickname"`
	Nature   *string          `json:"nature"`
	Messages []models.Message `json:"messages"`
}

// Load reads and validates the backing file for id. It returns ErrNotFound
// when no file exists, a *ParseError when the content is malformed, and a
// plain wrapped error for IO failures.
func (s *Store) Load(id string) (*models.Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var raw sessionFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{ID: id, Err: err}
	}
	if raw.ID == nil || raw.Nickname == nil || raw.Nature == nil {
		return nil, &ParseError{ID: id, Err: errors.New("missing required field")}
	}
	for i, msg := range raw.Messages {
		if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
			return nil, &ParseError{ID: id, Err: fmt.Errorf("message %d has invalid role %q", i, msg.Role)}
		}
	}

	sess := &models.Session{
		ID:       *raw.ID,
		Nickname: *raw.Nickname,
		Nature:   *raw.Nature,
		Messages: raw.Messages,
	}
	if sess.ID == "" {
		// Files are named by id, so tolerate an empty field.
		sess.ID = id
	}
	if sess.Messages == nil {
		sess.Messages = []models.Message{}
	}
	return sess, nil
}

// List enumerates persisted session ids, newest first. A missing storage
// directory yields an empty list, not an error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), fileSuffix))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Delete removes the backing file for id. Deleting an id that has no
// backing file is a no-op.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
