package session

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lbj0223/AI/internal/models"
)

func sampleSession(id string) *models.Session {
	return &models.Session{
		ID:       id,
		Nickname: "小甜甜",
		Nature:   "活泼开朗的东北姑娘",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "你好"},
			{Role: models.RoleAssistant, Content: "你好呀~ 😊"},
		},
	}
}

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	parsed, err := time.Parse(IDLayout, id)
	if err != nil {
		t.Fatalf("id %q does not match layout: %v", id, err)
	}
	if parsed.Format(IDLayout) != id {
		t.Fatalf("id %q does not round trip through the layout", id)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	want := sampleSession("2024-01-01 10-00-00")

	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(want.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %#v\ngot  %#v", want, got)
	}
}

func TestSaveIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	sess := sampleSession("2024-01-01 10-00-00")

	if err := store.Save(sess); err != nil {
		t.Fatalf("first save: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, sess.ID+".json"))
	if err != nil {
		t.Fatalf("read backing file: %v", err)
	}
	if err := store.Save(sess); err != nil {
		t.Fatalf("second save: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, sess.ID+".json"))
	if err != nil {
		t.Fatalf("read backing file: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("repeated save changed the backing file")
	}
}

func TestSavePreservesNonASCII(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	sess := sampleSession("2024-01-01 10-00-00")

	if err := store.Save(sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, sess.ID+".json"))
	if err != nil {
		t.Fatalf("read backing file: %v", err)
	}
	if !strings.Contains(string(data), "小甜甜") {
		t.Fatalf("non-ASCII content was escaped: %s", data)
	}
	if !strings.Contains(string(data), "\"current_session\"") {
		t.Fatalf("missing current_session key: %s", data)
	}
}

func TestListOrdering(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, id := range []string{"2024-01-01 10-00-00", "2024-01-02 09-00-00", "2024-01-01 23-59-59"} {
		sess := sampleSession(id)
		if err := store.Save(sess); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"2024-01-02 09-00-00", "2024-01-01 23-59-59", "2024-01-01 10-00-00"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("ordering mismatch: want %v got %v", want, ids)
	}
}

func TestListMissingDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))
	ids, err := store.List()
	if err != nil {
		t.Fatalf("list on missing dir: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty list, got %v", ids)
	}
}

func TestListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Save(sampleSession("2024-01-01 10-00-00")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write foreign file: %v", err)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != "2024-01-01 10-00-00" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Save(sampleSession("2024-01-01 10-00-00")); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := store.Load("nonexistent-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadParseFailure(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	cases := map[string]string{
		"2024-01-01 10-00-00": `not json at all`,
		"2024-01-01 10-00-01": `{"nickname":"a","nature":"b","messages":[]}`,
		"2024-01-01 10-00-02": `{"current_session":"x","nickname":"a","nature":"b","messages":[{"role":"narrator","content":"hi"}]}`,
	}
	for id, content := range cases {
		if err := os.WriteFile(filepath.Join(dir, id+".json"), []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		_, err := store.Load(id)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("id %s: expected ParseError, got %v", id, err)
		}
		if errors.Is(err, ErrNotFound) {
			t.Fatalf("id %s: parse failure must not be NotFound", id)
		}
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	sess := sampleSession("2024-01-01 10-00-00")
	if err := store.Save(sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Delete(sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, sess.ID+".json")); !os.IsNotExist(err) {
		t.Fatalf("backing file still present")
	}
	// deleting again is a no-op
	if err := store.Delete(sess.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
