package tts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s := NewSessionStore(path)
	want := DocumentSession{Page: 4, Voice: "en-US-AvaMultilingualNeural", Rate: "+35%"}
	if err := s.Put("/docs/book.pdf", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reloaded := NewSessionStore(path)
	got, ok := reloaded.Get("/docs/book.pdf")
	if !ok {
		t.Fatal("session not found after reload")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSessionStoreKeysPerDocument(t *testing.T) {
	s := NewSessionStore(filepath.Join(t.TempDir(), "state.json"))

	if err := s.Put("/a.pdf", DocumentSession{Page: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("/b.pdf", DocumentSession{Page: 9}); err != nil {
		t.Fatal(err)
	}

	a, _ := s.Get("/a.pdf")
	b, _ := s.Get("/b.pdf")
	if a.Page != 1 || b.Page != 9 {
		t.Errorf("a=%+v b=%+v", a, b)
	}
	if len(s.All()) != 2 {
		t.Errorf("All() has %d entries, want 2", len(s.All()))
	}
}

func TestSessionStoreMissingFile(t *testing.T) {
	s := NewSessionStore(filepath.Join(t.TempDir(), "nope", "state.json"))
	if _, ok := s.Get("/any.pdf"); ok {
		t.Error("found a session in a store with no backing file")
	}
}

func TestSessionStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSessionStore(path)
	if len(s.All()) != 0 {
		t.Errorf("corrupt file yielded %d sessions", len(s.All()))
	}

	// The store stays usable and overwrites the corrupt record.
	if err := s.Put("/doc.pdf", DocumentSession{Page: 2}); err != nil {
		t.Fatalf("Put after corrupt load: %v", err)
	}
	if _, ok := NewSessionStore(path).Get("/doc.pdf"); !ok {
		t.Error("session not persisted over corrupt record")
	}
}

func TestSessionStoreRecordFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s := NewSessionStore(path)
	if err := s.Put("/doc.pdf", DocumentSession{Page: 3, Voice: "v", Rate: "+0%"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"page"`, `"tts_voice"`, `"tts_rate"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("record %s missing key %s", data, key)
		}
	}
}
