package drawguess

import (
	"os"
	"path/filepath"
	"testing"
)

func writeWordFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write word file: %v", err)
	}
	return path
}

func TestLoadWords(t *testing.T) {
	path := writeWordFile(t, `{"languages":{"en":{"easy":["house","apple"]}}}`)
	pool, err := LoadWords(path)
	if err != nil {
		t.Fatalf("load words: %v", err)
	}
	choices := pool.Pick("en", "easy", 2, map[string]bool{})
	if len(choices) != 2 {
		t.Fatalf("expected 2 choices, got %d", len(choices))
	}
}

func TestLoadWordsRejectsEmptyFile(t *testing.T) {
	for _, content := range []string{
		`{"languages":{}}`,
		`{"languages":{"en":{"easy":[]}}}`,
		`{}`,
	} {
		path := writeWordFile(t, content)
		if _, err := LoadWords(path); err == nil {
			t.Fatalf("expected error for word file %s", content)
		}
	}
}

func TestEmptyPoolEndsGameAtOffer(t *testing.T) {
	room, _, rec, _ := newTestRoom(t, &Pool{})
	if _, err := room.AddPlayer("b", "Ben", ""); err != nil {
		t.Fatalf("add player: %v", err)
	}
	if err := room.Start("a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if room.State() != StateEnded {
		t.Fatalf("expected game to end on an empty offer, got %s", room.State())
	}
	if rec.count("choosing_started") != 0 {
		t.Fatalf("expected no choosing phase with an empty pool")
	}
	if rec.count("game_ended") != 1 {
		t.Fatalf("expected one game_ended event, got %d", rec.count("game_ended"))
	}
}
