package logsink

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

// TestLevels tests the line prefix of every level
func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.New(&buf, "", 0))

	l.Log("playing %d events", 4)
	l.Info("recording started")
	l.Warn("injector: %s", "busy")
	l.Error("import failed")

	want := "[LOG] playing 4 events\n[INFO] recording started\n[WARN] injector: busy\n[ERROR] import failed\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

// TestSingleLine tests that embedded newlines never split an entry
func TestSingleLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.New(&buf, "", 0))

	l.Error("first\nsecond\n")

	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("Expected 1 line, got %d in %q", got, buf.String())
	}
}

// TestSubscribe tests fan-out and unsubscription
func TestSubscribe(t *testing.T) {
	l := New(log.New(&bytes.Buffer{}, "", 0))

	var a, b []Entry
	unsubA := l.Subscribe(func(e Entry) { a = append(a, e) })
	l.Subscribe(func(e Entry) { b = append(b, e) })

	l.Info("one")
	unsubA()
	l.Warn("two")

	if len(a) != 1 || a[0].Level != LevelInfo || a[0].Line != "one" {
		t.Errorf("Unexpected entries for first subscriber: %v", a)
	}
	if len(b) != 2 || b[1].String() != "[WARN] two" {
		t.Errorf("Unexpected entries for second subscriber: %v", b)
	}
}
