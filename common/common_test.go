package common

import (
	"errors"
	"strings"
	"testing"
)

func TestProtect(t *testing.T) {
	_, err := Protect(func() (int, error) {
		var m map[string]int
		m["x"] = 1
		return 1, nil
	})
	if err == nil || !strings.HasPrefix(err.Error(), "panic:") {
		t.Fatalf("Expected panic error, got %v", err)
	}
	n, err := Protect(func() (int, error) { return 7, nil })
	if err != nil || n != 7 {
		t.Fatalf("Expected 7, got %d %v", n, err)
	}
	_, err = Protect(func() (int, error) { return 0, errors.New("plain") })
	if err == nil || err.Error() != "plain" {
		t.Fatalf("Expected plain error, got %v", err)
	}
}

func TestForever(t *testing.T) {
	var log strings.Builder
	n := 0
	Forever(func() bool {
		n++
		if n == 1 {
			panic("first")
		}
		return true
	}, &log)
	if n != 2 || log.String() != "first\n" {
		t.Fatalf("Expected restart after panic, got n=%d log=%q", n, log.String())
	}
}

func TestDefaults(t *testing.T) {
	err := LoadDefaults(strings.NewReader("[extract]\noutput-dir=out\nmax-workers=3\n"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { store = nil }()
	dir := ""
	if !ApplyDefault(&dir, ExtractOutput) || dir != "out" {
		t.Fatalf("Expected out, got %q", dir)
	}
	keep := "mine"
	if ApplyDefault(&keep, ExtractOutput) || keep != "mine" {
		t.Fatalf("Explicit value must win, got %q", keep)
	}
	var w uint
	if !ApplyDefaultUint(&w, ExtractWorkers) || w != 3 {
		t.Fatalf("Expected 3, got %d", w)
	}
	if HasDefault(KafkaBroker) {
		t.Fatal("Broker should not be present")
	}
}
