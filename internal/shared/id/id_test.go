package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerateIsMonotonic(t *testing.T) {
	gen := NewGenerator()

	prev := gen.GenerateString()
	for i := 0; i < 1000; i++ {
		next := gen.GenerateString()
		if next <= prev {
			t.Fatalf("IDs should increase: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{BackupPrefix, GlyphPrefix} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}
		if !IsValid(id) {
			t.Errorf("prefixed ID should be valid: %s", id)
		}
	}
}

func TestTypedIDs(t *testing.T) {
	if !strings.HasPrefix(NewBackupID().String(), "bak_") {
		t.Error("BackupID should start with 'bak_'")
	}
	if !strings.HasPrefix(NewGlyphID().String(), "gly_") {
		t.Error("GlyphID should start with 'gly_'")
	}
}

func TestIsValid(t *testing.T) {
	for _, id := range []string{"", "invalid", "bak_", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		if IsValid(id) {
			t.Errorf("ID should be invalid: %q", id)
		}
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now()
	id := string(NewBackupID())
	after := time.Now()

	ts, err := Timestamp(id)
	if err != nil {
		t.Fatalf("Failed to extract timestamp: %v", err)
	}

	if ts.UnixMilli() < before.UnixMilli() || ts.UnixMilli() > after.UnixMilli() {
		t.Errorf("Timestamp %v outside [%v, %v]", ts, before, after)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const perGoroutine = 100

	var wg sync.WaitGroup
	ids := make(chan string, goroutines*perGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				ids <- gen.GenerateString()
			}
		}()
	}
	wg.Wait()
	close(ids)

	var all []string
	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("Duplicate ID found: %s", id)
		}
		seen[id] = true
		all = append(all, id)
	}
	if len(all) != goroutines*perGoroutine {
		t.Errorf("expected %d IDs, got %d", goroutines*perGoroutine, len(all))
	}
}
