package logger

import "testing"

func TestNewParsesLevelAndFormat(t *testing.T) {
	log := New(Config{Level: "debug", Format: "json"})
	if log.GetLevel().String() != "debug" {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
}

func TestNewDefaultsOnBadLevel(t *testing.T) {
	log := New(Config{Level: "not-a-level", Format: "text"})
	if log.GetLevel().String() != "info" {
		t.Fatalf("expected fallback to info level, got %s", log.GetLevel())
	}
}

func TestNewDefaultTagsComponent(t *testing.T) {
	log := NewDefault("runtime")
	entry := log.WithField("seed_id", 1)
	if entry.Data["component"] != "runtime" {
		t.Fatalf("expected component field to be preserved on derived entries")
	}
}
