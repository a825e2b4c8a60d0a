package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewJSONOutput(t *testing.T) {
	log := New(LoggingConfig{Level: "debug", Format: "json"})

	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.WithField("token", "0xbb").Info("bridge registered")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "bridge registered" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["token"] != "0xbb" {
		t.Errorf("token field = %v", entry["token"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestNewBadLevelFallsBackToInfo(t *testing.T) {
	log := New(LoggingConfig{Level: "chatty"})

	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.Debug("should be suppressed")
	if buf.Len() != 0 {
		t.Fatalf("debug emitted at info level: %s", buf.String())
	}

	log.SetLevel(logrus.DebugLevel)
	log.Debug("now visible")
	if buf.Len() == 0 {
		t.Fatal("debug suppressed after SetLevel")
	}
}

func TestNewDefaultTagsService(t *testing.T) {
	log := NewDefault("registry")

	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.Warn("paused")

	if out := buf.String(); !strings.Contains(out, "service=registry") {
		t.Fatalf("service tag missing: %s", out)
	}
}
