package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfigureRejectsInvalidLevel(t *testing.T) {
	l := Logger()
	if err := l.Configure("nope", "json", "stdout", 0); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestConfigureRejectsInvalidFormat(t *testing.T) {
	l := Logger()
	if err := l.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestWithComponentFieldAppears(t *testing.T) {
	l := Logger()
	if err := l.Configure("info", "json", "stdout", 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithComponent("news_feed").Info("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"news_feed"`) {
		t.Errorf("component field missing from output: %s", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("message field missing from output: %s", out)
	}
}
