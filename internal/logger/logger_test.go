package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInitWriter(t *testing.T) {
	prev := log.Default()
	defer log.SetDefault(prev)

	var buf bytes.Buffer
	InitWriter(&buf, log.WarnLevel, true)

	log.Info("hidden")
	log.Warn("shown", "vm", "sandvm")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info logged at warn level: %q", out)
	}
	if !strings.Contains(out, "SANDVM") || !strings.Contains(out, "shown") || !strings.Contains(out, "vm=sandvm") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colored output with color disabled: %q", out)
	}
}
