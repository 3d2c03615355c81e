package commands

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in).Level(); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable("Model", []string{"layer", "params"}, [][]string{
		{"input", "0"},
		{"predictions", "188784"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "Model") || !strings.Contains(lines[4], "188784") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if lipgloss.Width(lines[3]) != lipgloss.Width(lines[4]) {
		t.Fatalf("rows are not aligned:\n%s", out)
	}
}

func TestSummaryCommand(t *testing.T) {
	t.Setenv("SYNTHPARAMS_CONFIG", "")
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"summary"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"stft", "conv2d_0", "(38, 5, 368)", "total params"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFormatShape(t *testing.T) {
	if got := formatShape([]int{1, 65, 256}); got != "(1, 65, 256)" {
		t.Fatalf("formatShape = %q", got)
	}
}
