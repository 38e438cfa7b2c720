package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"AC/DC", "AC_DC"},
		{"What's Going On?", "What's Going On_"},
		{"  trimmed  ", "trimmed"},
		{`a\b:c*d"e<f>g|h`, "a_b_c_d_e_f_g_h"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := SanitizePath(tt.input); got != tt.want {
			t.Errorf("SanitizePath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp3")
	dst := filepath.Join(dir, "nested", "deep", "dst.mp3")

	if err := os.WriteFile(src, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still exists after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading destination: %v", err)
	}
	if string(data) != "audio" {
		t.Errorf("destination content = %q", data)
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := MoveFile(filepath.Join(dir, "absent"), filepath.Join(dir, "dst")); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestCleanupRefusesOutsideTemp(t *testing.T) {
	if err := Cleanup("/etc"); err == nil {
		t.Error("expected refusal to delete outside temp dir")
	}
}
