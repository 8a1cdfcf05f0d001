package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Hello World", want: "Hello World"},
		{name: "allowed punctuation", in: "a-b_c.d (e)", want: "a-b_c.d (e)"},
		{name: "strips separators", in: "AC/DC: Back\\in*Black?", want: "ACDC BackinBlack"},
		{name: "strips non ascii", in: "Beyoncé", want: "Beyonc"},
		{name: "strips percent", in: "100% Pure", want: "100 Pure"},
		{name: "trims", in: "  x  ", want: "x"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		ext    string
		want   string
	}{
		{name: "title and artist", title: "Song", artist: "Band", ext: "mp3", want: filepath.Join("out", "Song - Band.mp3")},
		{name: "dotted ext", title: "Song", artist: "Band", ext: ".mp3", want: filepath.Join("out", "Song - Band.mp3")},
		{name: "no artist", title: "Song", ext: "mp3", want: filepath.Join("out", "Song.mp3")},
		{name: "unsanitizable", title: "???", artist: "///", ext: "mp3", want: filepath.Join("out", "untitled.mp3")},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputPath("out", tt.title, tt.artist, tt.ext); got != tt.want {
				t.Errorf("OutputPath() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("deterministic", func(t *testing.T) {
		a := OutputPath("out", "Song?", "Band", "mp3")
		b := OutputPath("out", "Song?", "Band", "mp3")
		if a != b {
			t.Errorf("expected stable path, got %q and %q", a, b)
		}
	})
}

func TestPlaylistDir(t *testing.T) {
	if got := PlaylistDir("base", "My Chill Mix!"); got != filepath.Join("base", "My_Chill_Mix") {
		t.Errorf("PlaylistDir() = %q", got)
	}
	if got := PlaylistDir("base", "!!!"); got != "base" {
		t.Errorf("PlaylistDir() = %q, want base", got)
	}
}

func TestFileChecks(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	full := filepath.Join(dir, "full")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !FileExists(empty) || NonEmptyFile(empty) {
		t.Error("empty file should exist but not be non-empty")
	}
	if !NonEmptyFile(full) {
		t.Error("full file should be non-empty")
	}
	if FileExists(dir) {
		t.Error("directory is not a regular file")
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Error("missing file should not exist")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp3")
	dst := filepath.Join(dir, "b.mp3")
	if err := os.WriteFile(src, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile() error = %v", err)
	}
	if FileExists(src) {
		t.Error("source should be gone")
	}
	if got, _ := os.ReadFile(dst); string(got) != "payload" {
		t.Errorf("dst content = %q", got)
	}

	t.Run("missing source", func(t *testing.T) {
		if err := MoveFile(filepath.Join(dir, "missing"), dst); err == nil {
			t.Error("expected error for missing source")
		}
	})
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	if err := os.WriteFile(src, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}
	if !FileExists(src) || !NonEmptyFile(dst) {
		t.Error("expected both files to exist")
	}
}
