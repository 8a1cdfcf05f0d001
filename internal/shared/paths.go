package shared

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const filenameAllowed = "-_.() "

// SanitizeFilename strips s down to ASCII letters, digits and -_.() and space.
func SanitizeFilename(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune(filenameAllowed, r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// OutputPath returns the deterministic destination for a title/artist pair:
// outputDir/<title> - <artist>.<ext>
func OutputPath(outputDir, title, artist, ext string) string {
	name := SanitizeFilename(title)
	if a := SanitizeFilename(artist); a != "" {
		name = name + " - " + a
	}
	if name == "" {
		name = "untitled"
	}
	return filepath.Join(outputDir, name+"."+strings.TrimPrefix(ext, "."))
}

// PlaylistDir returns the per-playlist folder under base, with spaces replaced by underscores.
func PlaylistDir(base, playlistName string) string {
	name := strings.ReplaceAll(SanitizeFilename(playlistName), " ", "_")
	if name == "" {
		return base
	}
	return filepath.Join(base, name)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// NonEmptyFile reports whether path is a regular file with at least one byte.
func NonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// MoveFile renames src to dst, falling back to copy and remove when the
// rename crosses filesystems. The parent of dst must exist.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("%w: failed to remove %s: %v", ErrLocalIO, src, err)
	}
	return nil
}

// CopyFile copies src to dst, truncating dst if it exists. A partial dst is removed on failure.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("%w: copy %s: %v", ErrLocalIO, src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	return nil
}
