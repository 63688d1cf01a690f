package acquire

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediafetch/internal/textutil"
)

func mustReserve(t *testing.T, r *Reserver, dir, title, ext, sourceURL string) (string, func()) {
	t.Helper()
	path, release, err := r.Reserve(dir, title, ext, sourceURL)
	if err != nil {
		t.Fatalf("Reserve(%q, %q) returned error: %v", title, ext, err)
	}
	return path, release
}

func TestReserverPlainName(t *testing.T) {
	dir := t.TempDir()
	r := NewReserver()
	path, release := mustReserve(t, r, dir, "My / Title", "mp4", "https://x/1")
	defer release()
	if path != filepath.Join(dir, "My - Title.mp4") {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestReserverHeldNameGetsURLHash(t *testing.T) {
	dir := t.TempDir()
	r := NewReserver()
	first, releaseFirst := mustReserve(t, r, dir, "Same", "mp3", "https://x/1")
	second, releaseSecond := mustReserve(t, r, dir, "Same", "mp3", "https://x/2")
	defer releaseFirst()
	defer releaseSecond()

	want := filepath.Join(dir, "Same-"+textutil.ShortHash("https://x/2")+".mp3")
	if first == second || second != want {
		t.Fatalf("expected %q for the second reservation, got %q (first %q)", want, second, first)
	}
}

func TestReserverExistingFileGetsURLHash(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Song.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	path, release := mustReserve(t, NewReserver(), dir, "Song", "mp3", "https://x/3")
	defer release()
	if !strings.HasPrefix(filepath.Base(path), "Song-") {
		t.Fatalf("expected hashed name, got %q", path)
	}
}

func TestReserverSameURLTwiceGetsCounter(t *testing.T) {
	dir := t.TempDir()
	r := NewReserver()
	_, a := mustReserve(t, r, dir, "Dup", "mp4", "https://x/d")
	second, b := mustReserve(t, r, dir, "Dup", "mp4", "https://x/d")
	third, c := mustReserve(t, r, dir, "Dup", "mp4", "https://x/d")
	defer a()
	defer b()
	defer c()
	if !strings.HasSuffix(third, "-2.mp4") || second == third {
		t.Fatalf("expected counter suffix, got %q and %q", second, third)
	}
}

func TestReserverReleaseFreesName(t *testing.T) {
	dir := t.TempDir()
	r := NewReserver()
	first, release := mustReserve(t, r, dir, "Free", "mp4", "https://x/1")
	release()
	release()
	again, release2 := mustReserve(t, r, dir, "Free", "mp4", "https://x/2")
	defer release2()
	if first != again {
		t.Fatalf("released name should be reusable: %q vs %q", first, again)
	}
}

func TestReserverRejectsUnsafeExtensions(t *testing.T) {
	dir := t.TempDir()
	r := NewReserver()
	for _, ext := range []string{"mp4/../../escaped", "../mp4", `mp4\x`, "MP4", ".mp4", "mp 4"} {
		path, _, err := r.Reserve(dir, "Title", ext, "https://x/1")
		if !errors.Is(err, ErrUnsafeName) {
			t.Fatalf("Reserve with ext %q = %q, %v; want ErrUnsafeName", ext, path, err)
		}
	}
}

func TestReserverKeepsNamesInsideDir(t *testing.T) {
	dir := t.TempDir()
	for _, title := range []string{"../../etc/passwd", "..", "a/../../b"} {
		path, release := mustReserve(t, NewReserver(), dir, title, "mp4", "https://x/1")
		release()
		if filepath.Dir(path) != dir {
			t.Fatalf("title %q reserved %q outside %s", title, path, dir)
		}
	}
}

func TestIntermediateStem(t *testing.T) {
	got := intermediateStem("/out/Title.mp4", "1a2b3c4d-5e6f-7081-92a3-b4c5d6e7f809")
	if got != filepath.Join("/out", ".Title.1a2b3c4d") {
		t.Fatalf("unexpected stem %q", got)
	}
}
