package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediafetch/internal/testsupport"
)

func TestFetchAudioBatchReportsEachURLInOrder(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithWorkers(1))

	stdout, stderr, err := runCLI(t, []string{
		"fetch", "--intent", "audio", "--json",
		env.url("/items/song"), env.url("/items/missing"),
	}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 jobs failed") {
		t.Fatalf("expected partial failure error, got %v", err)
	}

	var report fetchJSON
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if len(report.Jobs) != 2 || report.Succeeded != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	first, second := report.Jobs[0], report.Jobs[1]
	want := filepath.Join(env.cfg.Paths.OutputDir, "Song- Live.mp3")
	if first.Status != "succeeded" || first.Path != want {
		t.Fatalf("expected %s, got %+v", want, first)
	}
	got, err := os.ReadFile(want)
	if err != nil || !bytes.Equal(got, env.payload) {
		t.Fatalf("audio file should hold the stream bytes unchanged (err=%v)", err)
	}
	if second.Status != "failed" || second.ErrorKind != "resolution/not_found" {
		t.Fatalf("expected NotFound for missing item, got %+v", second)
	}

	// Progress lines stay off stdout in JSON mode.
	requireContains(t, stderr, "[1/2] Title: Song: Live")

	histOut, _, err := runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []historyJSON
	if err := json.Unmarshal([]byte(histOut), &entries); err != nil {
		t.Fatalf("history output is not JSON: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != report.RunID {
		t.Fatalf("expected two entries from run %s, got %+v", report.RunID, entries)
	}

	stats, err := testsupport.MustOpenHistory(t, env.cfg).Stats(context.Background())
	if err != nil {
		t.Fatalf("history stats: %v", err)
	}
	if stats.Total != 2 || stats.Failed != 1 || stats.Runs != 1 {
		t.Fatalf("unexpected history stats: %+v", stats)
	}
}

func TestFetchCombinesVideoAndAudio(t *testing.T) {
	env := setupCLITestEnv(t)
	out := t.TempDir()

	stdout, _, err := runCLI(t, []string{"fetch", "--output", out, env.url("/items/clip")}, env.configPath)
	if err != nil {
		t.Fatalf("fetch: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "[1/1] Title: Clip")
	requireContains(t, stdout, "Combining video and audio")
	requireContains(t, stdout, "1 succeeded, 0 failed")

	final := filepath.Join(out, "Clip.mp4")
	data, err := os.ReadFile(final)
	if err != nil || string(data) != "combined" {
		t.Fatalf("expected combined output at %s (err=%v)", final, err)
	}
	entries, _ := os.ReadDir(out)
	var names []string
	for _, e := range entries {
		if e.Name() != ".mediafetch.lock" {
			names = append(names, e.Name())
		}
	}
	if len(names) != 1 {
		t.Fatalf("intermediates should be removed, found %v", names)
	}
}

func TestFetchRejectsUnknownIntent(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"fetch", "--intent", "subtitles", env.url("/items/song")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown intent") {
		t.Fatalf("expected unknown intent error, got %v", err)
	}
}

func TestFetchRequiresURL(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"fetch"}, env.configPath); err == nil {
		t.Fatal("expected error without URLs")
	}
}

func TestFormatsMarksSelections(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, []string{"formats", "--json", env.url("/items/clip")}, env.configPath)
	if err != nil {
		t.Fatalf("formats: %v", err)
	}
	var doc struct {
		Title    string        `json:"title"`
		Variants []variantJSON `json:"variants"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("formats output is not JSON: %v", err)
	}
	if doc.Title != "Clip" || len(doc.Variants) != 3 {
		t.Fatalf("unexpected formats doc: %+v", doc)
	}
	picked := map[string]string{}
	for _, v := range doc.Variants {
		picked[v.ID] = strings.Join(v.PickedFor, ",")
	}
	if picked["18"] != "" {
		t.Fatalf("muxed variant should not be picked without fallback, got %q", picked["18"])
	}
	if picked["137"] != "video-only,video+audio" {
		t.Fatalf("unexpected picks for video: %q", picked["137"])
	}
	if picked["140"] != "audio-only,video+audio" {
		t.Fatalf("unexpected picks for audio: %q", picked["140"])
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutHistory())
	if _, _, err := runCLI(t, []string{"fetch", "--intent", "audio", env.url("/items/song")}, env.configPath); err != nil {
		t.Fatalf("fetch without history: %v", err)
	}
	if _, err := os.Stat(env.cfg.Paths.HistoryDB); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("history database should not be created, stat err=%v", err)
	}
	_, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "history is disabled") {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, stdout, "No fetches recorded yet")
}
