package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"mediafetch/internal/config"
	"mediafetch/internal/testsupport"
)

const combineScript = `#!/bin/sh
for last; do :; done
printf combined > "$last"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server
	payload    []byte
}

// setupCLITestEnv writes a config pointing at temp directories and starts a
// manifest server with one audio-only item, one video item with separate
// audio, and nothing else.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("MEDIAFETCH_OUTPUT_DIR", "")
	t.Setenv("MEDIAFETCH_FFMPEG", "")
	cfg.Logging.Level = "error"
	cfg.Tools.VerifyStreams = false
	cfg.Tools.FFmpegPath = filepath.Join(testsupport.StubBinaries(t, filepath.Join(base, "tools"), combineScript, "ffmpeg"), "ffmpeg")

	payload := bytes.Repeat([]byte("stream-bytes"), 256)
	mux := http.NewServeMux()
	mux.HandleFunc("/items/song", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"Song: Live","variants":[
			{"id":"140","kind":"audio","container":"m4a","audio_codec":"mp4a.40.2","quality":128000,"bitrate":128000,"url":"/streams/song.m4a"}
		]}`)
	})
	mux.HandleFunc("/items/clip", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"Clip","variants":[
			{"id":"18","kind":"muxed","container":"mp4","video_codec":"avc1.42001E","audio_codec":"mp4a.40.2","quality":360,"height":360,"url":"/streams/muxed.mp4"},
			{"id":"137","kind":"video","container":"mp4","video_codec":"avc1.640028","quality":1080,"height":1080,"url":"/streams/video.mp4"},
			{"id":"140","kind":"audio","container":"m4a","audio_codec":"mp4a.40.2","quality":128000,"url":"/streams/audio.m4a"}
		]}`)
	})
	mux.HandleFunc("/streams/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, filepath.Base(r.URL.Path), time.Time{}, bytes.NewReader(payload))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, server: server, payload: payload}
}

func (e *cliTestEnv) url(path string) string {
	return e.server.URL + path
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
