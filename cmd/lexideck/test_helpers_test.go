package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lexideck/internal/config"
	"lexideck/internal/testsupport"
)

var vocabularyHeader = []string{"TargetWord", "Meaning", "Part_of_Speech", "Gender", "ContextSentences", "ImagePrompt"}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	input      string
	ttsCalls   atomic.Int64
	imageCalls atomic.Int64
	// failSpeech makes the speech server reject this exact input.
	failSpeech string
}

func setupCLITestEnv(t *testing.T, failSpeech string) *cliTestEnv {
	t.Helper()

	env := &cliTestEnv{failSpeech: failSpeech}
	ttsServer := httptest.NewServer(http.HandlerFunc(env.serveSpeech))
	t.Cleanup(ttsServer.Close)
	imageServer := httptest.NewServer(http.HandlerFunc(env.serveImage))
	t.Cleanup(imageServer.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithTTSServer(ttsServer.URL+"/v1/audio/speech"),
		testsupport.WithImageServer(imageServer.URL+"/image"),
		testsupport.WithConcurrency(2),
	)
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	env.cfg = cfg
	env.input = cfg.Paths.InputFile
	testsupport.WriteVocabulary(t, env.input, vocabularyHeader,
		[]string{"das Haus", "house", "noun", "neuter", "Das Haus ist alt.<br>Ich wohne hier.", "an old house"},
		[]string{"der Baum", "tree", "noun", "masculine", "Der Baum ist gr\u00fcn.", "a green tree"},
	)

	env.configPath = filepath.Join(base, "config.toml")
	writeTestConfig(t, env.configPath, cfg)
	return env
}

func (e *cliTestEnv) serveSpeech(w http.ResponseWriter, r *http.Request) {
	e.ttsCalls.Add(1)
	var payload struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if e.failSpeech != "" && payload.Input == e.failSpeech {
		http.Error(w, "unsupported input", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(bytes.Repeat([]byte{0xff, 0xfb}, 128))
}

func (e *cliTestEnv) serveImage(w http.ResponseWriter, r *http.Request) {
	e.imageCalls.Add(1)
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := range 64 {
		for y := range 64 {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 90, A: 255})
		}
	}
	w.Header().Set("Content-Type", "image/png")
	_ = png.Encode(w, img)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--env-file", ""}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
