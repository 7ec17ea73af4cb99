package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/greypolicy/internal/config"
)

func useTestLogger(t *testing.T) {
	t.Helper()
	previous := newLogger
	t.Cleanup(func() {
		newLogger = previous
	})
	newLogger = func(config.Config) (*zap.Logger, error) {
		return zaptest.NewLogger(t), nil
	}
}

func writePolicy(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestRunQuoteAndUnquote(t *testing.T) {
	var stdout, stderr bytes.Buffer

	if code := run([]string{"quote", ".user/name"}, &stdout, &stderr); code != 0 {
		t.Fatalf("quote exited with %d: %s", code, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != "%2euser%2Fname" {
		t.Fatalf("unexpected quote output %q", got)
	}

	stdout.Reset()
	if code := run([]string{"unquote", "%2euser%2Fname"}, &stdout, &stderr); code != 0 {
		t.Fatalf("unquote exited with %d: %s", code, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != ".user/name" {
		t.Fatalf("unexpected unquote output %q", got)
	}
}

func TestRunResolvePrintsSettings(t *testing.T) {
	useTestLogger(t)
	t.Setenv("GREYPOLICY_CONFIG_PATH", "")
	t.Setenv("GREYPOLICY_DEBUG_LEVEL", "")

	root := t.TempDir()
	writePolicy(t, root, map[string]string{
		"__default__": "OTHERCONFIGS = envelope_recipient\nGREYLISTTIME = 600\n",
		"envelope_recipient/example.com/__default__": "GREYLISTTIME = 30\nCHECKGREYLIST = 0\n",
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"resolve",
		"--config", filepath.Join(root, "absent.conf"),
		"--config-path", "file://" + root,
		"--recipient", "user@example.com",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("resolve exited with %d: %s", code, stderr.String())
	}

	var out lookupOutput
	if err := yaml.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout.String())
	}
	if out.Settings["GREYLISTTIME"] != 30 || out.Settings["OTHERCONFIGS"] != "envelope_recipient" {
		t.Fatalf("unexpected settings %v", out.Settings)
	}
	if out.CheckGreylist || !out.CheckSPF || out.Fallback {
		t.Fatalf("unexpected flags %+v", out)
	}
}

func TestRunResolveFallback(t *testing.T) {
	useTestLogger(t)
	t.Setenv("GREYPOLICY_CONFIG_PATH", "")
	t.Setenv("GREYPOLICY_DEBUG_LEVEL", "")

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"resolve",
		"--config", filepath.Join(t.TempDir(), "absent.conf"),
		"--config-path", "mysql://policies",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("resolve exited with %d: %s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "showing defaults") {
		t.Fatalf("expected fallback notice, got %q", stderr.String())
	}
	if !strings.Contains(stdout.String(), "fallback: true") || !strings.Contains(stdout.String(), "GREYLISTTIME: 600") {
		t.Fatalf("unexpected output:\n%s", stdout.String())
	}
}

func TestRunResolveFailsOnBadPolicyValue(t *testing.T) {
	useTestLogger(t)
	t.Setenv("GREYPOLICY_CONFIG_PATH", "")
	t.Setenv("GREYPOLICY_DEBUG_LEVEL", "")

	root := t.TempDir()
	writePolicy(t, root, map[string]string{"__default__": "GREYLISTTIME = ten\n"})

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"resolve",
		"--config", filepath.Join(root, "absent.conf"),
		"--config-path", "file://" + root,
	}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no settings output, got %s", stdout.String())
	}
}

func TestRunRejectsInvalidSettingsFile(t *testing.T) {
	useTestLogger(t)
	t.Setenv("GREYPOLICY_CONFIG_PATH", "")
	t.Setenv("GREYPOLICY_DEBUG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := os.WriteFile(path, []byte("exec('rm -rf /')\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"resolve", "--config", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "invalid configuration") {
		t.Fatalf("expected configuration error, got %q", stderr.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"explode"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), "explode") {
		t.Fatalf("expected the bad command to be reported on stderr, got %q", stderr.String())
	}
}

func TestRunHelpUsesGivenWriter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	run([]string{"--help"}, &stdout, &stderr)

	if !strings.Contains(stdout.String(), "resolve") || !strings.Contains(stdout.String(), "unquote") {
		t.Fatalf("expected usage on stdout, got %q", stdout.String())
	}
}
