package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

func captureCLI(t *testing.T, args []string) (int, string, string) {
	t.Helper()

	stdout := os.Stdout
	stderr := os.Stderr

	rOut, wOut, err := os.Pipe()
	if err != nil {
		t.Fatalf("stdout pipe: %v", err)
	}
	rErr, wErr, err := os.Pipe()
	if err != nil {
		t.Fatalf("stderr pipe: %v", err)
	}

	os.Stdout = wOut
	os.Stderr = wErr

	code := run(args)

	if err := wOut.Close(); err != nil {
		t.Fatalf("stdout close: %v", err)
	}
	if err := wErr.Close(); err != nil {
		t.Fatalf("stderr close: %v", err)
	}

	os.Stdout = stdout
	os.Stderr = stderr

	outBytes, err := io.ReadAll(rOut)
	if err != nil {
		t.Fatalf("stdout read: %v", err)
	}
	errBytes, err := io.ReadAll(rErr)
	if err != nil {
		t.Fatalf("stderr read: %v", err)
	}
	return code, string(outBytes), string(errBytes)
}

func TestRunNoArgsPrintsUsage(t *testing.T) {
	code, _, stderr := captureCLI(t, nil)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Fatalf("expected usage on stderr, got %q", stderr)
	}
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := captureCLI(t, []string{"--version"})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "dispatchdemo") {
		t.Fatalf("expected version string, got %q", stdout)
	}
}

func TestRunDispatchSuccess(t *testing.T) {
	dir := t.TempDir()
	fixturePath := filepath.Join(dir, "greet.dispatch.yaml")
	writeFile(t, fixturePath, `
classes:
  Integer: {}
  String: {}
  Greeter:
    methods:
      greet:
        args:
          - {name: name, type: String}
        result: String
call:
  receiver: Greeter
  name: greet
  positional: [String]
`)

	code, stdout, stderr := captureCLI(t, []string{fixturePath})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	if !strings.Contains(stdout, "return type: String") {
		t.Fatalf("expected return type in stdout, got %q", stdout)
	}
}

func TestRunDispatchReportsUnknownMethod(t *testing.T) {
	dir := t.TempDir()
	fixturePath := filepath.Join(dir, "unknown.dispatch.yaml")
	writeFile(t, fixturePath, `
classes:
  Widget: {}
call:
  receiver: Widget
  name: spin
`)

	code, stdout, _ := captureCLI(t, []string{fixturePath})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "UnknownMethod") {
		t.Fatalf("expected UnknownMethod in stdout, got %q", stdout)
	}
}

func TestRunMissingFixtureFails(t *testing.T) {
	code, _, stderr := captureCLI(t, []string{filepath.Join(t.TempDir(), "nope.dispatch.yaml")})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "failed to load fixture") {
		t.Fatalf("expected load failure message, got %q", stderr)
	}
}
