package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const fixtureDoc = `
sections:
  - title: Fruit
    items:
      - Apple
      - text: Blood orange
        resident: true
  - title: Empty
`

func TestRunFixture(t *testing.T) {
	path := writeFile(t, "list.yaml", fixtureDoc)

	for _, async := range []string{"false", "true"} {
		t.Run("async="+async, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), []string{"-f", path, "-width", "6", "-async", async}, &stdout, &stderr)
			if code != 0 {
				t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
			}
			out := stdout.String()
			for _, want := range []string{
				"== Fruit ==",
				"0.0    y=0    5x1 measured",
				"0.1    y=1    6x2 measured",
				"  | Blood\n  | orange\n",
				"== Empty ==",
			} {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestRunScript(t *testing.T) {
	path := writeFile(t, "list.lua", `
function section_count() return 1 end
function item_count() return 2 end
function item(s, i) return "item " .. i end
`)
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-script", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "== section 0 ==") || !strings.Contains(stdout.String(), "  | item 1") {
		t.Errorf("output:\n%s", stdout.String())
	}
}

func TestRunConfigFile(t *testing.T) {
	cfg := writeFile(t, "flow.toml", "[layout]\nmax_width = 3\n")
	fixture := writeFile(t, "list.yaml", fixtureDoc)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-c", cfg, "-f", fixture}, &stdout, &stderr); code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "0.0    y=0    3x2 measured") {
		t.Errorf("output:\n%s", stdout.String())
	}
}

func TestRunErrors(t *testing.T) {
	fixture := writeFile(t, "list.yaml", fixtureDoc)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no source", nil, 2},
		{"two sources", []string{"-f", fixture, "-s", "x.lua"}, 2},
		{"watch without config", []string{"-f", fixture, "-w"}, 2},
		{"unknown flag", []string{"-nope"}, 2},
		{"bad log level", []string{"-f", fixture, "-log-level", "loud"}, 1},
		{"bad width", []string{"-f", fixture, "-width", "wide"}, 1},
		{"missing fixture", []string{"-f", filepath.Join(t.TempDir(), "none.yaml")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != tt.code {
				t.Errorf("run() = %d, want %d; stderr:\n%s", code, tt.code, stderr.String())
			}
		})
	}
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run() = %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "sectionflow dev\n") {
		t.Errorf("output = %q", stdout.String())
	}
}
