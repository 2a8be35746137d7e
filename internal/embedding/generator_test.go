package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeWorkerScript creates a stub worker script that runs the given shell body.
// The script receives the standard three positional arguments.
func writeWorkerScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "worker.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write worker script: %v", err)
	}
	return path
}

// writePayload writes a canned worker result JSON file and returns its path.
func writePayload(t *testing.T, dir string, out workerOutput) string {
	t.Helper()
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	path := filepath.Join(dir, "payload.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return path
}

// writeImage creates a dummy image file for the worker to "process".
func writeImage(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "face.jpg")
	if err := os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xE0}, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func makeVector(dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(i) / float32(dim)
	}
	return v
}

func TestGenerateSuccess(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir)
	payload := writePayload(t, dir, workerOutput{
		Success:    true,
		Embedding:  makeVector(128),
		Dimensions: 128,
		Model:      "facenet",
	})
	script := writeWorkerScript(t, dir, fmt.Sprintf(`cp %q "$3"`, payload))

	gen := NewGenerator("/bin/sh", script, time.Minute)
	gen.SetTempDir(dir)

	result, err := gen.Generate(context.Background(), image, ModelFaceNet)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Model != ModelFaceNet {
		t.Errorf("Model = %q; want %q", result.Model, ModelFaceNet)
	}
	if result.Dimensions != 128 || len(result.Embedding) != 128 {
		t.Errorf("got %d-dim result with %d values; want 128/128", result.Dimensions, len(result.Embedding))
	}
}

func TestGenerateFileNotFound(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "spawned")
	script := writeWorkerScript(t, dir, fmt.Sprintf(`touch %q`, marker))

	gen := NewGenerator("/bin/sh", script, time.Minute)
	gen.SetTempDir(dir)

	_, err := gen.Generate(context.Background(), filepath.Join(dir, "missing.jpg"), ModelFaceNet)
	if !IsKind(err, ErrFileNotFound) {
		t.Fatalf("got %v; want kind %s", err, ErrFileNotFound)
	}
	// The worker must never be spawned for a missing image.
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Error("worker was spawned despite missing image")
	}
}

func TestGenerateUnsupportedModel(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir)
	script := writeWorkerScript(t, dir, "exit 0")

	gen := NewGenerator("/bin/sh", script, time.Minute)
	gen.SetTempDir(dir)

	_, err := gen.Generate(context.Background(), image, Model("clip"))
	if !IsKind(err, ErrUnsupportedModel) {
		t.Fatalf("got %v; want kind %s", err, ErrUnsupportedModel)
	}
}

func TestGenerateTimeout(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir)
	script := writeWorkerScript(t, dir, "sleep 10")

	gen := NewGenerator("/bin/sh", script, 100*time.Millisecond)
	gen.SetTempDir(dir)

	start := time.Now()
	_, err := gen.Generate(context.Background(), image, ModelFaceNet)
	if !IsKind(err, ErrTimeout) {
		t.Fatalf("got %v; want kind %s", err, ErrTimeout)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("worker was not killed promptly, call took %s", elapsed)
	}
}

func TestGenerateTimeoutKillsWorkerChildren(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir)
	// The worker backgrounds a child that inherits the stderr pipe. The
	// deadline kill must take down the whole process group, or the call
	// blocks on the pipe until the orphan exits on its own.
	script := writeWorkerScript(t, dir, "sleep 10 &\nsleep 10")

	gen := NewGenerator("/bin/sh", script, 100*time.Millisecond)
	gen.SetTempDir(dir)

	start := time.Now()
	_, err := gen.Generate(context.Background(), image, ModelFaceNet)
	if !IsKind(err, ErrTimeout) {
		t.Fatalf("got %v; want kind %s", err, ErrTimeout)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("call blocked on an orphaned worker child, took %s", elapsed)
	}
}

func TestGenerateWorkerCrash(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir)
	script := writeWorkerScript(t, dir, "echo 'segfault' >&2; exit 139")

	gen := NewGenerator("/bin/sh", script, time.Minute)
	gen.SetTempDir(dir)

	_, err := gen.Generate(context.Background(), image, ModelFaceNet)
	if !IsKind(err, ErrWorkerCrash) {
		t.Fatalf("got %v; want kind %s", err, ErrWorkerCrash)
	}
}

func TestGenerateCrashWithValidResultUsesResult(t *testing.T) {
	// A non-zero exit with a valid success:false result file is a model
	// error, not a crash - the worker managed to report before dying.
	dir := t.TempDir()
	image := writeImage(t, dir)
	payload := writePayload(t, dir, workerOutput{
		Success:   false,
		Error:     "no face found in image",
		ErrorType: "NoFaceFound",
	})
	script := writeWorkerScript(t, dir, fmt.Sprintf(`cp %q "$3"; exit 1`, payload))

	gen := NewGenerator("/bin/sh", script, time.Minute)
	gen.SetTempDir(dir)

	_, err := gen.Generate(context.Background(), image, ModelFaceNet)
	if !IsKind(err, ErrModelError) {
		t.Fatalf("got %v; want kind %s", err, ErrModelError)
	}
}

func TestGenerateInvalidResult(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no result file", "exit 0"},
		{"empty result file", `: > "$3"`},
		{"not json", `echo 'garbage' > "$3"`},
		{"missing embedding key", `echo '{"success": true}' > "$3"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			image := writeImage(t, dir)
			script := writeWorkerScript(t, dir, tc.body)

			gen := NewGenerator("/bin/sh", script, time.Minute)
			gen.SetTempDir(dir)

			_, err := gen.Generate(context.Background(), image, ModelFaceNet)
			if !IsKind(err, ErrInvalidResult) {
				t.Fatalf("got %v; want kind %s", err, ErrInvalidResult)
			}
		})
	}
}

func TestGenerateModelError(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir)
	payload := writePayload(t, dir, workerOutput{
		Success:   false,
		Error:     "model weights not found",
		ErrorType: "ModelUnavailable",
		Traceback: "Traceback (most recent call last): ...",
	})
	script := writeWorkerScript(t, dir, fmt.Sprintf(`cp %q "$3"`, payload))

	gen := NewGenerator("/bin/sh", script, time.Minute)
	gen.SetTempDir(dir)

	_, err := gen.Generate(context.Background(), image, ModelArcFace)
	if !IsKind(err, ErrModelError) {
		t.Fatalf("got %v; want kind %s", err, ErrModelError)
	}

	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatalf("error is not *Error: %v", err)
	}
	if ge.ModelErrorType != "ModelUnavailable" {
		t.Errorf("ModelErrorType = %q; want %q", ge.ModelErrorType, "ModelUnavailable")
	}
	if ge.Traceback == "" {
		t.Error("Traceback should be preserved")
	}
}

func TestGenerateDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir)
	payload := writePayload(t, dir, workerOutput{
		Success:    true,
		Embedding:  makeVector(512),
		Dimensions: 512,
		Model:      "facenet",
	})
	script := writeWorkerScript(t, dir, fmt.Sprintf(`cp %q "$3"`, payload))

	gen := NewGenerator("/bin/sh", script, time.Minute)
	gen.SetTempDir(dir)

	// Worker claims facenet but returns 512 values.
	_, err := gen.Generate(context.Background(), image, ModelFaceNet)
	if !IsKind(err, ErrDimensionMismatch) {
		t.Fatalf("got %v; want kind %s", err, ErrDimensionMismatch)
	}
}

func TestGenerateCleansUpResultFile(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir)
	payload := writePayload(t, dir, workerOutput{
		Success:    true,
		Embedding:  makeVector(128),
		Dimensions: 128,
		Model:      "facenet",
	})
	script := writeWorkerScript(t, dir, fmt.Sprintf(`cp %q "$3"`, payload))

	tempDir := filepath.Join(dir, "results")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	gen := NewGenerator("/bin/sh", script, time.Minute)
	gen.SetTempDir(tempDir)

	if _, err := gen.Generate(context.Background(), image, ModelFaceNet); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("result files left behind: %d", len(entries))
	}
}
