package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is how long a worker process may run before it is killed.
const DefaultTimeout = 2 * time.Minute

// workerKillGrace is how long Wait may linger on worker pipes after the
// deadline kill before abandoning them.
const workerKillGrace = 3 * time.Second

// Result is a successfully generated embedding together with the model
// that produced it. The vector length always equals Model.Dimensions().
type Result struct {
	Embedding  []float32
	Model      Model
	Dimensions int
}

// Generator runs the embedding model in a short-lived worker process.
// Each Generate call spawns its own worker and owns its own result file,
// so a native-library crash is contained to the worker and concurrent
// calls never share state. There is no pooling, caching or retrying.
type Generator struct {
	interpreter string
	script      string
	timeout     time.Duration
	tempDir     string
}

// NewGenerator creates a generator that runs `interpreter script` per call.
func NewGenerator(interpreter, script string, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{
		interpreter: interpreter,
		script:      script,
		timeout:     timeout,
		tempDir:     os.TempDir(),
	}
}

// SetTempDir overrides where per-call result files are written.
func (g *Generator) SetTempDir(dir string) {
	g.tempDir = dir
}

// workerOutput is the single JSON document the worker writes before exiting.
type workerOutput struct {
	Success    bool      `json:"success"`
	Embedding  []float32 `json:"embedding"`
	Dimensions int       `json:"dimensions"`
	Model      string    `json:"model"`
	Error      string    `json:"error"`
	ErrorType  string    `json:"error_type"`
	Traceback  string    `json:"traceback"`
}

// Generate runs the model on one face crop and returns its embedding.
//
// The worker is invoked with three positional arguments: the image path,
// the model name and the output file path. It must write exactly one JSON
// result document to the output path before exiting. The call blocks until
// the worker exits or the timeout elapses, whichever comes first; on
// timeout the worker is killed.
//
// Failures are returned as *Error with a distinct kind per failure mode:
// ErrFileNotFound, ErrUnsupportedModel, ErrTimeout, ErrWorkerCrash,
// ErrInvalidResult, ErrModelError and ErrDimensionMismatch.
func (g *Generator) Generate(ctx context.Context, imagePath string, model Model) (*Result, error) {
	dim := model.Dimensions()
	if dim == 0 {
		return nil, &Error{
			Kind: ErrUnsupportedModel,
			msg:  fmt.Sprintf("unsupported embedding model %q", model),
		}
	}

	// Fail before spawning anything if the image is missing.
	if _, err := os.Stat(imagePath); err != nil {
		return nil, &Error{
			Kind: ErrFileNotFound,
			msg:  fmt.Sprintf("image not found: %s", imagePath),
			err:  err,
		}
	}

	outPath := filepath.Join(g.tempDir, "embed-"+uuid.NewString()+".json")
	defer os.Remove(outPath)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.interpreter, g.script, imagePath, model.String(), outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// The worker runs in its own process group and the deadline kill
	// targets the whole group. Killing only the direct process would leave
	// its children alive holding the stderr pipe, and Wait would block far
	// past the timeout. WaitDelay abandons the pipes shortly after the kill
	// in case something in the group still survives.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = workerKillGrace

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, &Error{
			Kind: ErrTimeout,
			msg:  fmt.Sprintf("embedding worker exceeded %s for %s", g.timeout, imagePath),
		}
	}

	out, readErr := readWorkerOutput(outPath)
	if readErr != nil {
		if runErr != nil {
			return nil, &Error{
				Kind: ErrWorkerCrash,
				msg:  fmt.Sprintf("embedding worker crashed: %s", firstLine(stderr.String())),
				err:  runErr,
			}
		}
		return nil, readErr
	}

	if !out.Success {
		return nil, &Error{
			Kind:           ErrModelError,
			msg:            fmt.Sprintf("embedding worker reported failure: %s", out.Error),
			ModelErrorType: out.ErrorType,
			Traceback:      out.Traceback,
		}
	}

	if len(out.Embedding) == 0 {
		return nil, &Error{
			Kind: ErrInvalidResult,
			msg:  "worker result contains no embedding",
		}
	}

	if len(out.Embedding) != dim {
		return nil, &Error{
			Kind: ErrDimensionMismatch,
			msg:  fmt.Sprintf("model %s produced %d dimensions, expected %d", model, len(out.Embedding), dim),
		}
	}

	return &Result{
		Embedding:  out.Embedding,
		Model:      model,
		Dimensions: dim,
	}, nil
}

// readWorkerOutput reads and parses the worker's result file.
// A missing, empty or unparseable file is an ErrInvalidResult; the caller
// upgrades it to ErrWorkerCrash when the worker also exited non-zero.
func readWorkerOutput(path string) (*workerOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{
			Kind: ErrInvalidResult,
			msg:  "worker result file missing",
			err:  err,
		}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &Error{
			Kind: ErrInvalidResult,
			msg:  "worker result file is empty",
		}
	}

	var out workerOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &Error{
			Kind: ErrInvalidResult,
			msg:  "worker result file is not valid JSON",
			err:  err,
		}
	}
	return &out, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if s == "" {
		return "no stderr output"
	}
	return s
}
