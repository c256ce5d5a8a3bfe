// Package enhance provides the optional super-resolution step applied after
// the primary operation. It drives an external Real-ESRGAN binary when one
// is installed and falls back to a plain Lanczos upscale when it is not,
// always reporting which path ran.
package enhance

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"

	"github.com/imageforge/imageforge/internal/codec"
)

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateUnavailable
)

// fallbackNote is reported when no better reason is known.
const fallbackNote = "Lanczos upscale fallback"

// Engine wraps the external super-resolution binary. Construct one per
// process and share it: initialization is attempted at most once, and a
// failed attempt is cached for the process lifetime.
type Engine struct {
	binary   string
	modelDir string
	workDir  string

	mu     sync.Mutex
	state  state
	reason string
}

// New returns an engine bound to the given binary name (resolved via PATH)
// and model directory. workDir receives the temporary frames exchanged with
// the binary.
func New(binary, modelDir, workDir string) *Engine {
	return &Engine{binary: binary, modelDir: modelDir, workDir: workDir}
}

// Status reports whether the engine is usable and, when it is not, why.
// It triggers initialization if that has not happened yet.
func (e *Engine) Status() (bool, string) {
	e.init()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateReady, e.reason
}

// Enhance doubles the resolution of img when requested. The returned note
// names the path that ran: the external engine, or the fallback and why.
// Enhancement failures are never fatal; the worst case is a Lanczos upscale.
func (e *Engine) Enhance(ctx context.Context, img image.Image, requested bool) (image.Image, string) {
	if !requested {
		return img, ""
	}

	e.init()

	e.mu.Lock()
	ready := e.state == stateReady
	e.mu.Unlock()

	if ready {
		enhanced, err := e.run(ctx, img)
		if err == nil {
			return enhanced, "Real-ESRGAN x2"
		}
		e.mu.Lock()
		e.reason = fmt.Sprintf("Real-ESRGAN inference failed: %v", err)
		e.mu.Unlock()
		zlog.Logger.Warn().Err(err).Msg("super-resolution engine failed, using fallback")
	}

	b := img.Bounds()
	upscaled := imaging.Resize(img, b.Dx()*2, b.Dy()*2, imaging.Lanczos)

	e.mu.Lock()
	note := e.reason
	e.mu.Unlock()
	if note == "" {
		note = fallbackNote
	}
	return upscaled, note
}

// init probes for the binary and model assets exactly once. Both success and
// failure are cached; concurrent jobs serialize on the mutex only for this
// first attempt.
func (e *Engine) init() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateUninitialized {
		return
	}

	path, err := exec.LookPath(e.binary)
	if err != nil {
		e.state = stateUnavailable
		e.reason = fmt.Sprintf("Real-ESRGAN binary %q not found", e.binary)
		return
	}
	if _, err := os.Stat(e.modelDir); err != nil {
		e.state = stateUnavailable
		e.reason = fmt.Sprintf("Real-ESRGAN model not found at %s", e.modelDir)
		return
	}

	e.binary = path
	e.state = stateReady
	zlog.Logger.Info().Str("binary", path).Msg("super-resolution engine ready")
}

// run round-trips one frame through the external binary at 2x scale.
func (e *Engine) run(ctx context.Context, img image.Image) (image.Image, error) {
	if err := os.MkdirAll(e.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	in, err := os.CreateTemp(e.workDir, "enhance-in-*.png")
	if err != nil {
		return nil, fmt.Errorf("create input frame: %w", err)
	}
	inPath := in.Name()
	defer os.Remove(inPath)

	if err := codec.Encode(in, img, "png", codec.EncodeParams{}); err != nil {
		in.Close()
		return nil, fmt.Errorf("write input frame: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("write input frame: %w", err)
	}

	outPath := filepath.Join(e.workDir, filepath.Base(inPath)+".out.png")
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, e.binary,
		"-i", inPath,
		"-o", outPath,
		"-s", "2",
		"-m", e.modelDir,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("run engine: %w: %s", err, out)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("read output frame: %w", err)
	}
	defer f.Close()

	enhanced, err := codec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode output frame: %w", err)
	}
	return enhanced, nil
}
