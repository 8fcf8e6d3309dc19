// Package worker invokes the external prediction process and classifies its
// outcome. The worker is an opaque call/response boundary: one spawn per
// question, answer text on stdout, failures on stderr.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/agrilok/crop-assist/internal/config"
	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CallShape selects one of the four worker invocation forms.
type CallShape string

const (
	ShapeStandard      CallShape = "standard"
	ShapeStandardImage CallShape = "standard_image"
	ShapeExpert        CallShape = "expert"
	ShapeExpertImage   CallShape = "expert_image"
)

// WithImage reports whether the shape grounds the question on an attachment.
func (s CallShape) WithImage() bool {
	return s == ShapeStandardImage || s == ShapeExpertImage
}

// Privileged reports whether the shape is subject to the daily expert quota.
func (s CallShape) Privileged() bool {
	return s == ShapeExpert || s == ShapeExpertImage
}

// TextOnly returns the image-stripped counterpart of the shape, preserving
// the privileged/standard distinction. Used for the single sanctioned
// image-to-text fallback.
func (s CallShape) TextOnly() CallShape {
	switch s {
	case ShapeStandardImage:
		return ShapeStandard
	case ShapeExpertImage:
		return ShapeExpert
	default:
		return s
	}
}

// noAttachmentMarker is the stderr fragment the prediction script emits when
// the chat has no persisted image to ground an image call.
const noAttachmentMarker = "no persisted image found"

// Request carries one worker invocation.
type Request struct {
	Shape        CallShape
	Question     string
	SessionToken string
	ChatID       uuid.UUID
}

// Dispatcher invokes the external worker for one call shape. It never
// retries; fallback policy belongs to the orchestrator.
type Dispatcher interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// AttachmentChecker answers whether a chat has any persisted attachment,
// letting image-shaped calls fail fast without spawning the worker.
type AttachmentChecker interface {
	ExistsByChat(ctx context.Context, chatID uuid.UUID) (bool, error)
}

// ScriptDispatcher runs the prediction Python script as a subprocess.
type ScriptDispatcher struct {
	cfg         config.WorkerConfig
	attachments AttachmentChecker
}

// NewScriptDispatcher creates a new script dispatcher
func NewScriptDispatcher(cfg config.WorkerConfig, attachments AttachmentChecker) *ScriptDispatcher {
	return &ScriptDispatcher{cfg: cfg, attachments: attachments}
}

// Invoke spawns the worker and classifies the result into answer text,
// domain.ErrNoAttachmentForInference, domain.ErrWorkerUnavailable, or a
// *domain.WorkerError.
//
/// The subprocess is deliberately not bound to ctx: once started it runs to
// completion so the quota charge decision never depends on whether the
// client stayed connected. ctx is used only for the attachment pre-check.
func (d *ScriptDispatcher) Invoke(ctx context.Context, req Request) (string, error) {
	if req.Shape.WithImage() {
		exists, err := d.attachments.ExistsByChat(ctx, req.ChatID)
		if err != nil {
			return "", fmt.Errorf("failed to check attachments before dispatch: %w", err)
		}
		if !exists {
			return "", domain.ErrNoAttachmentForInference
		}
	}

	args := d.buildArgs(req)

	cmd := exec.Command(d.cfg.PythonBin, args...)
	cmd.Env = append(os.Environ(),
		"PYTHONIOENCODING=utf-8",
		"GRADIO_URL="+d.cfg.GradioURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	log.Debug().
		Str("shape", string(req.Shape)).
		Str("chat_id", req.ChatID.String()).
		Dur("elapsed", elapsed).
		Msg("worker invocation finished")

	errText := strings.TrimSpace(stderr.String())

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return "", fmt.Errorf("%w: %v", domain.ErrWorkerUnavailable, runErr)
	}

	if runErr != nil || errText != "" {
		if strings.Contains(strings.ToLower(errText), noAttachmentMarker) {
			return "", domain.ErrNoAttachmentForInference
		}
		exitCode := 0
		if exitErr != nil {
			exitCode = exitErr.ExitCode()
		}
		log.Warn().
			Str("shape", string(req.Shape)).
			Int("exit_code", exitCode).
			Str("stderr", errText).
			Msg("worker invocation failed")
		return "", &domain.WorkerError{ExitCode: exitCode, Stderr: errText}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// buildArgs maps the call shape to the script's positional argument forms.
// Image shapes pass the chat id so the script can load the latest persisted
// image itself; every shape passes the session token for continuity.
func (d *ScriptDispatcher) buildArgs(req Request) []string {
	switch req.Shape {
	case ShapeStandardImage:
		return []string{d.cfg.ScriptPath, "get_answer", req.Question, req.ChatID.String(), req.SessionToken}
	case ShapeExpert:
		return []string{d.cfg.ScriptPath, "expert_text", req.Question, req.SessionToken}
	case ShapeExpertImage:
		return []string{d.cfg.ScriptPath, "expert_image", req.Question, req.ChatID.String(), req.SessionToken}
	default:
		return []string{d.cfg.ScriptPath, req.Question, req.SessionToken}
	}
}
