package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/agrilok/crop-assist/internal/config"
	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	exists bool
	err    error
	calls  int
}

func (s *stubChecker) ExistsByChat(ctx context.Context, chatID uuid.UUID) (bool, error) {
	s.calls++
	return s.exists, s.err
}

// writeScript drops a shell script into a temp dir and returns its path. The
// dispatcher's python binary is configurable, so tests point it at /bin/sh.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "predict.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestDispatcher(script string, checker AttachmentChecker) *ScriptDispatcher {
	return NewScriptDispatcher(config.WorkerConfig{
		PythonBin:  "/bin/sh",
		ScriptPath: script,
		GradioURL:  "http://localhost:7860",
	}, checker)
}

func TestCallShape(t *testing.T) {
	tests := []struct {
		shape      CallShape
		withImage  bool
		privileged bool
		textOnly   CallShape
	}{
		{ShapeStandard, false, false, ShapeStandard},
		{ShapeStandardImage, true, false, ShapeStandard},
		{ShapeExpert, false, true, ShapeExpert},
		{ShapeExpertImage, true, true, ShapeExpert},
	}

	for _, tt := range tests {
		t.Run(string(tt.shape), func(t *testing.T) {
			assert.Equal(t, tt.withImage, tt.shape.WithImage())
			assert.Equal(t, tt.privileged, tt.shape.Privileged())
			assert.Equal(t, tt.textOnly, tt.shape.TextOnly())
		})
	}
}

func TestBuildArgs(t *testing.T) {
	chatID := uuid.New()
	d := newTestDispatcher("predict.py", nil)

	tests := []struct {
		name  string
		shape CallShape
		want  []string
	}{
		{"standard", ShapeStandard, []string{"predict.py", "how do I treat leaf rust", "tok-1"}},
		{"standard with image", ShapeStandardImage, []string{"predict.py", "get_answer", "how do I treat leaf rust", chatID.String(), "tok-1"}},
		{"expert", ShapeExpert, []string{"predict.py", "expert_text", "how do I treat leaf rust", "tok-1"}},
		{"expert with image", ShapeExpertImage, []string{"predict.py", "expert_image", "how do I treat leaf rust", chatID.String(), "tok-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.buildArgs(Request{
				Shape:        tt.shape,
				Question:     "how do I treat leaf rust",
				SessionToken: "tok-1",
				ChatID:       chatID,
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoke_Success(t *testing.T) {
	script := writeScript(t, `echo "  apply a copper based fungicide  "`)
	d := newTestDispatcher(script, nil)

	answer, err := d.Invoke(context.Background(), Request{
		Shape:        ShapeStandard,
		Question:     "leaf spots on my tomato plant",
		SessionToken: "tok-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "apply a copper based fungicide", answer)
}

func TestInvoke_PassesArguments(t *testing.T) {
	// The script echoes its second positional argument back.
	script := writeScript(t, `echo "$2"`)
	d := newTestDispatcher(script, nil)

	answer, err := d.Invoke(context.Background(), Request{
		Shape:        ShapeExpert,
		Question:     "is this blight",
		SessionToken: "tok-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "is this blight", answer)
}

func TestInvoke_NonZeroExit(t *testing.T) {
	script := writeScript(t, `echo "model load failed" >&2; exit 3`)
	d := newTestDispatcher(script, nil)

	_, err := d.Invoke(context.Background(), Request{Shape: ShapeStandard, Question: "q"})

	require.Error(t, err)
	var workerErr *domain.WorkerError
	require.True(t, errors.As(err, &workerErr))
	assert.Equal(t, 3, workerErr.ExitCode)
	assert.Equal(t, "model load failed", workerErr.Stderr)
}

func TestInvoke_StderrWithZeroExit(t *testing.T) {
	script := writeScript(t, `echo "partial answer"; echo "warning: degraded" >&2`)
	d := newTestDispatcher(script, nil)

	_, err := d.Invoke(context.Background(), Request{Shape: ShapeStandard, Question: "q"})

	require.Error(t, err)
	var workerErr *domain.WorkerError
	require.True(t, errors.As(err, &workerErr))
	assert.Equal(t, 0, workerErr.ExitCode)
	assert.Equal(t, "warning: degraded", workerErr.Stderr)
}

func TestInvoke_NoAttachmentMarker(t *testing.T) {
	script := writeScript(t, `echo "Error: No persisted image found for chat" >&2; exit 1`)
	checker := &stubChecker{exists: true}
	d := newTestDispatcher(script, checker)

	_, err := d.Invoke(context.Background(), Request{
		Shape:  ShapeStandardImage,
		ChatID: uuid.New(),
	})

	assert.ErrorIs(t, err, domain.ErrNoAttachmentForInference)
	assert.Equal(t, 1, checker.calls)
}

func TestInvoke_StartFailure(t *testing.T) {
	d := NewScriptDispatcher(config.WorkerConfig{
		PythonBin:  filepath.Join(t.TempDir(), "missing-binary"),
		ScriptPath: "predict.py",
	}, nil)

	_, err := d.Invoke(context.Background(), Request{Shape: ShapeStandard, Question: "q"})

	assert.ErrorIs(t, err, domain.ErrWorkerUnavailable)
}

func TestInvoke_PrecheckSkipsSpawn(t *testing.T) {
	// The script would succeed, but the pre-check short-circuits before it runs.
	marker := filepath.Join(t.TempDir(), "ran")
	script := writeScript(t, `touch `+marker+`; echo ok`)
	d := newTestDispatcher(script, &stubChecker{exists: false})

	_, err := d.Invoke(context.Background(), Request{
		Shape:  ShapeExpertImage,
		ChatID: uuid.New(),
	})

	assert.ErrorIs(t, err, domain.ErrNoAttachmentForInference)
	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr))
}

func TestInvoke_PrecheckError(t *testing.T) {
	d := newTestDispatcher("predict.py", &stubChecker{err: errors.New("mongo down")})

	_, err := d.Invoke(context.Background(), Request{
		Shape:  ShapeStandardImage,
		ChatID: uuid.New(),
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoAttachmentForInference)
}

func TestInvoke_TextShapeSkipsPrecheck(t *testing.T) {
	script := writeScript(t, `echo ok`)
	checker := &stubChecker{exists: false}
	d := newTestDispatcher(script, checker)

	answer, err := d.Invoke(context.Background(), Request{Shape: ShapeExpert, Question: "q"})

	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Zero(t, checker.calls)
}
