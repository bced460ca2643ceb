// Package ocr wraps the optical character recognition engine.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image io.Reader) (string, error)
}

// Tesseract runs the tesseract command line tool, piping the image through
// stdin and reading the text from stdout.
type Tesseract struct {
	Binary   string // path or name of the executable
	Language string // tesseract -l value, e.g. "eng"
	Logger   *zap.Logger
}

// NewTesseract creates a Tesseract recognizer with defaults for empty fields.
func NewTesseract(binary, language string, logger *zap.Logger) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{Binary: binary, Language: language, Logger: logger}
}

// Recognize implements Recognizer.
func (t *Tesseract) Recognize(ctx context.Context, image io.Reader) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Binary, "stdin", "stdout", "-l", t.Language)
	cmd.Stdin = image
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ocr cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := stdout.String()
	t.Logger.Debug("OCR text", zap.Int("chars", len(text)), zap.String("text", text))
	return text, nil
}
