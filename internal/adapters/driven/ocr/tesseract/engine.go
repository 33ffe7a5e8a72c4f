// Package tesseract recognises page text with the tesseract OCR engine.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/dquery/internal/adapters/driven/toolexec"
	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.OCREngine = (*Engine)(nil)

const toolName = "tesseract"

// ErrToolNotFound indicates tesseract is not installed.
var ErrToolNotFound = errors.New("tesseract not found in PATH")

// Engine runs `tesseract <image> stdout -l <lang>` per page.
type Engine struct {
	runner toolexec.CommandRunner
}

// New creates an Engine that runs the real tesseract binary.
func New() *Engine {
	return NewWithRunner(toolexec.ExecRunner{})
}

// NewWithRunner creates an Engine with a custom command runner.
func NewWithRunner(runner toolexec.CommandRunner) *Engine {
	return &Engine{runner: runner}
}

// Recognize returns the text tesseract finds on page.
// The trailing form feed tesseract appends per page is removed.
func (e *Engine) Recognize(ctx context.Context, page domain.PageImage, language string) (string, error) {
	if page.Path == "" {
		return "", fmt.Errorf("%w: page %d has no image", domain.ErrInvalidInput, page.Number)
	}
	if language == "" {
		language = domain.DefaultOCRLanguage
	}

	out, err := e.runner.Run(ctx, toolName, page.Path, "stdout", "-l", language)
	if err != nil {
		if errors.Is(err, toolexec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrToolNotFound, InstallInstructions())
		}
		return "", err
	}

	return strings.TrimSuffix(string(out), "\f"), nil
}

// CheckAvailable verifies that tesseract is installed.
func CheckAvailable() error {
	if err := toolexec.CheckAvailable(toolName); err != nil {
		return ErrToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific installation guidance.
func InstallInstructions() string {
	return `tesseract is required for OCR.

Install tesseract:
  macOS:   brew install tesseract
  Ubuntu:  apt install tesseract-ocr
  Fedora:  dnf install tesseract
  Arch:    pacman -S tesseract tesseract-data-eng`
}
