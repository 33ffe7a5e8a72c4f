// Package pdftoppm rasterises PDF pages with poppler's pdftoppm tool.
package pdftoppm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/custodia-labs/dquery/internal/adapters/driven/toolexec"
	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
	"github.com/custodia-labs/dquery/internal/logger"
)

// Ensure Rasterizer implements the interface.
var _ driven.Rasterizer = (*Rasterizer)(nil)

const (
	toolName   = "pdftoppm"
	pagePrefix = "page"

	// DefaultDPI is the rendering resolution used when none is configured.
	DefaultDPI = 200
)

// ErrToolNotFound indicates pdftoppm is not installed.
var ErrToolNotFound = errors.New("pdftoppm not found in PATH")

// pageFile matches pdftoppm output such as page-1.png or page-007.png.
var pageFile = regexp.MustCompile(`^` + pagePrefix + `-(\d+)\.png$`)

// Rasterizer renders every page of a PDF to a PNG in a temporary directory.
type Rasterizer struct {
	runner  toolexec.CommandRunner
	dpi     int
	tempDir string
}

// New creates a Rasterizer that runs the real pdftoppm binary.
func New(dpi int) *Rasterizer {
	return NewWithRunner(toolexec.ExecRunner{}, dpi)
}

// NewWithRunner creates a Rasterizer with a custom command runner.
func NewWithRunner(runner toolexec.CommandRunner, dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{
		runner: runner,
		dpi:    dpi,
	}
}

// WithTempDir sets the parent directory for page images. Defaults to os.TempDir.
func (r *Rasterizer) WithTempDir(dir string) *Rasterizer {
	r.tempDir = dir
	return r
}

// DPI returns the rendering resolution.
func (r *Rasterizer) DPI() int {
	return r.dpi
}

// Rasterize renders the PDF at path. The returned Release removes the images.
func (r *Rasterizer) Rasterize(ctx context.Context, path string) (*driven.RasterResult, error) {
	dir, err := os.MkdirTemp(r.tempDir, "dquery-pages-*")
	if err != nil {
		return nil, fmt.Errorf("creating page directory: %w", err)
	}
	var once sync.Once
	release := func() error {
		var rmErr error
		once.Do(func() { rmErr = os.RemoveAll(dir) })
		return rmErr
	}

	args := []string{"-r", strconv.Itoa(r.dpi), "-png", path, filepath.Join(dir, pagePrefix)}
	logger.Debug("Running %s %v", toolName, args)
	if _, err := r.runner.Run(ctx, toolName, args...); err != nil {
		_ = release()
		if errors.Is(err, toolexec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, InstallInstructions())
		}
		return nil, err
	}

	pages, err := collectPages(dir)
	if err != nil {
		_ = release()
		return nil, err
	}

	return &driven.RasterResult{Pages: pages, Release: release}, nil
}

// collectPages lists rendered pages in page-number order.
// pdftoppm zero-pads numbers by page count, so names do not sort lexically.
func collectPages(dir string) ([]domain.PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading page directory: %w", err)
	}

	pages := make([]domain.PageImage, 0, len(entries))
	for _, e := range entries {
		m := pageFile.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, domain.PageImage{
			Number: n,
			Path:   filepath.Join(dir, e.Name()),
			Format: "png",
		})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%s produced no pages", toolName)
	}

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].Number < pages[j].Number
	})
	return pages, nil
}

// CheckAvailable verifies that pdftoppm is installed.
func CheckAvailable() error {
	if err := toolexec.CheckAvailable(toolName); err != nil {
		return ErrToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific installation guidance.
func InstallInstructions() string {
	return `pdftoppm is required to rasterise PDF pages.

Install poppler:
  macOS:   brew install poppler
  Ubuntu:  apt install poppler-utils
  Fedora:  dnf install poppler-utils
  Arch:    pacman -S poppler`
}
