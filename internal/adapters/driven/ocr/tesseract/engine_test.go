package tesseract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dquery/internal/adapters/driven/toolexec"
	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
)

// mockRunner is a test double for toolexec.CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.OCREngine = (*Engine)(nil)
}

func TestRecognize(t *testing.T) {
	runner := &mockRunner{output: []byte("Invoice 42\nTotal: 10 EUR\n\f")}
	e := NewWithRunner(runner)

	text, err := e.Recognize(context.Background(), domain.PageImage{Number: 1, Path: "/tmp/page-1.png"}, "deu")

	require.NoError(t, err)
	assert.Equal(t, "Invoice 42\nTotal: 10 EUR\n", text)
	assert.Equal(t, "tesseract", runner.name)
	assert.Equal(t, []string{"/tmp/page-1.png", "stdout", "-l", "deu"}, runner.args)
}

func TestRecognize_DefaultLanguage(t *testing.T) {
	runner := &mockRunner{}
	_, err := NewWithRunner(runner).Recognize(context.Background(), domain.PageImage{Number: 1, Path: "/p.png"}, "")
	require.NoError(t, err)
	assert.Equal(t, "eng", runner.args[3])
}

func TestRecognize_EmptyPage(t *testing.T) {
	text, err := NewWithRunner(&mockRunner{output: []byte("")}).
		Recognize(context.Background(), domain.PageImage{Number: 2, Path: "/p.png"}, "eng")
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestRecognize_NoImage(t *testing.T) {
	_, err := New().Recognize(context.Background(), domain.PageImage{Number: 4}, "eng")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRecognize_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("tesseract failed: exit status 1: Error opening data file")}
	_, err := NewWithRunner(runner).Recognize(context.Background(), domain.PageImage{Number: 1, Path: "/p.png"}, "xx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error opening data file")
}

func TestRecognize_ToolMissing(t *testing.T) {
	runner := &mockRunner{err: fmt.Errorf("%w: tesseract", toolexec.ErrNotFound)}
	_, err := NewWithRunner(runner).Recognize(context.Background(), domain.PageImage{Number: 1, Path: "/p.png"}, "eng")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestInstallInstructions(t *testing.T) {
	assert.Contains(t, InstallInstructions(), "apt install tesseract-ocr")
}
