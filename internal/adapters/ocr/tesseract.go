package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/bnema/operate-cli/internal/ports"
)

var ErrUnavailable = errors.New("tesseract command unavailable")

type runFunc func(ctx context.Context, input []byte, args ...string) (stdout string, stderr string, err error)

// Tesseract reads text by piping images through the tesseract CLI.
type Tesseract struct {
	run       runFunc
	languages []string
}

var _ ports.OCRReader = (*Tesseract)(nil)

// NewTesseractFactory returns a ReaderFactory that checks the requested
// languages against `tesseract --list-langs` once per reader.
func NewTesseractFactory() ReaderFactory {
	return newTesseractFactory(runTesseractCommand)
}

func newTesseractFactory(run runFunc) ReaderFactory {
	return func(ctx context.Context, languages []string) (ports.OCRReader, error) {
		stdout, stderr, err := run(ctx, nil, "--list-langs")
		if err != nil {
			return nil, formatError("list-langs", err, stderr)
		}

		installed := parseLanguages(stdout)
		var missing []string
		for _, language := range languages {
			if !slices.Contains(installed, language) {
				missing = append(missing, language)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("tesseract languages not installed: %s", strings.Join(missing, ", "))
		}

		return &Tesseract{run: run, languages: slices.Clone(languages)}, nil
	}
}

func (t *Tesseract) ReadText(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", errors.New("image is empty")
	}

	stdout, stderr, err := t.run(ctx, image, "stdin", "stdout", "-l", strings.Join(t.languages, "+"))
	if err != nil {
		return "", formatError("read", err, stderr)
	}

	return strings.TrimSpace(stdout), nil
}

func (t *Tesseract) Languages() []string {
	return slices.Clone(t.languages)
}

// parseLanguages skips the "List of available languages" header line.
func parseLanguages(output string) []string {
	var languages []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") {
			continue
		}
		languages = append(languages, line)
	}

	return languages
}

func runTesseractCommand(ctx context.Context, input []byte, args ...string) (string, string, error) {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate tesseract command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if len(input) > 0 {
		cmd.Stdin = bytes.NewReader(input)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func formatError(op string, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("tesseract %s: %w", op, err)
	}

	return fmt.Errorf("tesseract %s: %w: %s", op, err, stderr)
}
