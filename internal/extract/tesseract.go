package extract

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TesseractEngine shells out to the tesseract binary for OCR.
type TesseractEngine struct {
	binaryPath string
	language   string
}

// NewTesseractEngine builds an engine. Empty arguments fall back to the
// tesseract binary on PATH and English.
func NewTesseractEngine(binaryPath, language string) *TesseractEngine {
	if binaryPath == "" {
		binaryPath = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{binaryPath: binaryPath, language: language}
}

// Recognize runs tesseract on the image and returns recognized text on stdout.
func (t *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	if _, err := exec.LookPath(t.binaryPath); err != nil {
		return "", fmt.Errorf("tesseract not found: %w", err)
	}
	cmd := exec.CommandContext(ctx, t.binaryPath, imagePath, "stdout", "-l", t.language)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return string(output), nil
}
