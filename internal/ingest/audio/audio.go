// Package audio canonicalizes ingest input — one or many opaque encoded
// audio blobs — into a single 16 kHz mono 16-bit PCM WAV file via ffmpeg,
// and probes the result's duration via ffprobe. Grounded on the original
// ingest service's two-step temp-file-then-concat invocation, adapted from
// the teacher's ffmpeg exec.CommandContext pattern in the audio splitter.
package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"svasr/pkg/logger"
)

// Canonicalizer converts encoded audio chunks into canonical session WAVs.
type Canonicalizer struct {
	tempDir string
}

func NewCanonicalizer(tempDir string) *Canonicalizer {
	return &Canonicalizer{tempDir: tempDir}
}

// Concatenate writes each chunk to a temp file, builds an ffmpeg concat
// manifest, and converts the concatenation to a 16 kHz mono WAV at
// outputPath in one ffmpeg invocation. All temp inputs are removed on every
// exit path, success or failure.
func (c *Canonicalizer) Concatenate(ctx context.Context, chunks [][]byte, outputPath string) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no audio chunks to concatenate")
	}

	tmpDir, err := os.MkdirTemp(c.tempDir, "ingest-session-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	chunkPaths := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		p := filepath.Join(tmpDir, fmt.Sprintf("chunk_%04d.bin", i))
		if err := os.WriteFile(p, chunk, 0o644); err != nil {
			return fmt.Errorf("write chunk %d: %w", i, err)
		}
		chunkPaths = append(chunkPaths, p)
	}

	concatPath := filepath.Join(tmpDir, "concat.txt")
	var manifest strings.Builder
	for _, p := range chunkPaths {
		manifest.WriteString(fmt.Sprintf("file '%s'\n", p))
	}
	if err := os.WriteFile(concatPath, []byte(manifest.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatPath,
		"-ar", "16000",
		"-ac", "1",
		"-f", "wav",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error("ffmpeg concat failed", "error", err, "output", string(out))
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}

	return nil
}

// ProbeDuration runs ffprobe against a canonical WAV and returns its
// duration in seconds, returning 0 on any probe failure rather than an
// error, matching the original's fail-soft duration lookup.
func ProbeDuration(ctx context.Context, wavPath string) float64 {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		wavPath,
	)
	out, err := cmd.Output()
	if err != nil {
		logger.Warn("ffprobe failed, defaulting duration to 0", "error", err, "path", wavPath)
		return 0
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0
	}
	return d
}
