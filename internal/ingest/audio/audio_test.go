package audio

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svasr/pkg/wav"
)

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available on PATH")
	}
}

func TestConcatenate_EmptyChunksErrors(t *testing.T) {
	c := NewCanonicalizer(t.TempDir())
	err := c.Concatenate(context.Background(), nil, filepath.Join(t.TempDir(), "out.wav"))
	assert.Error(t, err)
}

func TestConcatenate_CreatesOutputDirAndInvokesFFmpeg(t *testing.T) {
	requireFFmpeg(t)

	c := NewCanonicalizer(t.TempDir())
	out := filepath.Join(t.TempDir(), "session", "audio.wav")

	// Chunks are real WAV containers (a concat-demuxable format) rather than
	// bare PCM, so ffmpeg can actually detect and join them.
	chunk := wavFixture(t, 1600)
	err := c.Concatenate(context.Background(), [][]byte{chunk, chunk}, out)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func wavFixture(t *testing.T, dataBytes int) []byte {
	t.Helper()
	samples := make([]byte, dataBytes)
	data, err := wav.EncodePCM16(samples)
	require.NoError(t, err)
	return data
}

func TestProbeDuration_MissingFileReturnsZero(t *testing.T) {
	d := ProbeDuration(context.Background(), "/no/such/file.wav")
	assert.Equal(t, 0.0, d)
}
