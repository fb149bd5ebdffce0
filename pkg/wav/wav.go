// Package wav provides minimal RIFF/WAV helpers for the canonical
// 16 kHz mono 16-bit PCM format used throughout the ingest and gateway
// services, plus a cached silent-WAV generator for backend warmup.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
)

// Header is the fixed 44-byte canonical RIFF/WAV header written ahead of a
// single PCM16 data chunk.
type Header struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	DataSize      uint32
}

// WriteHeader renders a canonical 44-byte WAV header for the given payload
// size into buf.
func WriteHeader(buf *bytes.Buffer, dataSize int) error {
	h := Header{SampleRate: SampleRate, Channels: Channels, BitsPerSample: BitsPerSample, DataSize: uint32(dataSize)}
	byteRate := h.SampleRate * uint32(h.Channels) * uint32(h.BitsPerSample) / 8
	blockAlign := h.Channels * h.BitsPerSample / 8

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // PCM fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM format tag
	binary.Write(buf, binary.LittleEndian, h.Channels)
	binary.Write(buf, binary.LittleEndian, h.SampleRate)
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, h.BitsPerSample)

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	return nil
}

// EncodePCM16 wraps raw little-endian PCM16 samples in a canonical WAV
// container.
func EncodePCM16(samples []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteHeader(&buf, len(samples)); err != nil {
		return nil, err
	}
	buf.Write(samples)
	return buf.Bytes(), nil
}

// ReadDataSize parses just enough of a WAV file to report the byte length of
// its data chunk, used to sanity-check files without shelling out to ffprobe.
func ReadDataSize(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	header := make([]byte, 12)
	if _, err := f.Read(header); err != nil {
		return 0, fmt.Errorf("read riff header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	for {
		chunkHeader := make([]byte, 8)
		if _, err := f.Read(chunkHeader); err != nil {
			return 0, fmt.Errorf("find data chunk: %w", err)
		}
		id := string(chunkHeader[0:4])
		size := binary.LittleEndian.Uint32(chunkHeader[4:8])
		if id == "data" {
			return int(size), nil
		}
		if _, err := f.Seek(int64(size), 1); err != nil {
			return 0, err
		}
	}
}

const silentDurationMs = 100

var (
	silentOnce sync.Once
	silentPath string
	silentErr  error
)

// SilentWAVPath returns the path to a deterministic 100 ms mono 16-bit
// 16 kHz silent WAV, generating and caching it once per process in dir.
// Used by the gateway to force accelerator graph materialization during
// warmup without needing a real recording.
func SilentWAVPath(dir string) (string, error) {
	silentOnce.Do(func() {
		samples := make([]byte, SampleRate*Channels*(BitsPerSample/8)*silentDurationMs/1000)
		data, err := EncodePCM16(samples)
		if err != nil {
			silentErr = err
			return
		}
		path := dir + "/warmup_silence.wav"
		if err := os.WriteFile(path, data, 0644); err != nil {
			silentErr = err
			return
		}
		silentPath = path
	})
	return silentPath, silentErr
}
