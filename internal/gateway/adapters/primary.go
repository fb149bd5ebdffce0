package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"svasr/internal/model"
)

// PrimaryAdapter talks to the CPU-optimized, integer-quantized backend that
// supports beam search and VAD-based silence trimming.
type PrimaryAdapter struct {
	*BaseAdapter
}

func NewPrimaryAdapter(endpoint string, timeout time.Duration) *PrimaryAdapter {
	return &PrimaryAdapter{BaseAdapter: NewBaseAdapter(model.BackendPrimary, endpoint, timeout)}
}

type backendResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start            float64 `json:"start"`
		End              float64 `json:"end"`
		Text             string  `json:"text"`
		AvgLogprob       float64 `json:"avg_logprob"`
		CompressionRatio float64 `json:"compression_ratio"`
		NoSpeechProb     float64 `json:"no_speech_prob"`
		Words            []struct {
			Start       float64 `json:"start"`
			End         float64 `json:"end"`
			Word        string  `json:"word"`
			Probability float64 `json:"probability"`
		} `json:"words"`
	} `json:"segments"`
}

func (r *backendResponse) toResult() *model.TranscriptResult {
	out := &model.TranscriptResult{Text: r.Text, Language: r.Language}
	out.Segments = make([]model.Segment, len(r.Segments))
	for i, s := range r.Segments {
		seg := model.Segment{
			Start:            s.Start,
			End:              s.End,
			Text:             s.Text,
			AvgLogprob:       s.AvgLogprob,
			CompressionRatio: s.CompressionRatio,
			NoSpeechProb:     s.NoSpeechProb,
		}
		seg.Words = make([]model.Word, len(s.Words))
		for j, w := range s.Words {
			seg.Words[j] = model.Word{Start: w.Start, End: w.End, Word: w.Word, Probability: w.Probability}
		}
		out.Segments[i] = seg
	}
	return out
}

// Transcribe posts the audio file to the primary backend with beam search
// enabled, decoding its JSON response into a TranscriptResult.
func (a *PrimaryAdapter) Transcribe(ctx context.Context, req Request) (*model.TranscriptResult, error) {
	if a.endpoint == "" {
		return nil, fmt.Errorf("primary backend not configured")
	}

	beam := req.BeamSize
	if beam == 0 {
		beam = 5
	}
	fields := map[string]string{
		"language":  req.Language,
		"beam_size": fmt.Sprintf("%d", beam),
		"vad":       "true",
	}
	if req.Model != "" {
		fields["model"] = req.Model
	}

	body, err := a.postMultipartWithRetry(ctx, a.endpoint+"/transcribe", req.AudioPath, fields, req.LogDir)
	if err != nil {
		return nil, err
	}

	var resp backendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode primary backend response: %w", err)
	}
	result := resp.toResult()
	result.Backend = model.BackendPrimary
	return result, nil
}
