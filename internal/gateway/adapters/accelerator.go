package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"svasr/internal/model"
)

// AcceleratorAdapter talks to the GPU/accelerator-optimized backend: greedy
// decoding, half-precision, no built-in VAD. Availability is probed once, on
// first use (see Probe), rather than on every call.
type AcceleratorAdapter struct {
	*BaseAdapter
}

func NewAcceleratorAdapter(endpoint string, timeout time.Duration) *AcceleratorAdapter {
	return &AcceleratorAdapter{BaseAdapter: NewBaseAdapter(model.BackendAccelerator, endpoint, timeout)}
}

// Transcribe posts the audio file to the accelerator backend. Greedy
// decoding only: beam size is always 1 regardless of the requested profile.
func (a *AcceleratorAdapter) Transcribe(ctx context.Context, req Request) (*model.TranscriptResult, error) {
	if a.endpoint == "" {
		return nil, fmt.Errorf("accelerator backend not configured")
	}

	fields := map[string]string{
		"language": req.Language,
		"decoding": "greedy",
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
		return nil, fmt.Errorf("decode accelerator backend response: %w", err)
	}
	result := resp.toResult()
	result.Backend = model.BackendAccelerator
	return result, nil
}

// Probe reports whether the accelerator backend is reachable, used once, on
// the first transcribe or warmup call, to set the "did we try?" flag the gateway's
// model cache relies on — never re-probed per call, so a transient outage
// doesn't flap between "present" and "absent".
func (a *AcceleratorAdapter) Probe(ctx context.Context) bool {
	if a.endpoint == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
