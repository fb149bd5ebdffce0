package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svasr/internal/model"
	"svasr/internal/pipeline/diarizer"
)

type fakeDiarizer struct {
	turns []diarizer.Turn
	err   error
}

func (f fakeDiarizer) Available() bool { return true }
func (f fakeDiarizer) Diarize(ctx context.Context, audioPath string) ([]diarizer.Turn, error) {
	return f.turns, f.err
}

func TestDiarize_AssignsLargestOverlap(t *testing.T) {
	d := fakeDiarizer{turns: []diarizer.Turn{
		{Start: 0, End: 2, Speaker: "A"},
		{Start: 1.5, End: 5, Speaker: "B"},
	}}
	segments := []model.Segment{{Start: 0, End: 3}}
	out := Diarize(context.Background(), segments, "/tmp/audio.wav", d)
	require.NotNil(t, out[0].SpeakerID)
	assert.Equal(t, "B", *out[0].SpeakerID)
}

func TestDiarize_TieBreakFirstEncounteredWins(t *testing.T) {
	d := fakeDiarizer{turns: []diarizer.Turn{
		{Start: 0, End: 2, Speaker: "A"},
		{Start: 0, End: 2, Speaker: "B"},
	}}
	segments := []model.Segment{{Start: 0, End: 2}}
	out := Diarize(context.Background(), segments, "/tmp/audio.wav", d)
	require.NotNil(t, out[0].SpeakerID)
	assert.Equal(t, "A", *out[0].SpeakerID)
}

func TestDiarize_NoAudioPathAssignsUnknown(t *testing.T) {
	d := fakeDiarizer{turns: []diarizer.Turn{{Start: 0, End: 2, Speaker: "A"}}}
	segments := []model.Segment{{Start: 0, End: 2}}
	out := Diarize(context.Background(), segments, "", d)
	require.NotNil(t, out[0].SpeakerID)
	assert.Equal(t, "UNKNOWN", *out[0].SpeakerID)
}

func TestDiarize_UnavailableDiarizerAssignsUnknown(t *testing.T) {
	segments := []model.Segment{{Start: 0, End: 2}}
	out := Diarize(context.Background(), segments, "/tmp/audio.wav", diarizer.NoOp{})
	require.NotNil(t, out[0].SpeakerID)
	assert.Equal(t, "UNKNOWN", *out[0].SpeakerID)
}

func TestDiarize_NoOverlapAssignsUnknown(t *testing.T) {
	d := fakeDiarizer{turns: []diarizer.Turn{{Start: 10, End: 12, Speaker: "A"}}}
	segments := []model.Segment{{Start: 0, End: 2}}
	out := Diarize(context.Background(), segments, "/tmp/audio.wav", d)
	require.NotNil(t, out[0].SpeakerID)
	assert.Equal(t, "UNKNOWN", *out[0].SpeakerID)
}
