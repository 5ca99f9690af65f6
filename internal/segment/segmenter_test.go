package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loud(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 0.2
	}
	return s
}

func silent(n int) []float32 {
	return make([]float32, n)
}

func TestSegmenter_SilentStreamProducesNoBatches(t *testing.T) {
	seg := New(0, 0)
	state := NewState(true)
	now := time.Now()

	for i := 0; i < 1000; i++ {
		_, closed := seg.Step(&state, RawChunk{Device: "mic", Channels: 1, SampleRate: 48000, Samples: silent(1024)}, now)
		assert.False(t, closed)
		now = now.Add(10 * time.Millisecond)
	}
	assert.Equal(t, WaitingForVoiceActivity, state.Kind)
}

func TestSegmenter_DisabledProducesNoBatches(t *testing.T) {
	seg := New(0, 0)
	state := NewState(false)
	now := time.Now()

	_, closed := seg.Step(&state, RawChunk{Device: "mic", Channels: 1, SampleRate: 48000, Samples: loud(1024)}, now)
	assert.False(t, closed)
	assert.Equal(t, Disabled, state.Kind)
}

func TestSegmenter_SingleUtteranceExcludesClosingSilentChunk(t *testing.T) {
	seg := New(0, 0)
	state := NewState(true)
	now := time.Now()

	var active [][]float32
	for i := 0; i < 10; i++ {
		chunk := loud(160)
		active = append(active, chunk)
		_, closed := seg.Step(&state, RawChunk{Device: "mic", Channels: 1, SampleRate: 16000, Samples: chunk}, now)
		require.False(t, closed)
		now = now.Add(10 * time.Millisecond)
	}

	var batch BatchChunk
	var closed bool
	var trailing [][]float32
	for i := 0; i < 6; i++ {
		now = now.Add(200 * time.Millisecond)
		chunk := silent(160)
		batch, closed = seg.Step(&state, RawChunk{Device: "mic", Channels: 1, SampleRate: 16000, Samples: chunk}, now)
		if closed {
			break
		}
		trailing = append(trailing, chunk)
	}

	require.True(t, closed)
	var want []float32
	for _, c := range active {
		want = append(want, c...)
	}
	// Silent chunks that arrive within the hang time are kept; the one that
	// crosses the deadline and closes the utterance is not.
	for _, c := range trailing {
		want = append(want, c...)
	}
	assert.Equal(t, want, batch.Samples)
	assert.Equal(t, WaitingForVoiceActivity, state.Kind)
}

func TestSegmenter_BackToBackUtterancesEmitInOrder(t *testing.T) {
	seg := New(0, 0)
	state := NewState(true)
	now := time.Now()

	step := func(samples []float32) (BatchChunk, bool) {
		b, c := seg.Step(&state, RawChunk{Device: "mic", Channels: 1, SampleRate: 16000, Samples: samples}, now)
		now = now.Add(200 * time.Millisecond)
		return b, c
	}

	var batches []BatchChunk

	step(loud(160))
	for i := 0; i < 6; i++ {
		if b, closed := step(silent(160)); closed {
			batches = append(batches, b)
		}
	}

	step(loud(160))
	for i := 0; i < 6; i++ {
		if b, closed := step(silent(160)); closed {
			batches = append(batches, b)
		}
	}

	require.Len(t, batches, 2)
}

func TestSegmenter_RetainsStartingSampleRateThroughUtterance(t *testing.T) {
	seg := New(0, 0)
	state := NewState(true)
	now := time.Now()

	seg.Step(&state, RawChunk{Device: "mic", Channels: 1, SampleRate: 44100, Samples: loud(160)}, now)
	now = now.Add(10 * time.Millisecond)
	// A later chunk mis-reports a different native rate; the batch should
	// still carry the rate recorded at utterance start.
	seg.Step(&state, RawChunk{Device: "mic", Channels: 1, SampleRate: 48000, Samples: loud(160)}, now)

	var batch BatchChunk
	var closed bool
	for i := 0; i < 6 && !closed; i++ {
		now = now.Add(200 * time.Millisecond)
		batch, closed = seg.Step(&state, RawChunk{Device: "mic", Channels: 1, SampleRate: 48000, Samples: silent(160)}, now)
	}

	require.True(t, closed)
	assert.Equal(t, 44100, batch.SampleRate)
}

func TestSegmenter_EmptyChunkIsIgnored(t *testing.T) {
	seg := New(0, 0)
	state := NewState(true)
	_, closed := seg.Step(&state, RawChunk{Device: "mic", Channels: 1, SampleRate: 16000}, time.Now())
	assert.False(t, closed)
	assert.Equal(t, WaitingForVoiceActivity, state.Kind)
}

func TestSegmenter_PushToTalkIsUnreachable(t *testing.T) {
	seg := New(0, 0)
	state := State{Kind: WaitingForPushToTalk}
	assert.Panics(t, func() {
		seg.Step(&state, RawChunk{Device: "mic", Channels: 1, SampleRate: 16000, Samples: loud(16)}, time.Now())
	})
}
