package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fankserver/voicepipe/internal/segment"
)

func TestDownmix_MonoIsNoOp(t *testing.T) {
	samples := []float32{0.1, -0.2, 0.3}
	assert.Equal(t, samples, Downmix(samples, 1))
}

func TestDownmix_StereoAverages(t *testing.T) {
	samples := []float32{1, -1, 1, -1}
	out := Downmix(samples, 2)
	require.Len(t, out, 2)
	assert.InDelta(t, 0, out[0], 1e-6)
	assert.InDelta(t, 0, out[1], 1e-6)
}

func TestResample_IdentityWhenAlreadyTargetRate(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	out, err := Resample(samples, TargetRate)
	require.NoError(t, err)
	assert.Equal(t, samples, out)
}

func TestResample_Deterministic(t *testing.T) {
	samples := make([]float32, 2000)
	for i := range samples {
		samples[i] = float32(i%7) / 10
	}
	out1, err := Resample(samples, 48000)
	require.NoError(t, err)
	out2, err := Resample(samples, 48000)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestResample_ProducesApproximatelyExpectedLength(t *testing.T) {
	samples := make([]float32, 48000)
	out, err := Resample(samples, 48000)
	require.NoError(t, err)
	expected := 16000
	assert.InDelta(t, expected, len(out), float64(FrameSize))
}

func TestResample_PreservesConstantAmplitude(t *testing.T) {
	const amplitude = 0.3
	// A whole number of frames: a partial final frame is zero-padded, so its
	// output would not be a constant signal.
	samples := make([]float32, 108*FrameSize)
	for i := range samples {
		samples[i] = amplitude
	}

	out, err := Resample(samples, 48000)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	for _, v := range out {
		assert.InDelta(t, amplitude, v, 0.05, "resampled constant signal must not be amplified or attenuated")
	}
}

func TestResample_PreservesToneAmplitude(t *testing.T) {
	const amplitude = 0.5
	samples := make([]float32, 48000)
	for i := range samples {
		samples[i] = amplitude * float32(math.Sin(2*math.Pi*440*float64(i)/48000))
	}

	out, err := Resample(samples, 48000)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	var peak float32
	for _, v := range out {
		if v > peak {
			peak = v
		} else if -v > peak {
			peak = -v
		}
	}
	assert.Less(t, peak, float32(1.0), "resampled tone must stay within the canonical audio range")
	assert.Greater(t, peak, float32(amplitude*0.5), "resampled tone must not be attenuated to near-silence")
}

func TestNormalize_StereoOppositeSamplesDownmixToSilence(t *testing.T) {
	samples := make([]float32, 48000*2)
	for i := 0; i < 48000; i++ {
		samples[2*i] = 1
		samples[2*i+1] = -1
	}
	batch := segment.BatchChunk{Device: "mic", Channels: 2, SampleRate: 48000, Samples: samples}
	out, err := Normalize(batch)
	require.NoError(t, err)
	for _, v := range out {
		assert.InDelta(t, 0, v, 1e-4)
	}
}

func TestNormalize_RejectsUnresolvedRateIsNotApplicable(t *testing.T) {
	batch := segment.BatchChunk{Device: "mic", Channels: 1, SampleRate: TargetRate, Samples: []float32{0.1, 0.2}}
	out, err := Normalize(batch)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, out)
}

func TestNormalize_RejectsOutOfRangeSamplesWithInvalidFormat(t *testing.T) {
	batch := segment.BatchChunk{Device: "mic", Channels: 1, SampleRate: TargetRate, Samples: []float32{0.1, 1.5, -0.2}}
	out, err := Normalize(batch)
	require.Nil(t, out)
	require.ErrorIs(t, err, ErrInvalidFormat)
}
