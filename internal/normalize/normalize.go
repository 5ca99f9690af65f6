// Package normalize turns a segmented batch chunk into the canonical mono,
// 16 kHz, float-32 form the transcription service expects.
package normalize

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/fankserver/voicepipe/internal/segment"
)

// TargetRate is the canonical sample rate the pipeline transcribes at.
const TargetRate = 16000

// ErrInvalidFormat is returned when a batch chunk fails the post-normalization
// invariants: mono, TargetRate, and finite samples within the canonical
// [-1, 1] audio range. A chunk that fails these is dropped rather than
// forwarded to the transcription service.
var ErrInvalidFormat = errors.New("normalize: chunk failed post-normalization invariants")

// Normalize downmixes a batch chunk to mono and resamples it to TargetRate,
// returning the plain float samples. It logs at error level if the observed
// output length deviates from the theoretically expected one by more than
// one source-chunk's worth of samples, which would indicate a resampler bug
// rather than ordinary rounding. The result is checked against the
// post-normalization invariants before it is returned; a chunk that fails
// them is dropped with ErrInvalidFormat.
func Normalize(batch segment.BatchChunk) ([]float32, error) {
	mono := Downmix(batch.Samples, batch.Channels)

	if batch.SampleRate == TargetRate {
		return validate(mono)
	}

	out, err := Resample(mono, batch.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("normalize: resample: %w", err)
	}

	expectedRatio := float64(TargetRate) / float64(batch.SampleRate)
	expectedLen := float64(len(mono)) * expectedRatio
	tolerance := expectedRatio * FrameSize
	if diff := float64(len(out)) - expectedLen; diff > tolerance || diff < -tolerance {
		logrus.WithFields(logrus.Fields{
			"device":       batch.Device,
			"source_rate":  batch.SampleRate,
			"input_len":    len(mono),
			"output_len":   len(out),
			"expected_len": expectedLen,
		}).Error("normalize: resampled length deviates from expected ratio")
	}

	return validate(out)
}

// validate enforces the invariants a normalized chunk must satisfy before it
// is handed to the transcription client: every sample finite and within the
// canonical [-1, 1] range. Downmix and Resample already guarantee mono and
// TargetRate by construction, so this is the one check that can actually
// fail in practice — e.g. a resampler scaling bug driving samples outside
// the range the service expects.
func validate(samples []float32) ([]float32, error) {
	for _, v := range samples {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || v < -1 || v > 1 {
			return nil, fmt.Errorf("%w: sample %v out of range", ErrInvalidFormat, v)
		}
	}
	return samples, nil
}
