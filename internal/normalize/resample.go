package normalize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FrameSize is the fixed input frame length the polyphase resampler
// processes, in source-rate samples.
const FrameSize = 441

// Resample converts mono float samples at sourceRate to TargetRate using an
// FFT-based polyphase resampler: each fixed FrameSize input frame is
// transformed to the frequency domain, its spectrum is truncated or
// zero-padded to the output frame's length, and the result is transformed
// back. The final input frame, if shorter than FrameSize, is zero-padded
// before transforming. Resampler outputs are concatenated in arrival order.
func Resample(samples []float32, sourceRate int) ([]float32, error) {
	if sourceRate <= 0 {
		return nil, fmt.Errorf("normalize: invalid source rate %d", sourceRate)
	}
	if sourceRate == TargetRate {
		return samples, nil
	}
	if len(samples) == 0 {
		return nil, nil
	}

	outFrame := int(math.Round(float64(FrameSize) * float64(TargetRate) / float64(sourceRate)))
	if outFrame <= 0 {
		return nil, fmt.Errorf("normalize: degenerate output frame size for source rate %d", sourceRate)
	}

	fwd := fourier.NewFFT(FrameSize)
	inv := fourier.NewFFT(outFrame)

	// gonum's fourier.FFT is unnormalized: Sequence(Coefficients(x)) scales x
	// by the forward transform's length (FrameSize), not by the inverse
	// transform's length. Dividing by FrameSize here is what makes a constant
	// input round-trip to itself instead of being amplified by outFrame.
	const ampScale = 1.0 / float64(FrameSize)
	lengthRatio := float64(outFrame) / float64(FrameSize)

	out := make([]float32, 0, int(float64(len(samples))*lengthRatio)+outFrame)
	frame := make([]float64, FrameSize)

	for offset := 0; offset < len(samples); offset += FrameSize {
		n := FrameSize
		if remaining := len(samples) - offset; remaining < FrameSize {
			n = remaining
		}
		for i := 0; i < FrameSize; i++ {
			if i < n {
				frame[i] = float64(samples[offset+i])
			} else {
				frame[i] = 0
			}
		}

		coeffs := fwd.Coefficients(nil, frame)
		resized := resizeSpectrum(coeffs, FrameSize, outFrame)
		timeDomain := inv.Sequence(nil, resized)

		for _, v := range timeDomain {
			out = append(out, float32(v*ampScale))
		}
	}

	return out, nil
}

// resizeSpectrum truncates or zero-pads a real-FFT spectrum of length
// n/2+1 (computed for a sequence of length n) to the length expected for a
// sequence of length m, preserving low-frequency bins.
func resizeSpectrum(coeffs []complex128, n, m int) []complex128 {
	srcLen := n/2 + 1
	dstLen := m/2 + 1
	out := make([]complex128, dstLen)
	copyLen := srcLen
	if dstLen < copyLen {
		copyLen = dstLen
	}
	copy(out, coeffs[:copyLen])
	return out
}
