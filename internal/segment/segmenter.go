package segment

import "time"

// DefaultActivityThreshold is the mean-absolute-amplitude above which a chunk
// counts as active.
const DefaultActivityThreshold = 0.01

// DefaultHangTime is how long silence is tolerated inside an utterance
// before it closes.
const DefaultHangTime = time.Second

// Segmenter holds the per-device thresholds used by Step. Segmenter itself is
// stateless and safe to share across devices; the mutable State belongs to
// the caller.
type Segmenter struct {
	ActivityThreshold float64
	HangTime          time.Duration
}

// New returns a Segmenter configured with the given threshold, falling back
// to the defaults for zero values.
func New(activityThreshold float64, hangTime time.Duration) Segmenter {
	if activityThreshold <= 0 {
		activityThreshold = DefaultActivityThreshold
	}
	if hangTime <= 0 {
		hangTime = DefaultHangTime
	}
	return Segmenter{ActivityThreshold: activityThreshold, HangTime: hangTime}
}

// Step advances state by one raw chunk. It returns the emitted batch chunk
// and true if the chunk closed an utterance.
//
// Step never mutates chunk.Samples; the returned BatchChunk takes ownership
// of state's accumulator.
func (s Segmenter) Step(state *State, chunk RawChunk, now time.Time) (BatchChunk, bool) {
	if len(chunk.Samples) == 0 {
		return BatchChunk{}, false
	}

	switch state.Kind {
	case Disabled:
		return BatchChunk{}, false

	case WaitingForVoiceActivity:
		if chunk.Amplitude() > s.ActivityThreshold {
			state.Kind = VoiceActivated
			state.StartedAt = now
			state.LastActivityAt = now
			state.SampleRate = chunk.SampleRate
			state.Accumulated = append([]float32(nil), chunk.Samples...)
		}
		return BatchChunk{}, false

	case VoiceActivated:
		if chunk.Amplitude() > s.ActivityThreshold {
			state.LastActivityAt = now
			state.Accumulated = append(state.Accumulated, chunk.Samples...)
			return BatchChunk{}, false
		}

		if now.Sub(state.LastActivityAt) > s.HangTime {
			// The silent chunk that crosses the deadline is excluded: take
			// the accumulator before appending anything from this chunk.
			batch := BatchChunk{
				Device:     chunk.Device,
				Channels:   chunk.Channels,
				SampleRate: state.SampleRate,
				Samples:    state.Accumulated,
			}
			state.Kind = WaitingForVoiceActivity
			state.Accumulated = nil
			return batch, true
		}

		state.Accumulated = append(state.Accumulated, chunk.Samples...)
		return BatchChunk{}, false

	case WaitingForPushToTalk, PushToTalkActivated:
		panic("segment: push-to-talk input is not wired in this build")

	default:
		panic("segment: unknown state kind")
	}
}
