// Package eventloop implements the single-threaded cooperative scheduler
// that owns every microphone's state and multiplexes raw chunks, batch
// chunks, transcription results, UI ticks, and keyboard input.
package eventloop

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fankserver/voicepipe/internal/archive"
	"github.com/fankserver/voicepipe/internal/capture"
	"github.com/fankserver/voicepipe/internal/keys"
	"github.com/fankserver/voicepipe/internal/normalize"
	"github.com/fankserver/voicepipe/internal/pipeline"
	"github.com/fankserver/voicepipe/internal/router"
	"github.com/fankserver/voicepipe/internal/segment"
	"github.com/fankserver/voicepipe/internal/transcribe"
)

// UI is the rendering contract the loop drives at a fixed tick rate. The
// concrete terminal UI is an external collaborator; the loop only needs
// this much of it.
type UI interface {
	Render(snapshot Snapshot)
	Log(line string)
}

// Snapshot is everything the UI needs to redraw one frame.
type Snapshot struct {
	States map[string]segment.State
}

// TickInterval is the UI redraw period (5 Hz).
const TickInterval = 200 * time.Millisecond

type resultMsg struct {
	device string
	result transcribe.Result
	at     time.Time
	err    error
}

// Loop owns every device's Microphone State and is the only goroutine that
// ever mutates it.
type Loop struct {
	segmenter segment.Segmenter
	states    map[string]*segment.State

	sessions map[string]*capture.Session
	rawCh    chan segment.RawChunk

	resultCh chan resultMsg

	queue    *pipeline.Queue
	router   *router.Router
	archiver *archive.Archiver
	ui       UI
	keys     keys.Table

	keyEvents <-chan string
	commands  chan toggleCommand
}

// toggleCommand asks the loop to set one device's enabled/disabled state.
// It is delivered through a channel, not called directly, so external
// control surfaces (e.g. the MCP server) never mutate Microphone State
// themselves.
type toggleCommand struct {
	device  string
	enabled bool
}

// New builds an idle Loop. Call AddDevice for each microphone before Run.
func New(seg segment.Segmenter, queue *pipeline.Queue, rt *router.Router, archiver *archive.Archiver, ui UI, bindings keys.Table, keyEvents <-chan string) *Loop {
	return &Loop{
		segmenter: seg,
		states:    make(map[string]*segment.State),
		sessions:  make(map[string]*capture.Session),
		rawCh:     make(chan segment.RawChunk, 256),
		resultCh:  make(chan resultMsg, 64),
		commands:  make(chan toggleCommand, 8),
		queue:     queue,
		router:    rt,
		archiver:  archiver,
		ui:        ui,
		keys:      bindings,
		keyEvents: keyEvents,
	}
}

// AddDevice registers a capture session under the loop's control and starts
// forwarding its raw chunks into the loop's fan-in channel. enabled governs
// the device's initial Microphone State.
func (l *Loop) AddDevice(name string, session *capture.Session, enabled bool) {
	l.sessions[name] = session
	state := segment.NewState(enabled)
	l.states[name] = &state

	go func() {
		for chunk := range session.RawChunks() {
			l.rawCh <- chunk
		}
	}()
}

// Run executes the cooperative loop until ctx is cancelled or the quit key
// binding is pressed. It closes every registered capture session before
// returning.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	defer l.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case key := <-l.keyEvents:
			if l.handleKey(key) {
				return
			}

		case chunk := <-l.rawCh:
			l.handleRawChunk(chunk)

		case msg := <-l.resultCh:
			l.handleResult(msg)

		case cmd := <-l.commands:
			l.handleToggle(cmd)

		case <-ticker.C:
			l.ui.Render(l.snapshot())
		}
	}
}

func (l *Loop) handleKey(key string) (quit bool) {
	switch l.keys.Resolve(key) {
	case keys.ActionQuit:
		return true
	case keys.ActionMicToggleDisabled:
		l.toggleAllDisabled()
	default:
		// unknown or no-op bindings are ignored
	}
	return false
}

func (l *Loop) handleRawChunk(chunk segment.RawChunk) {
	state, ok := l.states[chunk.Device]
	if !ok {
		logrus.WithField("device", chunk.Device).Warn("eventloop: raw chunk for unknown device dropped")
		return
	}

	batch, closed := l.segmenter.Step(state, chunk, time.Now())
	if !closed {
		return
	}

	l.handleBatchChunk(batch)
}

func (l *Loop) handleBatchChunk(batch segment.BatchChunk) {
	samples, err := normalize.Normalize(batch)
	if err != nil {
		logrus.WithError(err).WithField("device", batch.Device).Error("eventloop: normalization failed, dropping batch")
		return
	}

	device := batch.Device
	err = l.queue.Submit(segment.BatchChunk{Device: device, Channels: 1, SampleRate: normalize.TargetRate, Samples: samples},
		func() {
			l.ui.Log("transcribing " + device + "...")
		},
		func(result transcribe.Result) {
			l.resultCh <- resultMsg{device: device, result: result, at: time.Now()}
		},
		func(err error) {
			l.resultCh <- resultMsg{device: device, at: time.Now(), err: err}
		},
	)
	if err != nil {
		logrus.WithError(err).WithField("device", device).Error("eventloop: failed to submit batch for transcription")
	}
}

func (l *Loop) handleResult(msg resultMsg) {
	if msg.err != nil {
		l.ui.Log("transcription failed for " + msg.device + ": " + msg.err.Error())
		return
	}

	for _, seg := range msg.result.Segments {
		l.ui.Log(msg.device + ": " + seg.Text)
	}

	if err := l.archiver.Append(msg.device, msg.result, msg.at); err != nil {
		logrus.WithError(err).Error("eventloop: failed to archive transcript")
	}

	l.router.Dispatch(msg.device, msg.result, msg.at)
}

// ToggleDevice asks the loop to enable or disable a device by name. Safe to
// call from any goroutine; the actual state mutation happens inside Run.
func (l *Loop) ToggleDevice(device string, enabled bool) {
	l.commands <- toggleCommand{device: device, enabled: enabled}
}

// DeviceNames returns the names of every device registered with AddDevice.
// Safe to call from any goroutine: the map itself is only ever written to
// from AddDevice before Run starts.
func (l *Loop) DeviceNames() []string {
	names := make([]string, 0, len(l.states))
	for name := range l.states {
		names = append(names, name)
	}
	return names
}

func (l *Loop) handleToggle(cmd toggleCommand) {
	state, ok := l.states[cmd.device]
	if !ok {
		logrus.WithField("device", cmd.device).Warn("eventloop: toggle requested for unknown device")
		return
	}
	if cmd.enabled {
		if state.Kind == segment.Disabled {
			state.Kind = segment.WaitingForVoiceActivity
		}
	} else {
		state.Kind = segment.Disabled
		state.Accumulated = nil
	}
}

func (l *Loop) toggleAllDisabled() {
	for _, state := range l.states {
		if state.Kind == segment.Disabled {
			state.Kind = segment.WaitingForVoiceActivity
		} else {
			state.Kind = segment.Disabled
			state.Accumulated = nil
		}
	}
}

func (l *Loop) snapshot() Snapshot {
	states := make(map[string]segment.State, len(l.states))
	for name, s := range l.states {
		states[name] = *s
	}
	return Snapshot{States: states}
}

func (l *Loop) shutdown() {
	for _, session := range l.sessions {
		if err := session.Close(); err != nil {
			logrus.WithError(err).Warn("eventloop: error closing capture session")
		}
	}
}
