package eventloop

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fankserver/voicepipe/internal/archive"
	"github.com/fankserver/voicepipe/internal/config"
	"github.com/fankserver/voicepipe/internal/keys"
	"github.com/fankserver/voicepipe/internal/pipeline"
	"github.com/fankserver/voicepipe/internal/router"
	"github.com/fankserver/voicepipe/internal/segment"
	"github.com/fankserver/voicepipe/internal/transcribe"
)

type fakeUI struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeUI) Render(Snapshot) {}
func (f *fakeUI) Log(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
}
func (f *fakeUI) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

type recordingConsumer struct {
	mu      sync.Mutex
	results []transcribe.Result
}

func (c *recordingConsumer) Name() string { return "recorder" }
func (c *recordingConsumer) Consume(device string, result transcribe.Result, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
	return nil
}

func TestLoop_RawChunksProduceArchivedTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"segments":[{"text":"turn on the lights","start":0,"end":1}],"language":"en"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	archiver := archive.New(dir)

	consumer := &recordingConsumer{}
	rt := router.New(consumer)

	cfg := pipeline.DefaultConfig()
	cfg.WorkerCount = 1
	queue := pipeline.New(cfg)
	queue.Start(transcribe.NewClient(srv.URL))
	defer queue.Stop()

	ui := &fakeUI{}
	bindings := keys.NewTable(config.KeyBindings{Quit: "q"})
	keyEvents := make(chan string)

	loop := New(segment.New(0, 0), queue, rt, archiver, ui, bindings, keyEvents)
	loop.states["mic"] = &segment.State{Kind: segment.WaitingForVoiceActivity}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	loud := make([]float32, 160)
	for i := range loud {
		loud[i] = 0.5
	}
	silence := make([]float32, 160)

	loop.rawCh <- segment.RawChunk{Device: "mic", Channels: 1, SampleRate: 16000, Samples: loud}
	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 8; i++ {
		loop.rawCh <- segment.RawChunk{Device: "mic", Channels: 1, SampleRate: 16000, Samples: silence}
		time.Sleep(200 * time.Millisecond)
	}

	deadline := time.After(3 * time.Second)
	for {
		consumer.mu.Lock()
		n := len(consumer.results)
		consumer.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for transcription result to be routed")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	<-done

	consumer.mu.Lock()
	defer consumer.mu.Unlock()
	require.Len(t, consumer.results, 1)
	assert.Equal(t, "turn on the lights", consumer.results[0].Segments[0].Text)

	latest, err := archiver.LatestPath()
	require.NoError(t, err)
	assert.NotEmpty(t, latest)
}
