package pipeline

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fankserver/voicepipe/internal/segment"
	"github.com/fankserver/voicepipe/internal/transcribe"
)

func TestQueue_SubmitAndComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"segments":[{"text":"hello","start":0,"end":1}],"language":"en"}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.WorkerCount = 1
	q := New(cfg)
	client := transcribe.NewClient(srv.URL)
	q.Start(client)
	defer q.Stop()

	var mu sync.Mutex
	var got *transcribe.Result
	done := make(chan struct{})

	err := q.Submit(segment.BatchChunk{Device: "mic", Channels: 1, SampleRate: 16000, Samples: []float32{0.1, 0.2}}, nil, func(r transcribe.Result) {
		mu.Lock()
		got = &r
		mu.Unlock()
		close(done)
	}, func(err error) {
		t.Fatalf("unexpected error: %v", err)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Segments[0].Text)
}

func TestQueue_FailureInvokesOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.WorkerCount = 1
	cfg.MaxRetries = 1
	cfg.ProcessTimeout = time.Second
	q := New(cfg)
	q.Start(transcribe.NewClient(srv.URL))
	defer q.Stop()

	done := make(chan error, 1)
	err := q.Submit(segment.BatchChunk{Device: "mic", Channels: 1, SampleRate: 16000, Samples: []float32{0.1}}, nil, func(transcribe.Result) {
		t.Fatal("unexpected success")
	}, func(err error) {
		done <- err
	})
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for failure callback")
	}
}
