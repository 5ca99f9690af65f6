package transcribe

import (
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Transcribe_Success(t *testing.T) {
	var gotContentType string
	var gotBodyLen int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBodyLen = len(body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"segments":[{"text":"hi","start":0,"end":0.5}],"language":"en"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	samples := make([]float32, 16000)
	result, err := c.Transcribe(samples)
	require.NoError(t, err)

	assert.Equal(t, "audio/f32le", gotContentType)
	assert.Equal(t, 4*len(samples), gotBodyLen)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "hi", result.Segments[0].Text)
	assert.Equal(t, "en", result.Language)
}

func TestClient_Transcribe_RemoteRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Transcribe([]float32{0.1})

	var rejected *RemoteRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusInternalServerError, rejected.Status)
}

func TestClient_Transcribe_ProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Transcribe([]float32{0.1})

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestClient_Transcribe_NetworkError(t *testing.T) {
	c := NewClient("http://127.0.0.1:0")
	_, err := c.Transcribe([]float32{0.1})
	assert.True(t, IsNetworkError(err))
}

func TestClient_EncodesLittleEndianFloat32(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"segments":[],"language":"en"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Transcribe([]float32{1.0})
	require.NoError(t, err)

	require.Len(t, gotBody, 4)
	bits := binary.LittleEndian.Uint32(gotBody)
	assert.Equal(t, float32bits(1.0), bits)
}
