// Package capture owns per-device driver capture sessions and converts
// native-format PCM callback buffers into normalized raw chunks.
package capture

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"

	"github.com/fankserver/voicepipe/internal/segment"
)

// Session owns one open device stream and publishes normalized raw chunks
// for it until Close is called.
type Session struct {
	device *malgo.Device
	queue  *unboundedQueue[segment.RawChunk]
	log    *logrus.Entry
}

// captureSampleRate and captureChannels are requested explicitly rather than
// left at zero: this binding does not hand back the negotiated values after
// InitDevice, so the only way to know the stream's shape later is to have
// fixed it ourselves up front.
const (
	captureSampleRate = 48000
	captureChannels   = 1
)

// Open starts capturing from the named device, publishing converted raw
// chunks as they arrive. It requests 48 kHz mono F32 from the driver, which
// converts from the device's native format; the device's own default rate
// and channel count are not used. A name that matches no capture device is
// an error.
//
// The returned Session's RawChunks channel must be drained by the caller;
// Push into the internal queue never blocks the driver callback regardless
// of consumer speed.
func Open(ctx *malgo.AllocatedContext, deviceName string) (*Session, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.SampleRate = captureSampleRate
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = captureChannels

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("capture: enumerate capture devices: %w", err)
	}
	found := false
	for i := range infos {
		name := infos[i].Name()
		if name == "" {
			name = fmt.Sprintf("Unknown-%d", i)
		}
		if name == deviceName {
			cfg.Capture.DeviceID = infos[i].ID.Pointer()
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("capture: no capture device named %q", deviceName)
	}

	log := logrus.WithField("device", deviceName)
	s := &Session{queue: newUnboundedQueue[segment.RawChunk](256), log: log}

	onRecv := func(_ []byte, pSample []byte, frameCount uint32) {
		if frameCount == 0 {
			return
		}
		channels := captureChannels
		samples := convert(pSample, int(frameCount)*channels)

		s.queue.Push(segment.RawChunk{
			Device:     deviceName,
			Channels:   channels,
			SampleRate: int(cfg.SampleRate),
			Samples:    samples,
		})
	}

	onStop := func() {
		log.Debug("capture: device stream stopped")
	}

	dev, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, pSample []byte, frameCount uint32) { onRecv(nil, pSample, frameCount) },
		Stop: onStop,
	})
	if err != nil {
		return nil, fmt.Errorf("capture: init device %q: %w", deviceName, err)
	}
	s.device = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("capture: start device %q: %w", deviceName, err)
	}

	return s, nil
}

// RawChunks returns the channel of normalized raw chunks for this session.
func (s *Session) RawChunks() <-chan segment.RawChunk {
	return s.queue.Out()
}

// Close stops the driver stream and releases the device handle.
func (s *Session) Close() error {
	if s.device != nil {
		s.device.Uninit()
	}
	s.queue.Close()
	return nil
}

// convert unpacks a little-endian F32 callback buffer into samples. The
// device config above requests malgo.FormatF32 explicitly, and miniaudio
// converts internally to match a requested format, so the callback never
// sees any other native layout to handle.
func convert(raw []byte, sampleCount int) []float32 {
	out := make([]float32, sampleCount)
	for i := range out {
		out[i] = bytesToFloat32LE(raw[i*4:])
	}
	return out
}

func bytesToFloat32LE(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return float32frombits(bits)
}
