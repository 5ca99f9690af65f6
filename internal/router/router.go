// Package router dispatches transcription results to the enabled set of
// consumer callbacks.
package router

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fankserver/voicepipe/internal/transcribe"
)

// Consumer receives a finished transcription result for a device. Consumers
// must not block; a slow consumer delays every consumer after it in the
// fixed dispatch order.
type Consumer interface {
	Name() string
	Consume(device string, result transcribe.Result, at time.Time) error
}

// Router holds the enabled consumer set in a fixed order.
type Router struct {
	consumers []Consumer
}

// New returns a Router that dispatches to consumers in the given order.
func New(consumers ...Consumer) *Router {
	return &Router{consumers: consumers}
}

// Dispatch invokes every consumer in order. A consumer's error is logged and
// does not stop dispatch to the remaining consumers.
func (r *Router) Dispatch(device string, result transcribe.Result, at time.Time) {
	for _, c := range r.consumers {
		if err := c.Consume(device, result, at); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"consumer": c.Name(),
				"device":   device,
			}).Error("router: consumer failed")
		}
	}
}
