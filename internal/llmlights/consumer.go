package llmlights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fankserver/voicepipe/internal/hue"
	"github.com/fankserver/voicepipe/internal/transcribe"
)

// Consumer wires an Interpreter's output into a Hue bridge client as a
// router.Consumer.
type Consumer struct {
	interpreter *Interpreter
	bridge      *hue.Client
}

// NewConsumer returns a result consumer that interprets each transcript and
// applies any resulting light updates.
func NewConsumer(interpreter *Interpreter, bridge *hue.Client) *Consumer {
	return &Consumer{interpreter: interpreter, bridge: bridge}
}

func (c *Consumer) Name() string { return "llm-lights" }

// Consume joins the result's segments into one transcript and hands it to
// the interpreter; any resulting updates are applied to the bridge.
func (c *Consumer) Consume(device string, result transcribe.Result, at time.Time) error {
	texts := make([]string, 0, len(result.Segments))
	for _, seg := range result.Segments {
		texts = append(texts, seg.Text)
	}
	transcript := strings.TrimSpace(strings.Join(texts, " "))
	if transcript == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	updates, err := c.interpreter.Interpret(ctx, transcript)
	if err != nil {
		return fmt.Errorf("llmlights: interpret: %w", err)
	}

	for _, u := range updates {
		if err := c.bridge.Apply(u); err != nil {
			logrus.WithError(err).WithField("light_id", u.LightID).Warn("llmlights: failed to apply light update")
		}
	}
	return nil
}
