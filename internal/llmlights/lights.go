// Package llmlights asks a local LLM to turn a recognized transcript into
// structured Hue light commands.
package llmlights

import (
	"context"
	"encoding/json"
	"fmt"

	anyllm "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"

	"github.com/fankserver/voicepipe/internal/hue"
)

// Interpreter asks a model to translate a transcript into zero or more
// light updates, given the current roster of known light IDs.
type Interpreter struct {
	provider anyllm.Provider
	model    string
	lightIDs []string
}

// New builds an Interpreter against an Ollama-compatible backend, matching
// the original implementation's default of a local Ollama instance.
func New(baseURL, model string, lightIDs []string) (*Interpreter, error) {
	provider, err := ollama.New(anyllm.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("llmlights: construct ollama provider: %w", err)
	}
	return &Interpreter{provider: provider, model: model, lightIDs: lightIDs}, nil
}

type lightCommand struct {
	LightID    string `json:"light_id"`
	On         *bool  `json:"on,omitempty"`
	Red        *uint8 `json:"red,omitempty"`
	Green      *uint8 `json:"green,omitempty"`
	Blue       *uint8 `json:"blue,omitempty"`
	Brightness *uint8 `json:"brightness,omitempty"`
}

// Interpret returns the light updates implied by transcript, or an empty
// slice if the model decides no lights should change.
func (in *Interpreter) Interpret(ctx context.Context, transcript string) ([]hue.Update, error) {
	prompt := buildPrompt(transcript, in.lightIDs)

	resp, err := in.provider.Completion(ctx, anyllm.CompletionParams{
		Model: in.model,
		Messages: []anyllm.Message{
			{Role: anyllm.RoleSystem, Content: systemPrompt},
			{Role: anyllm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llmlights: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llmlights: model returned no choices")
	}

	var commands []lightCommand
	content := resp.Choices[0].Message.ContentString()
	if err := json.Unmarshal([]byte(content), &commands); err != nil {
		return nil, fmt.Errorf("llmlights: parse model response %q: %w", content, err)
	}

	updates := make([]hue.Update, 0, len(commands))
	for _, c := range commands {
		updates = append(updates, hue.Update{
			LightID:    c.LightID,
			On:         c.On,
			Red:        c.Red,
			Green:      c.Green,
			Blue:       c.Blue,
			Brightness: c.Brightness,
		})
	}
	return updates, nil
}

const systemPrompt = `You control smart lights based on spoken commands. Given a transcript and ` +
	`a list of known light IDs, reply with a JSON array of light commands. Each command has ` +
	`"light_id" and any of "on", "red", "green", "blue" (0-255), "brightness" (1-254). ` +
	`Reply with "[]" if the transcript implies no light change.`

func buildPrompt(transcript string, lightIDs []string) string {
	return fmt.Sprintf("Known lights: %v\nTranscript: %q", lightIDs, transcript)
}
