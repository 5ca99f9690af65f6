// Package discordnotify posts recognized transcript text to a Discord
// channel as an outbound notification, independent of the terminal UI.
package discordnotify

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/fankserver/voicepipe/internal/transcribe"
)

// Notifier sends one message per transcription result to a fixed channel.
type Notifier struct {
	session   *discordgo.Session
	channelID string
}

// New opens a Discord session with token and targets channelID.
func New(token, channelID string) (*Notifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discordnotify: create session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discordnotify: open session: %w", err)
	}
	return &Notifier{session: session, channelID: channelID}, nil
}

func (n *Notifier) Name() string { return "discord-notifier" }

// Consume joins the result's segments and posts them as one message.
func (n *Notifier) Consume(device string, result transcribe.Result, at time.Time) error {
	texts := make([]string, 0, len(result.Segments))
	for _, seg := range result.Segments {
		texts = append(texts, seg.Text)
	}
	text := strings.TrimSpace(strings.Join(texts, " "))
	if text == "" {
		return nil
	}

	message := fmt.Sprintf("**%s** (%s): %s", device, at.Format(time.Kitchen), text)
	if _, err := n.session.ChannelMessageSend(n.channelID, message); err != nil {
		return fmt.Errorf("discordnotify: send message: %w", err)
	}
	return nil
}

// Close shuts down the underlying Discord session.
func (n *Notifier) Close() error {
	return n.session.Close()
}
