package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/chunkscribe/internal/notify"
	"github.com/foxseedlab/chunkscribe/internal/transcript"
)

// Notifier posts finished transcripts to one Discord channel as a text attachment.
// It only uses the REST API, so no gateway connection is opened.
type Notifier struct {
	session   *discordgo.Session
	channelID string
}

// NewNotifier returns a no-op notifier when token or channel is empty.
func NewNotifier(token, channelID string) (*Notifier, error) {
	if token == "" || channelID == "" {
		return &Notifier{}, nil
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &Notifier{session: s, channelID: channelID}, nil
}

func (n *Notifier) NotifyTranscript(ctx context.Context, event notify.TranscriptEvent) error {
	if n.session == nil {
		return nil
	}
	filename := filepath.Base(event.TranscriptFile)
	if event.TranscriptFile == "" {
		filename = transcript.FileName(event.StreamID)
	}
	_, err := n.session.ChannelMessageSendComplex(n.channelID, &discordgo.MessageSend{
		Content: messageContent(event),
		Files: []*discordgo.File{
			{Name: filename, ContentType: "text/plain", Reader: strings.NewReader(event.Transcript)},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		if isRESTStatus(err, http.StatusNotFound) {
			return fmt.Errorf("discord channel %s not found: %w", n.channelID, err)
		}
		return err
	}
	return nil
}

func messageContent(event notify.TranscriptEvent) string {
	chunks := "chunks"
	if event.ChunkCount == 1 {
		chunks = "chunk"
	}
	return fmt.Sprintf("Transcript for **%s** ready (%d %s, %.1f min, %s)\n%s",
		event.StreamID, event.ChunkCount, chunks, float64(event.DurationMs)/60000, event.Provider, event.Source)
}

func isRESTStatus(err error, status int) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == status
}
