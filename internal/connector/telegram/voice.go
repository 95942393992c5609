package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram voice notes cap out at 20MB; leave a little headroom.
const maxVoiceDownload = 25 << 20

// transcribeVoice downloads a Telegram voice or audio message and runs
// it through the configured recognizer.
func (c *Connector) transcribeVoice(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	if c.recognizer == nil {
		return "", fmt.Errorf("voice transcription not configured")
	}

	var fileID string
	if msg.Voice != nil {
		fileID = msg.Voice.FileID
	} else if msg.Audio != nil {
		fileID = msg.Audio.FileID
	} else {
		return "", fmt.Errorf("no voice or audio in message")
	}

	fileURL, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("get file URL: %w", err)
	}

	audio, err := downloadFile(ctx, fileURL)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}

	text, err := c.recognizer.Transcribe(ctx, audio, "")
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return text, nil
}

func downloadFile(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxVoiceDownload))
}
