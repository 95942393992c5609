// Package telegram runs the helpdesk over a Telegram bot, including
// transcription of voice notes so students can ask questions hands-free.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unibot-io/unibot/internal/connector"
	"github.com/unibot-io/unibot/internal/speech"
)

// Config holds Telegram channel configuration.
type Config struct {
	Token     string  // Bot token from @BotFather
	AllowFrom []int64 // Allowed Telegram user IDs (empty = allow all)
}

// Connector implements connector.Connector for Telegram.
type Connector struct {
	bot        *tgbotapi.BotAPI
	config     Config
	handler    connector.InboundHandler
	recognizer speech.Recognizer // nil = voice notes rejected
	logger     *slog.Logger
	cancel     context.CancelFunc
}

// New creates a Telegram channel. recognizer may be nil, in which case
// voice notes get a polite refusal instead of a transcript.
func New(cfg Config, handler connector.InboundHandler, recognizer speech.Recognizer, logger *slog.Logger) (*Connector, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &Connector{
		bot:        bot,
		config:     cfg,
		handler:    handler,
		recognizer: recognizer,
		logger:     logger,
	}, nil
}

func (c *Connector) Name() string { return "telegram" }

// Start begins long-polling for updates. Blocks until context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := c.bot.GetUpdatesChan(u)

	c.logger.Info("telegram channel started", "bot", c.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			c.handleUpdate(ctx, update)

		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("telegram channel stopped")
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the channel.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send delivers a reply to a Telegram chat.
func (c *Connector) Send(_ context.Context, msg connector.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat_id %q: %w", msg.ChatID, err)
	}

	if strings.TrimSpace(msg.Content) == "" {
		c.logger.Warn("skipping empty reply", "chat_id", msg.ChatID)
		return nil
	}

	html := MarkdownToTelegramHTML(msg.Content)

	tgMsg := tgbotapi.NewMessage(chatID, html)
	tgMsg.ParseMode = "HTML"
	tgMsg.DisableWebPagePreview = true

	_, err = c.bot.Send(tgMsg)
	if err != nil {
		// Fallback to plain text if HTML fails
		c.logger.Warn("HTML send failed, falling back to plain text",
			"chat_id", msg.ChatID,
			"error", err,
		)
		tgMsg.Text = StripMarkdown(msg.Content)
		tgMsg.ParseMode = ""
		_, err = c.bot.Send(tgMsg)
	}

	return err
}

func (c *Connector) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	userID := msg.From.ID
	chatID := msg.Chat.ID

	// Access control
	if len(c.config.AllowFrom) > 0 && !contains(c.config.AllowFrom, userID) {
		c.logger.Warn("unauthorized user", "user_id", userID, "username", msg.From.UserName)
		return
	}

	if msg.IsCommand() {
		c.handleCommand(ctx, msg)
		return
	}

	text := msg.Text
	if text == "" && msg.Caption != "" {
		text = msg.Caption
	}

	fromVoice := false
	if text == "" && (msg.Voice != nil || msg.Audio != nil) {
		transcribed, err := c.transcribeVoice(ctx, msg)
		if err != nil {
			c.logger.Error("voice transcription failed",
				"chat_id", chatID,
				"error", err,
			)
			reply := tgbotapi.NewMessage(chatID, "Sorry, I couldn't understand that voice message. Please type your question.")
			c.bot.Send(reply)
			return
		}
		text = transcribed
		fromVoice = true
	}

	if text == "" {
		return
	}

	// Typing indicator covers the triage delay.
	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	c.bot.Send(typing)

	inbound := connector.InboundMessage{
		Channel:    "telegram",
		SenderID:   strconv.FormatInt(userID, 10),
		SenderName: senderName(msg.From),
		ChatID:     strconv.FormatInt(chatID, 10),
		Content:    text,
		Voice:      fromVoice,
	}

	reply, err := c.handler(ctx, inbound)
	if err != nil {
		c.logger.Error("inbound handler error",
			"chat_id", chatID,
			"error", err,
		)
		return
	}
	if reply == "" {
		return
	}

	if err := c.Send(ctx, connector.OutboundMessage{ChatID: inbound.ChatID, Content: reply}); err != nil {
		c.logger.Error("reply send failed", "chat_id", chatID, "error", err)
	}
}

func (c *Connector) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		help := strings.Join([]string{
			"I'm the university helpdesk assistant.",
			"",
			"Ask me about fees, exams, scholarships, housing or IT and I'll",
			"answer from the FAQ or open a support ticket for the right office.",
			"",
			"You can also send a voice message.",
		}, "\n")
		reply := tgbotapi.NewMessage(chatID, help)
		c.bot.Send(reply)

	default:
		// Unknown commands are treated as a plain query.
		text := msg.CommandArguments()
		if text == "" {
			return
		}
		inbound := connector.InboundMessage{
			Channel:    "telegram",
			SenderID:   strconv.FormatInt(msg.From.ID, 10),
			SenderName: senderName(msg.From),
			ChatID:     strconv.FormatInt(chatID, 10),
			Content:    text,
		}
		if reply, err := c.handler(ctx, inbound); err == nil && reply != "" {
			c.Send(ctx, connector.OutboundMessage{ChatID: inbound.ChatID, Content: reply})
		}
	}
}

func senderName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
