package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	apiPkg "github.com/unibot-io/unibot/internal/api"
	"github.com/unibot-io/unibot/internal/config"
	"github.com/unibot-io/unibot/internal/connector"
	"github.com/unibot-io/unibot/internal/connector/telegram"
	"github.com/unibot-io/unibot/internal/connector/webhook"
	"github.com/unibot-io/unibot/internal/conversation"
	"github.com/unibot-io/unibot/internal/ingest"
	"github.com/unibot-io/unibot/internal/knowledge"
	"github.com/unibot-io/unibot/internal/logbuf"
	"github.com/unibot-io/unibot/internal/speech"
	"github.com/unibot-io/unibot/internal/sweep"
	"github.com/unibot-io/unibot/internal/ticket"
	"github.com/unibot-io/unibot/internal/triage"
	"github.com/unibot-io/unibot/pkg/protocol"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	// Load config (file or env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("unibotd starting", "helpdesk", cfg.Helpdesk.Name)

	// Stores
	if err := os.MkdirAll(cfg.Helpdesk.DataDir, 0o755); err != nil {
		logger.Error("failed to create data dir", "path", cfg.Helpdesk.DataDir, "error", err)
		os.Exit(1)
	}

	faqs, err := knowledge.NewSQLiteStore(filepath.Join(cfg.Helpdesk.DataDir, "faqs.db"))
	if err != nil {
		logger.Error("failed to open knowledge store", "error", err)
		os.Exit(1)
	}
	tickets, err := ticket.NewSQLiteStore(filepath.Join(cfg.Helpdesk.DataDir, "tickets.db"))
	if err != nil {
		logger.Error("failed to open ticket store", "error", err)
		os.Exit(1)
	}
	convs, err := conversation.NewSQLiteStore(filepath.Join(cfg.Helpdesk.DataDir, "conversations.db"))
	if err != nil {
		logger.Error("failed to open conversation store", "error", err)
		os.Exit(1)
	}

	// Triage engine with the configured interactive delay
	engine := triage.NewEngine(faqs, tickets, logger.With("component", "triage"))
	engine.Delay = triage.RandomDelay{
		Min: time.Duration(cfg.Triage.MinDelayMs) * time.Millisecond,
		Max: time.Duration(cfg.Triage.MaxDelayMs) * time.Millisecond,
	}

	// Speech
	var recognizer speech.Recognizer
	if rc := cfg.Speech.Recognition; rc != nil {
		recognizer = speech.NewHTTPRecognizer(rc.URL, rc.APIKey, rc.Model)
	}
	var synth speech.Synthesizer
	var player speech.Player
	if sc := cfg.Speech.Synthesis; sc != nil {
		synth = speech.NewHTTPSynthesizer(sc.URL, sc.APIKey, sc.Model)
		player = speech.NewExecPlayer(sc.PlayerCommand)
	}
	coord := speech.NewCoordinator(recognizer, synth, player, logger.With("component", "speech"))
	caps := coord.Capabilities()
	logger.Info("speech configured", "recognition", caps.Recognition, "synthesis", caps.Synthesis)

	// Event hub + importer
	hub := apiPkg.NewHub(logger.With("component", "events"))
	importer := ingest.NewImporter(logger.With("component", "ingest"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// The channel handler runs one triage turn and persists the
	// transcript, keyed by the channel's chat id.
	turns := &turnHandler{
		engine: engine,
		convs:  convs,
		hub:    hub,
		chats:  make(map[string]*chatSession),
		logger: logger.With("component", "turns"),
	}

	// Webhook sources
	var webhooks *webhook.Handler
	if len(cfg.Connectors.Webhook) > 0 {
		sources := make(map[string]webhook.SourceConfig, len(cfg.Connectors.Webhook))
		for name, src := range cfg.Connectors.Webhook {
			sources[name] = webhook.SourceConfig{Secret: src.Secret, BearerToken: src.BearerToken}
		}
		webhooks = webhook.New(webhook.Config{Sources: sources}, turns.Handle, logger.With("connector", "webhook"))
		logger.Info("webhook sources configured", "count", len(sources))
	}

	// Telegram
	if cfg.Connectors.Telegram != nil {
		tgConn, err := telegram.New(
			telegram.Config{
				Token:     cfg.Connectors.Telegram.Token,
				AllowFrom: cfg.Connectors.Telegram.AllowFrom,
			},
			turns.Handle,
			recognizer,
			logger.With("connector", "telegram"),
		)
		if err != nil {
			logger.Error("failed to init telegram channel", "error", err)
			os.Exit(1)
		}
		g.Go(func() error { return ignoreCancel(tgConn.Start(ctx)) })
	}

	// Stale-ticket sweep
	sweeper := sweep.New(tickets, time.Duration(cfg.Sweep.MaxAgeHours)*time.Hour, logger.With("component", "sweep"))
	g.Go(func() error { return ignoreCancel(sweeper.Start(ctx, cfg.Sweep.Schedule)) })

	// API server
	apiSrv := apiPkg.NewServer(apiPkg.Deps{
		Engine:        engine,
		Conversations: convs,
		Tickets:       tickets,
		FAQs:          faqs,
		Importer:      importer,
		Speech:        coord,
		Hub:           hub,
		Webhooks:      webhooks,
		Logs:          logBuf,
	}, apiPkg.Config{
		Host: cfg.API.Host,
		Port: cfg.API.Port,
		Key:  cfg.API.Key,
	}, logger.With("component", "api"))
	g.Go(func() error { return apiSrv.Start(ctx) })
	logger.Info("api server started", "port", cfg.API.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}
	cancel()

	if err := g.Wait(); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("unibotd stopped")
}

func ignoreCancel(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}

// turnHandler bridges channel messages into triage turns. Each chat id
// maps to one long-lived conversation record.
type turnHandler struct {
	engine *triage.Engine
	convs  conversation.Store
	hub    *apiPkg.Hub
	logger *slog.Logger

	mu    sync.Mutex
	chats map[string]*chatSession // channel chat id -> session
}

// chatSession pins a chat to its conversation and serializes turns on
// it. Webhook sources are served concurrently by net/http, so without
// the lock two posts for the same chat would read the same snapshot
// and the second Upsert would erase the first turn.
type chatSession struct {
	convID string
	mu     sync.Mutex
}

func (h *turnHandler) session(key string) *chatSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.chats[key]
	if !ok {
		sess = &chatSession{convID: conversation.NewID()}
		h.chats[key] = sess
	}
	return sess
}

// Handle runs one triage turn and returns the reply text. A second
// message for the same chat waits for the in-flight turn to finish.
func (h *turnHandler) Handle(ctx context.Context, msg connector.InboundMessage) (string, error) {
	sess := h.session(msg.Channel + ":" + msg.ChatID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	convID := sess.convID

	student := msg.SenderName
	if student == "" {
		student = msg.SenderID
	}

	now := time.Now()
	conv, err := h.convs.Get(convID)
	if err != nil {
		conv = &protocol.Conversation{ID: convID, Owner: student, CreatedAt: now}
	}
	conv.Messages = append(conv.Messages, protocol.ChatMessage{
		ID:        conversation.NewID(),
		Sender:    protocol.SenderUser,
		Text:      msg.Content,
		Timestamp: now,
	})

	result, err := h.engine.Resolve(ctx, msg.Content, protocol.Identity{
		Name: student,
		Role: protocol.RoleStudent,
	})
	if err != nil {
		return "", fmt.Errorf("turn: %w", err)
	}

	conv.Messages = append(conv.Messages, result.Message)
	if err := h.convs.Upsert(conv); err != nil {
		h.logger.Error("failed to persist conversation", "conversation", convID, "error", err)
	}

	h.hub.Broadcast(apiPkg.Event{Type: "chat", Data: result.Message})
	if result.Ticket != nil {
		h.hub.Broadcast(apiPkg.Event{Type: "ticket", Data: result.Ticket})
	}
	return result.Message.Text, nil
}
