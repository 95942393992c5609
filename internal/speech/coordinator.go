// Package speech coordinates recognition sessions and synthesis
// playback around the helpdesk's conversational turns. Recognition and
// synthesis never overlap: the device must not hear its own voice.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Capability errors, surfaced up front so callers can hide voice
// controls instead of failing at call time.
var (
	ErrRecognitionUnavailable = errors.New("speech: recognition unavailable")
	ErrSynthesisUnavailable   = errors.New("speech: synthesis unavailable")
)

// Capabilities reports which speech directions the host configuration
// supports.
type Capabilities struct {
	Recognition bool `json:"recognition"`
	Synthesis   bool `json:"synthesis"`
}

// Coordinator owns all recognition sessions and synthesis playback.
// At most one recognition session and one audible utterance exist at a
// time; starting one side refuses or cancels the other.
type Coordinator struct {
	recognizer Recognizer
	synth      Synthesizer
	player     Player
	logger     *slog.Logger

	mu          sync.Mutex
	listening   *Session
	speaking    bool
	speakGen    uint64
	cancelSpeak context.CancelFunc
}

// NewCoordinator wires a coordinator. Any of recognizer, synth, or
// player may be nil; the corresponding capability is reported as
// unavailable.
func NewCoordinator(recognizer Recognizer, synth Synthesizer, player Player, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		recognizer: recognizer,
		synth:      synth,
		player:     player,
		logger:     logger,
	}
}

// Capabilities reports what the host environment supports.
func (c *Coordinator) Capabilities() Capabilities {
	return Capabilities{
		Recognition: c.recognizer != nil,
		Synthesis:   c.synth != nil && c.player != nil,
	}
}

// StartListening begins a capture session. It refuses while synthesis
// is speaking and while another session is active.
func (c *Coordinator) StartListening(languageHint string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recognizer == nil {
		return nil, ErrRecognitionUnavailable
	}
	if c.speaking {
		return nil, fmt.Errorf("speech: refusing to listen while speaking")
	}
	if c.listening != nil {
		return nil, fmt.Errorf("speech: a recognition session is already active")
	}

	s := newSession(c, languageHint)
	c.listening = s
	c.logger.Debug("recognition session started", "lang_hint", languageHint)
	return s, nil
}

// Listening reports whether a recognition session is active.
func (c *Coordinator) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening != nil
}

// Speaking reports whether an utterance is audible or being rendered.
func (c *Coordinator) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Speak renders and plays text, cancelling any in-flight utterance
// first and ending any active recognition session so playback is never
// captured as input. Markup is stripped before synthesis and the voice
// is chosen for the resolved language. The returned channel always
// receives exactly one value when playback ends or errors.
func (c *Coordinator) Speak(ctx context.Context, text, languageOverride string) <-chan error {
	done := make(chan error, 1)

	c.mu.Lock()
	if c.synth == nil || c.player == nil {
		c.mu.Unlock()
		done <- ErrSynthesisUnavailable
		return done
	}

	if c.cancelSpeak != nil {
		c.cancelSpeak()
	}
	listening := c.listening
	speakCtx, cancel := context.WithCancel(ctx)
	c.cancelSpeak = cancel
	c.speaking = true
	c.speakGen++
	gen := c.speakGen
	c.mu.Unlock()

	if listening != nil {
		listening.cancel()
	}

	go func() {
		err := c.speak(speakCtx, text, languageOverride)
		cancel()

		c.mu.Lock()
		// A superseding utterance may already own the coordinator.
		if gen == c.speakGen {
			c.speaking = false
			c.cancelSpeak = nil
		}
		c.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("synthesis failed", "error", err)
		}
		done <- err
	}()
	return done
}

// StopSpeaking cancels the in-flight utterance, if any.
func (c *Coordinator) StopSpeaking() {
	c.mu.Lock()
	cancel := c.cancelSpeak
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Coordinator) speak(ctx context.Context, text, languageOverride string) error {
	clean := StripMarkup(text)

	lang := languageOverride
	if lang == "" {
		lang = DetectLanguage(clean)
	}

	voices, err := c.synth.Voices(ctx)
	if err != nil {
		return fmt.Errorf("speech: list voices: %w", err)
	}
	voice, ok := SelectVoice(voices, lang)
	if !ok {
		return fmt.Errorf("speech: no voice available for %s", lang)
	}

	audio, err := c.synth.Synthesize(ctx, clean, voice)
	if err != nil {
		return fmt.Errorf("speech: synthesize: %w", err)
	}
	if err := c.player.Play(ctx, audio); err != nil {
		return fmt.Errorf("speech: playback: %w", err)
	}

	c.logger.Debug("utterance finished", "voice", voice.Name, "lang", lang, "chars", len(clean))
	return nil
}

// sessionDone releases the active session slot when a session settles.
func (c *Coordinator) sessionDone(s *Session) {
	c.mu.Lock()
	if c.listening == s {
		c.listening = nil
	}
	c.mu.Unlock()
}
