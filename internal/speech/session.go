package speech

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// SessionState is the lifecycle state of a recognition session.
type SessionState string

const (
	SessionListening SessionState = "listening"
	SessionIdle      SessionState = "idle"
	SessionError     SessionState = "error"
)

// Transcript is a recognition result with its detected language.
type Transcript struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Session is one recognition capture. The transport feeds audio with
// Write, may request interim transcripts with Flush, and ends the
// capture with Stop. Every exit path settles the session so the
// coordinator can accept a new one.
type Session struct {
	coord    *Coordinator
	langHint string

	mu    sync.Mutex
	buf   bytes.Buffer
	state SessionState

	onPartial func(Transcript)
	onFinal   func(Transcript)
	onEnd     func()
	onError   func(error)
}

func newSession(c *Coordinator, langHint string) *Session {
	return &Session{coord: c, langHint: langHint, state: SessionListening}
}

// OnPartial registers a callback for interim transcripts.
func (s *Session) OnPartial(fn func(Transcript)) { s.mu.Lock(); s.onPartial = fn; s.mu.Unlock() }

// OnFinal registers a callback for the final transcript.
func (s *Session) OnFinal(fn func(Transcript)) { s.mu.Lock(); s.onFinal = fn; s.mu.Unlock() }

// OnEnd registers a callback fired when the session settles, on every
// path including errors.
func (s *Session) OnEnd(fn func()) { s.mu.Lock(); s.onEnd = fn; s.mu.Unlock() }

// OnError registers a callback for device or backend errors.
func (s *Session) OnError(fn func(error)) { s.mu.Lock(); s.onError = fn; s.mu.Unlock() }

// State returns the session's current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Write appends captured audio to the session.
func (s *Session) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionListening {
		return fmt.Errorf("speech: session is %s, not listening", s.state)
	}
	s.buf.Write(p)
	return nil
}

// Flush transcribes the audio captured so far and emits it as an
// interim transcript. The session keeps listening. Transcription
// failures on interim results are reported but do not end the capture.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.state != SessionListening {
		s.mu.Unlock()
		return fmt.Errorf("speech: session is %s, not listening", s.state)
	}
	audio := append([]byte(nil), s.buf.Bytes()...)
	partial := s.onPartial
	onError := s.onError
	s.mu.Unlock()

	if len(audio) == 0 {
		return nil
	}

	text, err := s.coord.recognizer.Transcribe(ctx, audio, s.langHint)
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return fmt.Errorf("speech: interim transcription: %w", err)
	}
	if partial != nil {
		partial(Transcript{Text: text, Language: DetectLanguage(text)})
	}
	return nil
}

// Stop ends the capture and transcribes everything recorded. The final
// transcript's language is classified by dominant script. On backend
// failure the session settles to idle through the error path and the
// text-only flow remains usable.
func (s *Session) Stop(ctx context.Context) (*Transcript, error) {
	s.mu.Lock()
	if s.state != SessionListening {
		s.mu.Unlock()
		return nil, fmt.Errorf("speech: session is %s, not listening", s.state)
	}
	audio := append([]byte(nil), s.buf.Bytes()...)
	s.mu.Unlock()

	if len(audio) == 0 {
		s.settle(SessionIdle, nil)
		return &Transcript{Text: "", Language: LangEnglish}, nil
	}

	text, err := s.coord.recognizer.Transcribe(ctx, audio, s.langHint)
	if err != nil {
		s.settle(SessionIdle, err)
		return nil, fmt.Errorf("speech: transcription: %w", err)
	}

	tr := Transcript{Text: text, Language: DetectLanguage(text)}

	s.mu.Lock()
	final := s.onFinal
	s.mu.Unlock()
	if final != nil {
		final(tr)
	}
	s.settle(SessionIdle, nil)
	return &tr, nil
}

// Fail records a device or permission error and settles the session.
// The error surfaces through OnError; nothing propagates to the
// conversation flow, and the coordinator is released so a fresh capture
// can start.
func (s *Session) Fail(err error) {
	s.settle(SessionError, err)
}

// cancel ends the session without a final transcript, used when a
// synthesis turn supersedes the capture.
func (s *Session) cancel() {
	s.settle(SessionIdle, nil)
}

// settle moves the session out of listening exactly once, firing
// OnError (when err != nil) and OnEnd, and releasing the coordinator.
func (s *Session) settle(state SessionState, err error) {
	s.mu.Lock()
	if s.state != SessionListening {
		s.mu.Unlock()
		return
	}
	s.state = state
	onError := s.onError
	onEnd := s.onEnd
	s.mu.Unlock()

	if err != nil && onError != nil {
		onError(err)
	}
	if onEnd != nil {
		onEnd()
	}
	s.coord.sessionDone(s)
}
