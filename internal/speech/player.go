package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ExecPlayer pipes synthesized audio into an external playback command
// such as ffplay or aplay. The command must read audio from stdin and
// exit when the stream ends.
type ExecPlayer struct {
	Command []string
}

// DefaultPlayerCommand plays arbitrary container formats without
// opening a window.
var DefaultPlayerCommand = []string{"ffplay", "-autoexit", "-nodisp", "-loglevel", "quiet", "-"}

func NewExecPlayer(command []string) *ExecPlayer {
	if len(command) == 0 {
		command = DefaultPlayerCommand
	}
	return &ExecPlayer{Command: command}
}

// Play blocks until playback finishes or ctx is cancelled.
func (p *ExecPlayer) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speech: player %s: %w", p.Command[0], err)
	}
	return nil
}
