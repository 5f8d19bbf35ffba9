package client

import (
	"bufio"
	"consult-chat/contract"
	"consult-chat/errors"
	"consult-chat/observability"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
)

// Input reads the chat panel lines and drives the session. It returns nil
// on /quit or end of input, after calling quit.
type Input struct {
	log        *slog.Logger
	session    contract.ChatSession
	lines      <-chan string
	stop       chan struct{}
	stopOnce   sync.Once
	scanDone   <-chan struct{}
	renderer   *Renderer
	quit       func()
	largeBytes int
	stats      *observability.SessionStats
}

func NewInput(
	log *slog.Logger,
	session contract.ChatSession,
	in io.Reader,
	renderer *Renderer,
	quit func(),
) *Input {
	stop := make(chan struct{})
	lines, scanDone := scanLines(in, stop)
	return &Input{
		log:        log,
		session:    session,
		lines:      lines,
		stop:       stop,
		scanDone:   scanDone,
		renderer:   renderer,
		quit:       quit,
		largeBytes: 5 << 20,
	}
}

func (i *Input) WithLargeAttachment(bytes int) *Input {
	i.largeBytes = bytes
	return i
}

func (i *Input) WithStats(stats *observability.SessionStats) *Input {
	i.stats = stats
	return i
}

// scanLines feeds a channel so Run can stop on cancellation while a read
// is pending. Once stop is closed the scanner exits after its current read
// instead of waiting for a consumer; done is closed when it is gone.
func scanLines(in io.Reader, stop <-chan struct{}) (<-chan string, <-chan struct{}) {
	lines := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64<<10), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()
	return lines, done
}

func (i *Input) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			i.stopScanning()
			return nil
		case line, ok := <-i.lines:
			if !ok {
				i.log.Debug("Input closed")
				i.quit()
				return nil
			}
			if done := i.Execute(ctx, ParseCommand(line)); done {
				i.stopScanning()
				i.quit()
				return nil
			}
		}
	}
}

func (i *Input) stopScanning() {
	i.stopOnce.Do(func() { close(i.stop) })
}

// Execute runs one command and reports whether the chat should end.
func (i *Input) Execute(ctx context.Context, cmd Command) bool {
	switch cmd.Kind {
	case CommandQuit:
		return true
	case CommandSend:
		if err := i.session.Send(cmd.Arg); err != nil && !errors.Is(err, errors.ErrEmptyMessage) {
			i.renderer.Println(fmt.Sprintf("! message not sent: %v", err))
		}
	case CommandFile:
		i.sendFile(ctx, cmd.Arg)
	case CommandHistory:
		var table strings.Builder
		WriteHistory(&table, i.session.Timeline().Messages())
		i.renderer.Println(strings.TrimRight(table.String(), "\n"))
	case CommandState:
		line := fmt.Sprintf("consultation %s: %s", i.session.Consultation().ID, i.session.State())
		if i.stats != nil {
			line += "\n" + i.stats.String()
		}
		i.renderer.Println(line)
	case CommandHelp:
		i.renderer.Println(helpText)
	default:
		i.renderer.Println(fmt.Sprintf("unknown command %s, try /help", cmd.Arg))
	}
	return false
}

func (i *Input) sendFile(ctx context.Context, path string) {
	if path == "" {
		i.renderer.Println("usage: /file <path>")
		return
	}
	if info, err := os.Stat(path); err == nil && int64(i.largeBytes) > 0 && info.Size() > int64(i.largeBytes) {
		i.renderer.Println(fmt.Sprintf("warning: %s is %s, sending may take a while", path, humanize.Bytes(uint64(info.Size()))))
	}
	// The session already reports read failures as notices.
	if err := i.session.SendFile(ctx, path); err != nil && !errors.Is(err, errors.ErrFileRead) {
		i.renderer.Println(fmt.Sprintf("! file not sent: %v", err))
	}
}
