package client

import (
	"consult-chat/attachment"
	"consult-chat/domain"
	"consult-chat/domain/event"
	"consult-chat/domain/mimetypes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
)

var (
	selfStyle   = color.New(color.FgGreen)
	peerStyle   = color.New(color.FgCyan, color.OpBold)
	errorStyle  = color.New(color.FgRed)
	systemStyle = color.New(color.FgYellow)
	stateStyle  = color.New(color.BgBlack, color.FgMagenta)
)

// Renderer prints session events as terminal lines. It is the UI sink of
// the event fanout.
type Renderer struct {
	mu         sync.Mutex
	out        io.Writer
	colours    bool
	largeBytes int
}

func NewRenderer(out io.Writer, colours bool) *Renderer {
	return &Renderer{out: out, colours: colours}
}

// WithLargeAttachment flags attachments above bytes.
func (r *Renderer) WithLargeAttachment(bytes int) *Renderer {
	r.largeBytes = bytes
	return r
}

func (r *Renderer) Consume(evt event.SessionEvent) {
	var line string
	switch e := evt.(type) {
	case event.MessageAppended:
		line = r.message(e.Message)
	case event.StateChanged:
		line = r.paint(stateStyle, fmt.Sprintf("  ====== %s ======", describeState(e.To)))
	case event.Notice:
		line = r.paint(errorStyle, "! "+e.Err.Error())
	default:
		return
	}
	r.Println(line)
}

// Println serialises writes with event rendering.
func (r *Renderer) Println(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.out, line)
}

func (r *Renderer) message(msg domain.Message) string {
	stamp := msg.Timestamp.Format(time.TimeOnly)
	sender := msg.Sender
	style := peerStyle
	if msg.IsSelf() {
		sender = "you"
		style = selfStyle
	}

	switch msg.Kind {
	case domain.KindFile:
		line := fmt.Sprintf("[%s] %s sent %s", stamp, r.paint(style, sender), describeAttachment(msg))
		if msg.Attachment != nil && attachment.IsLarge(*msg.Attachment, r.largeBytes) {
			line += r.paint(systemStyle, " [large]")
		}
		return line
	case domain.KindError:
		return fmt.Sprintf("[%s] %s: %s", stamp, r.paint(style, sender), r.paint(errorStyle, msg.Text()))
	case domain.KindSystem:
		return r.paint(systemStyle, fmt.Sprintf("[%s] * %s", stamp, msg.Text()))
	default:
		return fmt.Sprintf("[%s] %s: %s", stamp, r.paint(style, sender), msg.Text())
	}
}

func (r *Renderer) paint(style color.Style, s string) string {
	if !r.colours {
		return s
	}
	return style.Render(s)
}

func describeAttachment(msg domain.Message) string {
	if msg.Attachment == nil {
		return msg.Text()
	}
	att := msg.Attachment
	mime := mimetypes.MIME(att.MimeType)
	return fmt.Sprintf("%s (%s, %s)", att.FileName, mime.Label(), humanize.Bytes(uint64(att.Size())))
}

func describeState(state domain.ConnectionState) string {
	switch state {
	case domain.StateConnecting:
		return "connecting..."
	case domain.StateConnected:
		return "connected, you can type"
	case domain.StateReconnecting:
		return "connection lost, retrying"
	case domain.StateClosed:
		return "chat closed"
	default:
		return state.String()
	}
}
