// Package stomp encodes and decodes the text frames of the pub/sub control
// protocol spoken with the consultation broker (STOMP 1.2 subset).
package stomp

import (
	"bytes"
	"consult-chat/errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandConnect    Command = "CONNECT"
	CommandConnected  Command = "CONNECTED"
	CommandSubscribe  Command = "SUBSCRIBE"
	CommandSend       Command = "SEND"
	CommandDisconnect Command = "DISCONNECT"
	CommandMessage    Command = "MESSAGE"
	CommandReceipt    Command = "RECEIPT"
	CommandError      Command = "ERROR"
	// CommandHeartbeat is not a real command: a bare EOL on the wire.
	CommandHeartbeat Command = ""
)

var knownCommands = map[Command]struct{}{
	CommandConnect:    {},
	CommandConnected:  {},
	CommandSubscribe:  {},
	CommandSend:       {},
	CommandDisconnect: {},
	CommandMessage:    {},
	CommandReceipt:    {},
	CommandError:      {},
}

const (
	HeaderAcceptVersion = "accept-version"
	HeaderAuthorization = "Authorization"
	HeaderContentLength = "content-length"
	HeaderContentType   = "content-type"
	HeaderDestination   = "destination"
	HeaderHeartBeat     = "heart-beat"
	HeaderHost          = "host"
	HeaderID            = "id"
	HeaderMessage       = "message"
	HeaderReceipt       = "receipt"
	HeaderReceiptID     = "receipt-id"
	HeaderSubscription  = "subscription"
	HeaderVersion       = "version"
)

type Header struct {
	Key   string
	Value string
}

// Headers keeps wire order. When a key is repeated only the first one counts.
type Headers []Header

func (h Headers) Get(key string) (string, bool) {
	for _, header := range h {
		if header.Key == key {
			return header.Value, true
		}
	}
	return "", false
}

func (h Headers) Value(key string) string {
	v, _ := h.Get(key)
	return v
}

type Frame struct {
	Command Command
	Headers Headers
	Body    []byte
}

func (f Frame) IsHeartbeat() bool {
	return f.Command == CommandHeartbeat
}

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)
	nullOctet = []byte{0}
)

// escapes reports whether header escaping applies to the command.
// CONNECT and CONNECTED frames are exempt for 1.0 compatibility.
func escapes(cmd Command) bool {
	return cmd != CommandConnect && cmd != CommandConnected
}

// Marshal renders the frame in wire format, terminated by a NUL octet.
func (f Frame) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(string(f.Command))
	buf.WriteByte('\n')
	for _, header := range f.Headers {
		key, value := header.Key, header.Value
		if escapes(f.Command) {
			key, value = escaper.Replace(key), escaper.Replace(value)
		}
		buf.WriteString(key)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.Write(nullOctet)
	return buf.Bytes()
}

// Unmarshal parses one frame. A payload made only of EOLs is a heartbeat.
func Unmarshal(raw []byte) (Frame, error) {
	data := bytes.TrimLeft(raw, "\r\n")
	if len(data) == 0 {
		return Frame{Command: CommandHeartbeat}, nil
	}

	headEnd, sepLen := headerBlockEnd(data)
	if headEnd < 0 {
		return Frame{}, fmt.Errorf("%w: missing header terminator", errors.ErrFrameDecode)
	}
	lines := strings.Split(strings.ReplaceAll(string(data[:headEnd]), "\r\n", "\n"), "\n")

	cmd := Command(lines[0])
	if _, ok := knownCommands[cmd]; !ok {
		return Frame{}, fmt.Errorf("%w: unknown command %q", errors.ErrFrameDecode, lines[0])
	}

	frame := Frame{Command: cmd}
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return Frame{}, fmt.Errorf("%w: malformed header %q", errors.ErrFrameDecode, line)
		}
		if escapes(cmd) {
			var err error
			if key, err = unescape(key); err != nil {
				return Frame{}, err
			}
			if value, err = unescape(value); err != nil {
				return Frame{}, err
			}
		}
		frame.Headers = append(frame.Headers, Header{Key: key, Value: value})
	}

	body := data[headEnd+sepLen:]
	if length, ok := frame.Headers.Get(HeaderContentLength); ok {
		n, err := strconv.Atoi(length)
		if err != nil || n < 0 {
			return Frame{}, fmt.Errorf("%w: bad content-length %q", errors.ErrFrameDecode, length)
		}
		if n >= len(body) || body[n] != 0 {
			return Frame{}, fmt.Errorf("%w: body shorter than content-length %d", errors.ErrFrameDecode, n)
		}
		frame.Body = body[:n]
		return frame, nil
	}

	end := bytes.IndexByte(body, 0)
	if end < 0 {
		return Frame{}, fmt.Errorf("%w: missing NUL terminator", errors.ErrFrameDecode)
	}
	frame.Body = body[:end]
	return frame, nil
}

func headerBlockEnd(data []byte) (int, int) {
	lf := bytes.Index(data, []byte("\n\n"))
	crlf := bytes.Index(data, []byte("\r\n\r\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return crlf, 4
	case lf >= 0:
		return lf, 2
	default:
		return -1, 0
	}
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 == len(s) {
			return "", fmt.Errorf("%w: dangling escape in %q", errors.ErrFrameDecode, s)
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'c':
			b.WriteByte(':')
		default:
			return "", fmt.Errorf("%w: undefined escape \\%c", errors.ErrFrameDecode, s[i])
		}
	}
	return b.String(), nil
}
