package stomp

import (
	"consult-chat/errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// UnknownSender labels messages whose body names nobody.
const UnknownSender = "unknown"

// InboundMessage is the decoded body of a MESSAGE frame.
// ContentNull is set when the body carried "content": null explicitly.
type InboundMessage struct {
	Sender            string
	Content           string
	ContentNull       bool
	HasContent        bool
	FileData          string
	FileName          string
	ConsultationID    int64
	HasConsultationID bool
}

func (m InboundMessage) HasFile() bool {
	return m.FileData != ""
}

// IsChat reports whether the body is something a timeline can show: text,
// a file or an explicit null content. Room assignments are not.
func (m InboundMessage) IsChat() bool {
	return m.HasContent || m.ContentNull || m.HasFile()
}

// DecodeMessage reads the JSON body of a MESSAGE frame.
func DecodeMessage(frame Frame) (InboundMessage, error) {
	if frame.Command != CommandMessage {
		return InboundMessage{}, fmt.Errorf("%w: expected MESSAGE, got %q", errors.ErrFrameDecode, frame.Command)
	}
	if !gjson.ValidBytes(frame.Body) {
		return InboundMessage{}, fmt.Errorf("%w: body is not valid JSON", errors.ErrFrameDecode)
	}
	body := gjson.ParseBytes(frame.Body)
	if !body.IsObject() {
		return InboundMessage{}, fmt.Errorf("%w: body is not a JSON object", errors.ErrFrameDecode)
	}

	msg := InboundMessage{Sender: senderOf(body)}

	if id := body.Get("consultationId"); id.Exists() && id.Type == gjson.Number {
		msg.ConsultationID = id.Int()
		msg.HasConsultationID = true
	}
	if name := body.Get("fileName"); name.Type == gjson.String {
		msg.FileName = name.String()
	}
	if data := body.Get("fileData"); data.Type == gjson.String {
		msg.FileData = data.String()
	}

	content := body.Get("content")
	switch {
	case content.Type == gjson.Null && content.Exists():
		msg.ContentNull = true
	case content.Type == gjson.String:
		msg.Content = content.String()
		msg.HasContent = true
	case !content.Exists():
		if !msg.HasConsultationID && !msg.HasFile() {
			return InboundMessage{}, fmt.Errorf("%w: missing content field", errors.ErrFrameDecode)
		}
	default:
		return InboundMessage{}, fmt.Errorf("%w: content must be a string or null", errors.ErrFrameDecode)
	}
	return msg, nil
}

func senderOf(body gjson.Result) string {
	for _, key := range []string{"senderFullName", "sender"} {
		if v := body.Get(key); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return UnknownSender
}
