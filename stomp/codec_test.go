package stomp

import (
	"consult-chat/errors"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodec_EncodeConnect(t *testing.T) {
	req := require.New(t)
	codec := NewCodec("pharmacy.local")

	frame, err := Unmarshal(codec.EncodeConnect("token-123"))

	req.NoError(err)
	req.Equal(CommandConnect, frame.Command)
	req.Equal("Bearer token-123", frame.Headers.Value(HeaderAuthorization))
	req.Equal("1.2", frame.Headers.Value(HeaderAcceptVersion))
	req.Equal("pharmacy.local", frame.Headers.Value(HeaderHost))
	req.Empty(frame.Body)
}

func TestCodec_EncodeSubscribe_UniqueIDs(t *testing.T) {
	req := require.New(t)
	codec := NewCodec("")

	raw1, id1 := codec.EncodeSubscribe(ConsultationTopic(42))
	_, id2 := codec.EncodeSubscribe(ConsultationTopic(42))

	req.NotEqual(id1, id2)
	frame, err := Unmarshal(raw1)
	req.NoError(err)
	req.Equal(CommandSubscribe, frame.Command)
	req.Equal("/topic/consultation/42", frame.Headers.Value(HeaderDestination))
	req.Equal(id1, frame.Headers.Value(HeaderID))
}

func TestCodec_EncodeSend(t *testing.T) {
	t.Run("should publish text content only", func(t *testing.T) {
		req := require.New(t)
		raw, err := NewCodec("").EncodeSend(SendDestination(42), Payload{Content: "Hello"})
		req.NoError(err)

		frame, err := Unmarshal(raw)
		req.NoError(err)
		req.Equal(CommandSend, frame.Command)
		req.Equal("/app/chat.sendMessage/42", frame.Headers.Value(HeaderDestination))
		req.Equal("application/json", frame.Headers.Value(HeaderContentType))
		req.JSONEq(`{"content":"Hello"}`, string(frame.Body))
	})

	t.Run("should carry file data and name", func(t *testing.T) {
		req := require.New(t)
		raw, err := NewCodec("").EncodeSend(SendDestination(7), Payload{
			Content:  "scan.png",
			FileData: "data:image/png;base64,AAAA",
			FileName: "scan.png",
		})
		req.NoError(err)

		frame, err := Unmarshal(raw)
		req.NoError(err)
		var body map[string]string
		req.NoError(json.Unmarshal(frame.Body, &body))
		req.Equal("data:image/png;base64,AAAA", body["fileData"])
		req.Equal("scan.png", body["fileName"])
	})
}

func TestCodec_EncodeDisconnect(t *testing.T) {
	req := require.New(t)
	frame, err := Unmarshal(NewCodec("").EncodeDisconnect("bye-1"))
	req.NoError(err)
	req.Equal(CommandDisconnect, frame.Command)
	req.Equal("bye-1", frame.Headers.Value(HeaderReceipt))
}

func TestUnmarshal(t *testing.T) {
	t.Run("should treat bare EOLs as heartbeat", func(t *testing.T) {
		req := require.New(t)
		frame, err := Unmarshal([]byte("\n"))
		req.NoError(err)
		req.True(frame.IsHeartbeat())
	})

	t.Run("should read body up to NUL without content-length", func(t *testing.T) {
		req := require.New(t)
		frame, err := Unmarshal([]byte("MESSAGE\ndestination:/topic/consultation/1\n\n{\"content\":\"hi\"}\x00\n"))
		req.NoError(err)
		req.Equal(CommandMessage, frame.Command)
		req.Equal(`{"content":"hi"}`, string(frame.Body))
	})

	t.Run("should accept CRLF line endings", func(t *testing.T) {
		req := require.New(t)
		frame, err := Unmarshal([]byte("CONNECTED\r\nversion:1.2\r\n\r\n\x00"))
		req.NoError(err)
		req.Equal(CommandConnected, frame.Command)
		req.Equal("1.2", frame.Headers.Value(HeaderVersion))
	})

	t.Run("should unescape header values", func(t *testing.T) {
		req := require.New(t)
		original := Frame{
			Command: CommandError,
			Headers: Headers{{Key: HeaderMessage, Value: "bad: token\nexpired"}},
		}
		frame, err := Unmarshal(original.Marshal())
		req.NoError(err)
		req.Equal("bad: token\nexpired", frame.Headers.Value(HeaderMessage))
	})

	t.Run("should keep the first repeated header", func(t *testing.T) {
		req := require.New(t)
		frame, err := Unmarshal([]byte("MESSAGE\nfoo:first\nfoo:second\n\n\x00"))
		req.NoError(err)
		req.Equal("first", frame.Headers.Value("foo"))
	})

	tests := []struct {
		name string
		raw  string
	}{
		{"unknown command", "HELLO\n\n\x00"},
		{"missing header terminator", "MESSAGE\ndestination:/x"},
		{"missing NUL", "MESSAGE\n\nbody"},
		{"malformed header", "MESSAGE\nnocolon\n\n\x00"},
		{"bad escape", "MESSAGE\nkey:va\\tlue\n\n\x00"},
		{"content-length too long", "MESSAGE\ncontent-length:10\n\nabc\x00"},
		{"content-length not a number", "MESSAGE\ncontent-length:x\n\nabc\x00"},
		{"content-length at the int limit", "MESSAGE\ndestination:/topic/consultation/1\ncontent-length:9223372036854775807\n\n{}\x00"},
		{"content-length equal to the body", "MESSAGE\ncontent-length:3\n\nabc"},
	}
	for _, tt := range tests {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				_, err := Unmarshal([]byte(tt.raw))
				require.ErrorIs(t, err, errors.ErrFrameDecode)
			})
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	message := func(body string) Frame {
		return Frame{Command: CommandMessage, Body: []byte(body)}
	}

	t.Run("should decode sender and content", func(t *testing.T) {
		req := require.New(t)
		msg, err := DecodeMessage(message(`{"content":"Take it twice a day","senderFullName":"Dr. Smith"}`))
		req.NoError(err)
		req.Equal("Dr. Smith", msg.Sender)
		req.Equal("Take it twice a day", msg.Content)
		req.False(msg.ContentNull)
	})

	t.Run("should keep explicit null content as a distinct condition", func(t *testing.T) {
		req := require.New(t)
		msg, err := DecodeMessage(message(`{"content":null,"senderFullName":"Staff"}`))
		req.NoError(err)
		req.True(msg.ContentNull)
		req.Equal("Staff", msg.Sender)
	})

	t.Run("should fall back to sender then unknown", func(t *testing.T) {
		req := require.New(t)
		msg, err := DecodeMessage(message(`{"content":"x","sender":"bob@example.com"}`))
		req.NoError(err)
		req.Equal("bob@example.com", msg.Sender)

		msg, err = DecodeMessage(message(`{"content":"x"}`))
		req.NoError(err)
		req.Equal(UnknownSender, msg.Sender)
	})

	t.Run("should decode file fields", func(t *testing.T) {
		req := require.New(t)
		msg, err := DecodeMessage(message(`{"content":"scan.png","fileData":"AAAA","fileName":"scan.png","senderFullName":"A"}`))
		req.NoError(err)
		req.True(msg.HasFile())
		req.Equal("scan.png", msg.FileName)
	})

	t.Run("should decode an assigned consultation id", func(t *testing.T) {
		req := require.New(t)
		msg, err := DecodeMessage(message(`{"consultationId":42}`))
		req.NoError(err)
		req.True(msg.HasConsultationID)
		req.EqualValues(42, msg.ConsultationID)
		req.False(msg.IsChat())
	})

	t.Run("should tell chat bodies apart", func(t *testing.T) {
		req := require.New(t)
		for _, body := range []string{`{"content":""}`, `{"content":null}`, `{"fileData":"AAAA","fileName":"a.bin"}`} {
			msg, err := DecodeMessage(message(body))
			req.NoError(err)
			req.True(msg.IsChat(), body)
		}
	})

	bad := []struct {
		name  string
		frame Frame
	}{
		{"non JSON body", message(`not json`)},
		{"JSON array", message(`["content"]`)},
		{"missing content", message(`{"senderFullName":"A"}`)},
		{"numeric content", message(`{"content":12}`)},
		{"wrong command", Frame{Command: CommandReceipt}},
	}
	for _, tt := range bad {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			_, err := DecodeMessage(tt.frame)
			require.ErrorIs(t, err, errors.ErrFrameDecode)
		})
	}
}
