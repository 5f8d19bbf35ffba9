package stomp

import (
	"consult-chat/domain"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
)

const (
	// RoomCreationTopic receives consultation ids assigned by the server.
	RoomCreationTopic = "/topic/consultation/rooms"
	// CreateRoomDestination accepts create-room requests.
	CreateRoomDestination = "/app/chat.createRoom"

	contentTypeJSON = "application/json"
	protocolVersion = "1.2"
)

func ConsultationTopic(id domain.ConsultationID) string {
	return fmt.Sprintf("/topic/consultation/%d", int64(id))
}

func SendDestination(id domain.ConsultationID) string {
	return fmt.Sprintf("/app/chat.sendMessage/%d", int64(id))
}

// Payload is the JSON body of a SEND frame.
type Payload struct {
	Content  string `json:"content"`
	FileData string `json:"fileData,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// Codec turns logical operations into frames.
// Subscription identifiers are unique for the lifetime of the codec.
type Codec struct {
	host string
	subs atomic.Uint64
}

func NewCodec(host string) *Codec {
	return &Codec{host: host}
}

// EncodeConnect carries the bearer credential as the Authorization header.
func (c *Codec) EncodeConnect(credential string) []byte {
	headers := Headers{
		{Key: HeaderAcceptVersion, Value: protocolVersion},
		{Key: HeaderHeartBeat, Value: "0,0"},
	}
	if c.host != "" {
		headers = append(headers, Header{Key: HeaderHost, Value: c.host})
	}
	headers = append(headers, Header{Key: HeaderAuthorization, Value: "Bearer " + credential})
	return Frame{Command: CommandConnect, Headers: headers}.Marshal()
}

// EncodeSubscribe returns the frame and the subscription id it carries.
func (c *Codec) EncodeSubscribe(destination string) ([]byte, string) {
	id := "sub-" + strconv.FormatUint(c.subs.Add(1), 10)
	return Frame{
		Command: CommandSubscribe,
		Headers: Headers{
			{Key: HeaderID, Value: id},
			{Key: HeaderDestination, Value: destination},
		},
	}.Marshal(), id
}

func (c *Codec) EncodeSend(destination string, payload Payload) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.encodeJSON(destination, body), nil
}

// EncodeRaw publishes an already serialised JSON body.
func (c *Codec) EncodeRaw(destination string, body []byte) []byte {
	return c.encodeJSON(destination, body)
}

func (c *Codec) encodeJSON(destination string, body []byte) []byte {
	return Frame{
		Command: CommandSend,
		Headers: Headers{
			{Key: HeaderDestination, Value: destination},
			{Key: HeaderContentType, Value: contentTypeJSON},
			{Key: HeaderContentLength, Value: strconv.Itoa(len(body))},
		},
		Body: body,
	}.Marshal()
}

func (c *Codec) EncodeDisconnect(receipt string) []byte {
	var headers Headers
	if receipt != "" {
		headers = Headers{{Key: HeaderReceipt, Value: receipt}}
	}
	return Frame{Command: CommandDisconnect, Headers: headers}.Marshal()
}

func (c *Codec) Decode(raw []byte) (Frame, error) {
	return Unmarshal(raw)
}
