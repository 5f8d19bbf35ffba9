package bootstrap

import (
	"consult-chat/contract"
	"consult-chat/domain"
	"consult-chat/errors"
	"consult-chat/stomp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

const defaultRoomTimeout = 15 * time.Second

// RoomBootstrap asks the broker to create a room and waits for the id it
// announces on the room creation topic. It uses its own short-lived
// connection, closed before the chat session starts.
//
// Deprecated: the registry flow replaces it. Kept for brokers that still
// assign rooms over the wire.
type RoomBootstrap struct {
	log         *slog.Logger
	dialer      contract.Dialer
	credentials contract.CredentialSource
	codec       *stomp.Codec
	request     domain.ConsultationRequest
	timeout     time.Duration
}

func NewRoomBootstrap(
	log *slog.Logger,
	dialer contract.Dialer,
	credentials contract.CredentialSource,
	request domain.ConsultationRequest,
) *RoomBootstrap {
	return &RoomBootstrap{
		log:         log,
		dialer:      dialer,
		credentials: credentials,
		codec:       stomp.NewCodec(""),
		request:     request,
		timeout:     defaultRoomTimeout,
	}
}

func (b *RoomBootstrap) WithTimeout(timeout time.Duration) *RoomBootstrap {
	b.timeout = timeout
	return b
}

func (b *RoomBootstrap) Consultation(ctx context.Context) (domain.ConsultationID, error) {
	token, err := b.credentials.Credential(ctx)
	if err != nil {
		return 0, err
	}
	body, err := b.requestBody()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	conn, err := b.dialer.Dial(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = conn.Close() }()

	frames := make(chan stomp.Frame)
	readErr := make(chan error, 1)
	go b.read(ctx, conn, frames, readErr)

	if err := conn.Write(b.codec.EncodeConnect(token)); err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}

	connected := false
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return 0, fmt.Errorf("%w after %s", errors.ErrBootstrapTimeout, b.timeout)
			}
			return 0, ctx.Err()
		case err := <-readErr:
			return 0, fmt.Errorf("%w: %v", errors.ErrTransport, err)
		case frame := <-frames:
			switch frame.Command {
			case stomp.CommandError:
				return 0, fmt.Errorf("%w: %s", errors.ErrServerRejected, frame.Headers.Value(stomp.HeaderMessage))
			case stomp.CommandConnected:
				if connected {
					continue
				}
				connected = true
				subscribe, _ := b.codec.EncodeSubscribe(stomp.RoomCreationTopic)
				if err := conn.Write(subscribe); err != nil {
					return 0, fmt.Errorf("%w: %v", errors.ErrTransport, err)
				}
				if err := conn.Write(b.codec.EncodeRaw(stomp.CreateRoomDestination, body)); err != nil {
					return 0, fmt.Errorf("%w: %v", errors.ErrTransport, err)
				}
			case stomp.CommandMessage:
				in, err := stomp.DecodeMessage(frame)
				if err != nil || !in.HasConsultationID || in.ConsultationID <= 0 {
					b.log.Debug("Ignoring room topic message", "error", err)
					continue
				}
				_ = conn.Write(b.codec.EncodeDisconnect(uuid.NewString()))
				id := domain.ConsultationID(in.ConsultationID)
				b.log.Info("Room assigned", "consultation", id.String())
				return id, nil
			}
		}
	}
}

func (b *RoomBootstrap) read(ctx context.Context, conn contract.Conn, frames chan<- stomp.Frame, readErr chan<- error) {
	for {
		raw, err := conn.Read()
		if err != nil {
			readErr <- err
			return
		}
		frame, err := b.codec.Decode(raw)
		if err != nil {
			b.log.Warn("Discarding malformed frame", "error", err)
			continue
		}
		if frame.IsHeartbeat() {
			continue
		}
		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// requestBody is built field by field so branchId is left out when unset.
func (b *RoomBootstrap) requestBody() ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "requestType", b.request.RequestType)
	if err == nil {
		body, err = sjson.SetBytes(body, "message", b.request.Message)
	}
	if err == nil && b.request.BranchID != nil {
		body, err = sjson.SetBytes(body, "branchId", *b.request.BranchID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	return body, nil
}
