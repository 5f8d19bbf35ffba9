//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"consult-chat/domain"
	"consult-chat/domain/event"
	"consult-chat/projection"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is one live full-duplex connection to the broker endpoint.
// Write may be called concurrently with Read, but not with itself.
type Conn interface {
	Write(frame []byte) error
	Read() ([]byte, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// CredentialSource reads the bearer token of the current session.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// ConsultationRegistry creates consultation records over REST.
type ConsultationRegistry interface {
	Create(ctx context.Context, request domain.ConsultationRequest) (domain.ConsultationID, error)
}

// Bootstrapper obtains the consultation id a chat panel binds to.
type Bootstrapper interface {
	Consultation(ctx context.Context) (domain.ConsultationID, error)
}

type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Tests swap it for a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// ChatSession is what the terminal sees of a running session.
type ChatSession interface {
	Connect(ctx context.Context) error
	Consultation() domain.Consultation
	State() domain.ConnectionState
	CanSend() bool
	Send(text string) error
	SendFile(ctx context.Context, path string) error
	Timeline() *projection.Timeline
	Events() <-chan event.SessionEvent
	Close() error
}

// EventSink consumes session events. Consume must not block.
type EventSink interface {
	Consume(evt event.SessionEvent)
}
