// Package bootstrap obtains the consultation id a chat panel binds to.
// Exactly one strategy runs per panel.
package bootstrap

import (
	"consult-chat/contract"
	"consult-chat/domain"
	"consult-chat/errors"
	"context"
	"fmt"
	"log/slog"
)

// Static returns an id known up front, typically a consultation assigned
// to a staff member.
type Static domain.ConsultationID

func (s Static) Consultation(_ context.Context) (domain.ConsultationID, error) {
	if s <= 0 {
		return 0, fmt.Errorf("%w: consultation id must be positive", errors.ErrInvalidRequest)
	}
	return domain.ConsultationID(s), nil
}

// RegistryBootstrap is the customer-initiated flow: the consultation is
// created through the registry and its id bound to the chat panel.
type RegistryBootstrap struct {
	log      *slog.Logger
	registry contract.ConsultationRegistry
	request  domain.ConsultationRequest
}

func NewRegistryBootstrap(
	log *slog.Logger,
	registry contract.ConsultationRegistry,
	request domain.ConsultationRequest,
) *RegistryBootstrap {
	return &RegistryBootstrap{log: log, registry: registry, request: request}
}

func (b *RegistryBootstrap) Consultation(ctx context.Context) (domain.ConsultationID, error) {
	id, err := b.registry.Create(ctx, b.request)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: registry returned id %d", errors.ErrRegistry, id)
	}
	b.log.Debug("Consultation bootstrapped from registry", "consultation", id.String())
	return id, nil
}
