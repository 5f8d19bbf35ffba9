// Package domain contains core concepts of the consultation chat.
// This file defines the Consultation identity and participant roles.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"fmt"
	"strings"
)

// ConsultationID is assigned by the consultation registry and never changes
// for the lifetime of a session.
type ConsultationID int64

func (id ConsultationID) String() string {
	return fmt.Sprintf("%d", int64(id))
}

type Role int

const (
	RoleCustomer Role = iota
	RoleStaff
)

func (r Role) String() string {
	if r == RoleStaff {
		return "STAFF"
	}
	return "CUSTOMER"
}

// ParseRole accepts "staff"/"customer" in any case. Anything else is an error.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STAFF":
		return RoleStaff, nil
	case "CUSTOMER", "":
		return RoleCustomer, nil
	default:
		return RoleCustomer, fmt.Errorf("unknown role %q", s)
	}
}

// Consultation identifies one chat context.
// Credential may be empty for a customer who has not authenticated yet.
type Consultation struct {
	ID         ConsultationID
	Role       Role
	Credential string
}

func (c Consultation) Authenticated() bool {
	return strings.TrimSpace(c.Credential) != ""
}

// ConsultationRequest is the body sent to the registry when a customer asks
// for a consultation.
type ConsultationRequest struct {
	RequestType string `json:"requestType" validate:"required,max=64"`
	Message     string `json:"message" validate:"required,max=2000"`
	BranchID    *int64 `json:"branchId,omitempty" validate:"omitempty,gt=0"`
}
