package domain

import "fmt"

type QueryStatus string

const (
	StatusPending    QueryStatus = "Pending"
	StatusInProgress QueryStatus = "In Progress"
	StatusResolved   QueryStatus = "Resolved"
)

// QueryStatuses lists every status in display order.
var QueryStatuses = []QueryStatus{StatusPending, StatusInProgress, StatusResolved}

func (s QueryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

func (s QueryStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalid, string(s))
	}
	return []byte(s), nil
}

func (s *QueryStatus) UnmarshalText(b []byte) error {
	v := QueryStatus(b)
	if !v.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalid, string(b))
	}
	*s = v
	return nil
}

type Permission string

const (
	PermRead    Permission = "read"
	PermWrite   Permission = "write"
	PermApprove Permission = "approve"
	PermAdmin   Permission = "admin"
)

var Permissions = []Permission{PermRead, PermWrite, PermApprove, PermAdmin}

func (p Permission) Valid() bool {
	switch p {
	case PermRead, PermWrite, PermApprove, PermAdmin:
		return true
	}
	return false
}

func (p Permission) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: permission %q", ErrInvalid, string(p))
	}
	return []byte(p), nil
}

func (p *Permission) UnmarshalText(b []byte) error {
	v := Permission(b)
	if !v.Valid() {
		return fmt.Errorf("%w: permission %q", ErrInvalid, string(b))
	}
	*p = v
	return nil
}

// Payment types offered by the rent form.
const (
	PaymentBankTransfer = "Bank Transfer"
	PaymentCard         = "Card"
	PaymentCash         = "Cash"
)
