package domain

import "errors"

// Tenancy errors
var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantRequired     = errors.New("no tenant resolved for request")
	ErrTenantForbidden    = errors.New("caller is not a member of the requested tenant")
	ErrDomainNotFound     = errors.New("domain not found")
	ErrHostnameTaken      = errors.New("hostname already mapped to a tenant")
	ErrSlugTaken          = errors.New("tenant slug already in use")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrInsufficientRole   = errors.New("caller role is insufficient for this operation")
)

// Invitation errors
var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationInvalid  = errors.New("invitation is expired, revoked, exhausted or already used")
)

// Document numbering errors
var (
	ErrSequenceExhausted = errors.New("sequence allocation retry budget exhausted")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUnknownDocType    = errors.New("unknown document type")
)
