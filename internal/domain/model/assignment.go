package model

import "time"

// Assignment is a ledger entry binding a customer to one profile of one
// credential. Created once by the allocation transaction (or manually by
// an operator), mutable only for administrative correction, never
// auto-deleted by the engine.
type Assignment struct {
	ID string
	// CustomerIdentifier is the operator-supplied key (phone number or
	// name). Unique across all non-expired assignments.
	CustomerIdentifier string
	CredentialID       string
	ProfileName        string
	Platform           Platform
	AccountType        AccountType
	// OperatorID is "system" when the request carried no operator.
	OperatorID string
	CreatedAt  time.Time
	// ExpiresAt is copied from the credential at allocation time, or set
	// explicitly for manual admin assignments.
	ExpiresAt time.Time
}

// Live reports whether the assignment still blocks its customer
// identifier from being assigned again.
func (a *Assignment) Live(now time.Time) bool {
	return a.ExpiresAt.After(now)
}

// AssignmentUpdate carries an administrative correction. Nil fields are
// left unchanged.
type AssignmentUpdate struct {
	CustomerIdentifier *string
	Platform           *Platform
	ExpiresAt          *time.Time
}

// Allocation is the full result handed back to the operator: the ledger
// entry plus the revealed credential material.
type Allocation struct {
	Assignment  Assignment
	Secret      string
	ProfileName string
	Pin         string
}

// AllocationRequest is the input to the allocation transaction.
type AllocationRequest struct {
	Platform           Platform
	AccountType        AccountType
	CustomerIdentifier string
	OperatorID         string
}

// PoolAvailability is one row of the availability summary: the number of
// free, non-expired profile slots for a (platform, account type) pair.
type PoolAvailability struct {
	Platform    Platform
	AccountType AccountType
	FreeSlots   int
	Credentials int
}
