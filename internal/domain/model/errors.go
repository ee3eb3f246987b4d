package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across ports and adapters.
var (
	// ErrNotFound covers unknown platforms, account types, credentials,
	// profiles, and assignments. Caller error, never retried.
	ErrNotFound = errors.New("not found")

	// ErrProfileAlreadyUsed is returned by a claim on a profile whose used
	// flag is already set. The allocation transaction should make this
	// unreachable; it defends against double-claim races all the same.
	ErrProfileAlreadyUsed = errors.New("profile already used")

	// ErrUnavailable is surfaced after transient storage contention has
	// exhausted its retry budget.
	ErrUnavailable = errors.New("storage temporarily unavailable")
)

// PoolExhaustedError reports that no credential of the requested platform
// and account type has a free, non-expired profile slot. Expected outcome,
// not retried.
type PoolExhaustedError struct {
	Platform    Platform
	AccountType AccountType
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("pool exhausted: no free %s/%s profile", e.Platform, e.AccountType)
}

// DuplicateCustomerError reports that the customer identifier already holds
// a live assignment. Business rejection, not a transient failure.
type DuplicateCustomerError struct {
	CustomerIdentifier string
}

func (e *DuplicateCustomerError) Error() string {
	return fmt.Sprintf("customer %q already has a live assignment", e.CustomerIdentifier)
}

// ConfigError reports a missing static registration, such as an entity type
// with no ID prefix. Fatal, surfaced immediately, never retried.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Detail
}
