package model

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Credential is one purchased account, subdivided into a fixed pool of
// profile slots. The profile slice length is set at creation from the
// account type (or an explicit import override) and never resized.
type Credential struct {
	ID          string
	Platform    Platform
	AccountType AccountType
	// Secret is the opaque login material revealed to a customer on
	// allocation. The engine stores and forwards it, never interprets it.
	Secret    string
	Profiles  []Profile
	Status    CredentialStatus
	CreatedAt time.Time
	// ExpiresAt is the hard cutoff: after this instant the credential is
	// invisible to allocation even if free slots remain.
	ExpiresAt time.Time
}

// Profile is one sub-slot of a credential, assignable to exactly one
// customer. Used flips to true exactly once; the allocation path never
// resets it.
type Profile struct {
	Name string
	Pin  string
	Used bool
}

// NewProfilePool builds a fresh pool of count unclaimed profiles with
// stable names and random 4-digit PINs.
func NewProfilePool(count int) []Profile {
	profiles := make([]Profile, count)
	for i := range profiles {
		profiles[i] = Profile{
			Name: fmt.Sprintf("Profile-%d", i+1),
			Pin:  fmt.Sprintf("%04d", rand.IntN(10000)),
		}
	}
	return profiles
}

// FreeSlots returns the unclaimed profiles in slot order.
func (c *Credential) FreeSlots() []Profile {
	var free []Profile
	for _, p := range c.Profiles {
		if !p.Used {
			free = append(free, p)
		}
	}
	return free
}

// Claim marks the named profile as used. Returns ErrNotFound for an
// unknown name and ErrProfileAlreadyUsed if the slot is already claimed.
func (c *Credential) Claim(profileName string) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name != profileName {
			continue
		}
		if c.Profiles[i].Used {
			return fmt.Errorf("claim %s on %s: %w", profileName, c.ID, ErrProfileAlreadyUsed)
		}
		c.Profiles[i].Used = true
		return nil
	}
	return fmt.Errorf("claim %s on %s: %w", profileName, c.ID, ErrNotFound)
}

// DeriveStatus recomputes availability from the pool: AVAILABLE iff at
// least one profile is unclaimed.
func (c *Credential) DeriveStatus() CredentialStatus {
	for _, p := range c.Profiles {
		if !p.Used {
			return StatusAvailable
		}
	}
	return StatusUnavailable
}

// Expired reports whether the credential's hard cutoff has passed at now.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
