package model

import "fmt"

// Platform identifies the streaming service a credential belongs to.
// The set is closed: unknown platform strings are rejected at the API
// boundary, never dispatched dynamically.
type Platform string

const (
	PlatformNetflix Platform = "netflix"
	PlatformDisney  Platform = "disney"
	PlatformHBO     Platform = "hbo"
	PlatformPrime   Platform = "prime"
	PlatformSpotify Platform = "spotify"
	PlatformYouTube Platform = "youtube"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{
	PlatformNetflix,
	PlatformDisney,
	PlatformHBO,
	PlatformPrime,
	PlatformSpotify,
	PlatformYouTube,
}

// ParsePlatform validates a platform string from an external caller.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms {
		if Platform(s) == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q: %w", s, ErrNotFound)
}

// AccountType determines how many profile slots a credential carries.
type AccountType string

const (
	AccountTypePrivate AccountType = "private"
	AccountTypeSharing AccountType = "sharing"
	AccountTypeVIP     AccountType = "vip"
)

// slotCounts is the fixed pool size per account type. Set once at
// credential creation; never resized afterwards.
var slotCounts = map[AccountType]int{
	AccountTypePrivate: 8,
	AccountTypeSharing: 20,
	AccountTypeVIP:     6,
}

// SlotCount returns the fixed profile-pool size for the account type.
func (t AccountType) SlotCount() int {
	return slotCounts[t]
}

// ParseAccountType validates an account type string from an external caller.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case AccountTypePrivate, AccountTypeSharing, AccountTypeVIP:
		return AccountType(s), nil
	}
	return "", fmt.Errorf("unknown account type %q: %w", s, ErrNotFound)
}

// CredentialStatus is the derived availability of a credential. It is a
// pure function of the profile pool, cached in storage as an index column
// and recomputed on every claim.
type CredentialStatus string

const (
	StatusAvailable   CredentialStatus = "available"
	StatusUnavailable CredentialStatus = "unavailable"
)

// ActivityAction labels an audit-trail entry.
type ActivityAction string

const (
	ActionAssign ActivityAction = "ASSIGN"
	ActionImport ActivityAction = "IMPORT"
	ActionEdit   ActivityAction = "EDIT"
	ActionDelete ActivityAction = "DELETE"
)

// EntityType keys the durable ID counters.
type EntityType string

const (
	EntityAssignment EntityType = "assignment"
	EntityCredential EntityType = "credential"
)
