package domain

import "regexp"

// AnonymousPrefix starts every anonymous identity key.
const AnonymousPrefix = "anon:"

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9._@:-]{1,128}$`)

// Identity is the partition key for quota and rate state, plus the caller's tier.
type Identity struct {
	Key       string
	Tier      PlanTier
	Anonymous bool
}

// ValidIdentityKey reports whether key is usable as a partition key.
func ValidIdentityKey(key string) bool {
	return identityPattern.MatchString(key)
}

// NewAnonymous returns an anonymous free-tier identity for a client key.
func NewAnonymous(clientKey string) Identity {
	return Identity{
		Key:       AnonymousPrefix + clientKey,
		Tier:      PlanFree,
		Anonymous: true,
	}
}
