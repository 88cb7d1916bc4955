package domain

import "strings"

// Identity is the storage-safe key derived from a raw user address.
// It is the sole key for locating a user's record subtree.
type Identity string

var identityReplacer = strings.NewReplacer(".", "-", "@", "-")

// Normalize maps a raw address to its storage-safe form by replacing
// the reserved separator characters "." and "@" with "-". The mapping
// is deterministic and total; two addresses that normalize identically
// are treated as the same party.
func Normalize(address string) Identity {
	return Identity(identityReplacer.Replace(address))
}

func (i Identity) String() string {
	return string(i)
}
