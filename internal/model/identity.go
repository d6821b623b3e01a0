package model

import (
	"strconv"
	"strings"
)

// Identity is the opaque caller token threaded through every
// state-changing registry call.  The transport layer decides how it is
// derived; the registry only compares identities for equality.
type Identity string

// NoRenter is the empty identity stored on available spots.
const NoRenter Identity = ""

const userPrefix = "user:"

// UserIdentity returns the identity of an authenticated user account.
func UserIdentity(userID uint64) Identity {
	return Identity(userPrefix + strconv.FormatUint(userID, 10))
}

// IsEmpty reports whether i is the empty identity.
func (i Identity) IsEmpty() bool { return strings.TrimSpace(string(i)) == "" }

// UserID extracts the numeric user id from a user identity.
func (i Identity) UserID() (uint64, bool) {
	s, ok := strings.CutPrefix(string(i), userPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

func (i Identity) String() string { return string(i) }
