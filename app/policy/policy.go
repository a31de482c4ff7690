// Package policy decides whether a verified identity may act on a resource.
package policy

// Identity is the result of session verification. A zero Identity is
// an anonymous request.
type Identity struct {
	IsAuthenticated bool
	UserID          string
	Email           string
	IsAdmin         bool
}

// Authorize allows an action on a resource owned by ownerID when the
// identity is an admin or the owner themselves.
func Authorize(identity Identity, ownerID string) bool {
	if !identity.IsAuthenticated {
		return false
	}
	if identity.IsAdmin {
		return true
	}
	return identity.UserID == ownerID
}

// CanDisable gates the admin disable-account operation. Disabling your
// own account is refused unless allowSelf is configured.
func CanDisable(identity Identity, targetID string, allowSelf bool) bool {
	if !identity.IsAuthenticated || !identity.IsAdmin {
		return false
	}
	if identity.UserID == targetID && !allowSelf {
		return false
	}
	return true
}
