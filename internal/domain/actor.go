package domain

// Actor is the opaque identity of the current user, supplied by an external
// authentication collaborator (an upstream gateway in production, fixtures in
// tests). The core never resolves credentials itself — every service
// operation takes the actor explicitly rather than reading ambient state.
type Actor struct {
	// ID is the stable, opaque identifier the auth provider assigns.
	ID string

	// DisplayName is a human-readable label, denormalized onto records the
	// actor creates so history survives account changes.
	DisplayName string

	// Admin marks the privileged role required for administrative actions
	// such as deleting a trip. Ordinary ledger operations ignore it.
	Admin bool
}

// Known reports whether the actor carries a usable identity.
func (a Actor) Known() bool { return a.ID != "" }
