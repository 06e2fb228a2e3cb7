package model

const sharedCollection = "notes"

// Scope selects which note collection an operation addresses. The zero
// Scope is the shared, single-tenant collection.
type Scope struct {
	UserID string
}

// Shared reports whether the scope is the anonymous shared collection.
func (s Scope) Shared() bool {
	return s.UserID == ""
}

// Collection returns the collection name backing the scope.
func (s Scope) Collection() string {
	if s.Shared() {
		return sharedCollection
	}
	return sharedCollection + "_" + s.UserID
}
