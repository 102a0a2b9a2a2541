package accesscontrol

import "github.com/google/uuid"

// Actor is the authenticated caller as the decision table sees it. Handlers
// build it from the request identity and pass it down to services.
type Actor struct {
	ID   uuid.UUID
	Role Role
}
