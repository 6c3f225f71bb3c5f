// Package scope implements the operating-context core: every authenticated
// request acts either as an individual practitioner or inside one
// organization, and every partitioned row is owned by exactly one of the
// two. The resolver decides and persists the active context; the guard
// gates actions on the permission bundle that context yields.
package scope

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind distinguishes the two operating contexts.
type Kind string

const (
	KindIndividual   Kind = "individual"
	KindOrganization Kind = "organization"
)

// Owner kinds as stored in the owner_type column.
const (
	OwnerUser         = "user"
	OwnerOrganization = "org"
)

// Scope is the active operating context of a user session.
type Scope struct {
	Kind   Kind      `json:"kind"`
	UserID uuid.UUID `json:"user_id"`
	OrgID  uuid.UUID `json:"org_id,omitempty"`
}

// Individual returns the individual scope for a user.
func Individual(userID uuid.UUID) Scope {
	return Scope{Kind: KindIndividual, UserID: userID}
}

// Organization returns the scope of a user acting inside orgID.
func Organization(userID, orgID uuid.UUID) Scope {
	return Scope{Kind: KindOrganization, UserID: userID, OrgID: orgID}
}

// Owner is the polymorphic owner reference stamped on every partitioned
// row: a user for individual data, an organization for shared data. Rows
// never carry both.
type Owner struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

// Owner returns the data partition this scope addresses.
func (s Scope) Owner() Owner {
	if s.Kind == KindOrganization {
		return Owner{Type: OwnerOrganization, ID: s.OrgID}
	}
	return Owner{Type: OwnerUser, ID: s.UserID}
}

// Equal reports whether two scopes address the same context.
func (s Scope) Equal(other Scope) bool {
	if s.Kind != other.Kind {
		return false
	}
	if s.Kind == KindOrganization {
		return s.OrgID == other.OrgID
	}
	return true
}

// Encode serializes a scope for the session store.
func (s Scope) Encode() string {
	if s.Kind == KindOrganization {
		return "org:" + s.OrgID.String()
	}
	return "individual"
}

// Decode parses a stored scope value for the given user. Unknown or
// malformed values resolve to the individual scope rather than failing the
// request: losing a stored preference must never lock a user out.
func Decode(userID uuid.UUID, value string) Scope {
	if strings.HasPrefix(value, "org:") {
		orgID, err := uuid.Parse(strings.TrimPrefix(value, "org:"))
		if err == nil {
			return Organization(userID, orgID)
		}
	}
	return Individual(userID)
}

func (s Scope) String() string {
	if s.Kind == KindOrganization {
		return fmt.Sprintf("organization %s", s.OrgID)
	}
	return "individual"
}
