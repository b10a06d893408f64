package auth

import "github.com/elibrary/elibrary-server/internal/domain"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   domain.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// ResourceKind names what an operation touches.
type ResourceKind int

const (
	ResourceCatalog ResourceKind = iota
	ResourceLoan
	ResourceUserRecords
	ResourceUserDirectory
	ResourceNotifier
)

// Action is what the actor wants to do with the resource.
type Action int

const (
	ActionRead Action = iota
	ActionWrite
	ActionBorrow
)

// Resource identifies the target of an access check. OwnerID is the borrower for
// loans and the subject user for user records.
type Resource struct {
	Kind    ResourceKind
	Action  Action
	OwnerID string
}

// CatalogRead and friends build the resources services check against.
func CatalogRead() Resource  { return Resource{Kind: ResourceCatalog, Action: ActionRead} }
func CatalogWrite() Resource { return Resource{Kind: ResourceCatalog, Action: ActionWrite} }
func CatalogBorrow() Resource {
	return Resource{Kind: ResourceCatalog, Action: ActionBorrow}
}
func Loan(ownerID string, action Action) Resource {
	return Resource{Kind: ResourceLoan, Action: action, OwnerID: ownerID}
}
func UserRecords(userID string) Resource {
	return Resource{Kind: ResourceUserRecords, Action: ActionRead, OwnerID: userID}
}
func UserDirectory() Resource { return Resource{Kind: ResourceUserDirectory, Action: ActionRead} }
func Notifier() Resource      { return Resource{Kind: ResourceNotifier, Action: ActionWrite} }

// CanAccess is the single access policy for the lending service.
func CanAccess(actor Actor, res Resource) bool {
	if actor.UserID == "" {
		return false
	}

	switch res.Kind {
	case ResourceCatalog:
		switch res.Action {
		case ActionRead:
			return true
		case ActionBorrow:
			return actor.Role == domain.RoleUser
		default:
			return actor.IsAdmin()
		}
	case ResourceLoan, ResourceUserRecords:
		return actor.IsAdmin() || actor.UserID == res.OwnerID
	case ResourceUserDirectory, ResourceNotifier:
		return actor.IsAdmin()
	default:
		return false
	}
}
