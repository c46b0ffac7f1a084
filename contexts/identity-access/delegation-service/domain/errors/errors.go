package errors

import "errors"

var (
	ErrDelegationNotFound = errors.New("delegation not found")
	ErrDelegatorNotFound  = errors.New("delegator not found")
	ErrDelegateNotFound   = errors.New("delegate not found")
	ErrApproverNotFound   = errors.New("approver not found")
	ErrPermissionNotFound = errors.New("permission not found")

	ErrInvalidStatus         = errors.New("delegation status does not allow this transition")
	ErrExpiryNotInFuture     = errors.New("expiry must be in the future")
	ErrDelegationExpired     = errors.New("delegation has expired")
	ErrReasonRequired        = errors.New("reason is required")
	ErrConfirmationRequired  = errors.New("activation must be confirmed")
	ErrInvalidDelegationType = errors.New("invalid delegation type")
	ErrStateConflict         = errors.New("delegation changed concurrently")

	ErrNotAssignedApprover = errors.New("only the assigned approver may decide this delegation")
	ErrNotDelegate         = errors.New("only the delegate may activate this delegation")
	ErrNotStakeholder      = errors.New("only the delegator, delegate or approver may revoke this delegation")
)

// IsNotFound groups errors that map to a not-found response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDelegationNotFound) ||
		errors.Is(err, ErrDelegatorNotFound) ||
		errors.Is(err, ErrDelegateNotFound) ||
		errors.Is(err, ErrApproverNotFound) ||
		errors.Is(err, ErrPermissionNotFound)
}

// IsInvalidState groups errors caused by an illegal transition or argument
// against the delegation's current lifecycle position.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrExpiryNotInFuture) ||
		errors.Is(err, ErrDelegationExpired) ||
		errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrConfirmationRequired) ||
		errors.Is(err, ErrInvalidDelegationType) ||
		errors.Is(err, ErrStateConflict)
}

// IsForbidden groups errors where the actor lacks the relational right.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrNotAssignedApprover) ||
		errors.Is(err, ErrNotDelegate) ||
		errors.Is(err, ErrNotStakeholder)
}
