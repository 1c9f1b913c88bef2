package alerts

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotAssignee is returned when a staff member tries to act on an
	// alert that is assigned to someone else.
	ErrNotAssignee   = errors.New("only the assigned staff member can perform this action")
	ErrStaffNotFound = errors.New("staff not found")
)
