package application

// Permission names an operation that is gated by role.
type Permission string

const (
	PermSpaceManage          Permission = "space:manage"
	PermSpaceStatistics      Permission = "space:statistics"
	PermReservationCreate    Permission = "reservation:create"
	PermReservationOverride  Permission = "reservation:override"
	PermReservationListOwn   Permission = "reservation:list-own"
	PermReservationListAny   Permission = "reservation:list-any"
	PermReservationReadAny   Permission = "reservation:read-any"
	PermReservationCancelAny Permission = "reservation:cancel-any"
	PermQRGenerateOwn        Permission = "qr:generate-own"
	PermQRGenerateAny        Permission = "qr:generate-any"
	PermAccessLogRead        Permission = "access-log:read"
)

var rolePermissions = map[Role]map[Permission]struct{}{
	RoleEmployee: permissionSet(
		PermReservationCreate,
		PermReservationListOwn,
		PermQRGenerateOwn,
	),
	RoleManager: permissionSet(
		PermSpaceStatistics,
		PermReservationCreate,
		PermReservationOverride,
		PermReservationListOwn,
		PermQRGenerateOwn,
		PermAccessLogRead,
	),
	RoleAdmin: permissionSet(
		PermSpaceManage,
		PermSpaceStatistics,
		PermReservationCreate,
		PermReservationOverride,
		PermReservationListOwn,
		PermReservationListAny,
		PermReservationReadAny,
		PermReservationCancelAny,
		PermQRGenerateOwn,
		PermQRGenerateAny,
		PermAccessLogRead,
	),
}

func permissionSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, perm := range perms {
		set[perm] = struct{}{}
	}
	return set
}

// Can reports whether the principal's role grants perm.
func (p Principal) Can(perm Permission) bool {
	_, ok := rolePermissions[p.Role][perm]
	return ok
}

// authorize returns ErrUnauthenticated for an anonymous principal and
// ErrForbidden when the role lacks perm.
func authorize(principal Principal, perm Permission) error {
	if principal.UserID == "" {
		return ErrUnauthenticated
	}
	if !principal.Can(perm) {
		return ErrForbidden
	}
	return nil
}
