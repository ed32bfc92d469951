package application

import "time"

// Role is the coarse-grained capability level of a user.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole returns the role named by value.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleEmployee, RoleManager, RoleAdmin:
		return Role(value), true
	}
	return "", false
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// User is an account without credential material.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserCredentials pairs a user with the stored password hash.
type UserCredentials struct {
	User
	PasswordHash string
}

// SpaceType classifies a bookable space.
type SpaceType string

const (
	SpaceTypeDesk          SpaceType = "DESK"
	SpaceTypeMeetingRoom   SpaceType = "MEETING_ROOM"
	SpaceTypeCollaborative SpaceType = "COLLABORATIVE_SPACE"
)

// ParseSpaceType returns the space type named by value.
func ParseSpaceType(value string) (SpaceType, bool) {
	switch SpaceType(value) {
	case SpaceTypeDesk, SpaceTypeMeetingRoom, SpaceTypeCollaborative:
		return SpaceType(value), true
	}
	return "", false
}

// Space is a bookable physical resource.
type Space struct {
	ID        string
	Name      string
	Type      SpaceType
	Capacity  int
	Floor     *string
	Building  *string
	OpenTime  string
	CloseTime string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SpaceDetail is a space with its count of ACTIVE reservations.
type SpaceDetail struct {
	Space
	ActiveReservations int
}

// SpaceStatistics summarizes booking activity for one space.
type SpaceStatistics struct {
	Space                SpaceDetail
	TotalReservations    int
	ReservationsThisWeek int
	WeekStart            time.Time
}

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusActive    ReservationStatus = "ACTIVE"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusCompleted ReservationStatus = "COMPLETED"
)

// ParseReservationStatus returns the status named by value.
func ParseReservationStatus(value string) (ReservationStatus, bool) {
	switch ReservationStatus(value) {
	case StatusActive, StatusCancelled, StatusCompleted:
		return ReservationStatus(value), true
	}
	return "", false
}

// Reservation is a time-bounded claim on a space. Space and User are
// populated when the reservation was loaded with its relations.
type Reservation struct {
	ID          string
	UserID      string
	SpaceID     string
	StartTime   time.Time
	EndTime     time.Time
	Status      ReservationStatus
	QRCode      *string
	QRSignature *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Space       *Space
	User        *User
}

// Conflict is an ACTIVE reservation overlapping a requested interval, with its owner.
type Conflict struct {
	ReservationID string
	StartTime     time.Time
	EndTime       time.Time
	Owner         User
}

// AccessMethod names how an access attempt was made.
type AccessMethod string

// AccessMethodQRCode is the only method in use.
const AccessMethodQRCode AccessMethod = "QR_CODE"

// AccessLog is an append-only audit record of an access attempt.
type AccessLog struct {
	ID            string
	ReservationID string
	UserID        string
	AccessTime    time.Time
	AccessGranted bool
	Method        AccessMethod
	User          *User
}

// SpaceInput captures caller provided space fields for creation.
type SpaceInput struct {
	Name      string
	Type      string
	Capacity  int
	Floor     *string
	Building  *string
	OpenTime  string
	CloseTime string
}

// SpacePatch captures a partial space update. Nil fields are left unchanged.
type SpacePatch struct {
	Name      *string
	Type      *string
	Capacity  *int
	Floor     *string
	Building  *string
	OpenTime  *string
	CloseTime *string
	IsActive  *bool
}

// SpaceFilter narrows public space listings.
type SpaceFilter struct {
	Type        *SpaceType
	MinCapacity *int
	Floor       *string
	Building    *string
	Search      *string
}

// CreateSpaceParams wraps the data required to create a space.
type CreateSpaceParams struct {
	Principal Principal
	Input     SpaceInput
}

// UpdateSpaceParams wraps the data required to update a space.
type UpdateSpaceParams struct {
	Principal Principal
	SpaceID   string
	Patch     SpacePatch
}

// ReservationInput captures a booking request.
type ReservationInput struct {
	SpaceID          string
	StartTime        time.Time
	EndTime          time.Time
	OverrideConflict bool
}

// CreateReservationParams wraps the data required to book a space.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// ListReservationsParams wraps the filters accepted by reservation listings.
type ListReservationsParams struct {
	Principal Principal
	UserID    *string
	SpaceID   *string
	Status    *ReservationStatus
	StartDate *time.Time
	EndDate   *time.Time
}

// CheckAvailabilityParams wraps an availability dry-run.
type CheckAvailabilityParams struct {
	Principal Principal
	SpaceID   string
	StartTime time.Time
	EndTime   time.Time
}

// Availability is the outcome of an availability dry-run.
type Availability struct {
	Available bool
	Space     Space
	StartTime time.Time
	EndTime   time.Time
	Conflicts []Conflict
}

// RegisterParams wraps a self-registration request.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// LoginParams wraps a login request.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult is the issued access token with the authenticated user.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        User
}
