package persistence

import "time"

// User represents an account able to book spaces.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Space represents a bookable desk, room or collaborative area.
type Space struct {
	ID        string
	Name      string
	Type      string
	Capacity  int
	Floor     *string
	Building  *string
	OpenTime  string
	CloseTime string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation represents a time-bounded claim on a space.
type Reservation struct {
	ID          string
	UserID      string
	SpaceID     string
	StartTime   time.Time
	EndTime     time.Time
	Status      string
	QRCode      *string
	QRSignature *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReservationRecord is a reservation joined with its space and owner.
// Owner.PasswordHash is never populated.
type ReservationRecord struct {
	Reservation
	Space Space
	Owner User
}

// AccessLog is an append-only record of a QR access attempt.
type AccessLog struct {
	ID            string
	ReservationID string
	UserID        string
	AccessTime    time.Time
	AccessGranted bool
	Method        string
}

// AccessLogRecord is an access log joined with the acting user.
type AccessLogRecord struct {
	AccessLog
	User User
}
