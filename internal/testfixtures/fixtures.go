package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/flexspace/internal/application"
	"github.com/example/flexspace/internal/persistence"
)

var (
	userCounter        uint64
	spaceCounter       uint64
	reservationCounter uint64
	accessLogCounter   uint64
)

var referenceTime = time.Date(2030, time.March, 11, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday so week boundaries are predictable.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         application.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic employee fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(-time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		FirstName:    "First",
		LastName:     fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RoleEmployee,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserName overrides the generated first and last names.
func WithUserName(first, last string) UserOption {
	return func(f *UserFixture) {
		f.FirstName = first
		f.LastName = last
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserRole sets the role on the generated fixture.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Email:     f.Email,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Role:      f.Role,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:         f.Application(),
		PasswordHash: f.PasswordHash,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Role:         string(f.Role),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Space fixtures -----------------------------

// SpaceFixture represents a deterministic bookable space.
type SpaceFixture struct {
	ID        string
	Name      string
	Type      application.SpaceType
	Capacity  int
	Floor     *string
	Building  *string
	OpenTime  string
	CloseTime string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SpaceOption configures the generated space fixture.
type SpaceOption func(*SpaceFixture)

// NewSpaceFixture returns an active meeting room open 08:00-20:00.
func NewSpaceFixture(opts ...SpaceOption) SpaceFixture {
	idx := atomic.AddUint64(&spaceCounter, 1)
	id := fmt.Sprintf("space-%03d", idx)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := SpaceFixture{
		ID:        id,
		Name:      fmt.Sprintf("Space %03d", idx),
		Type:      application.SpaceTypeMeetingRoom,
		Capacity:  int(4 + idx%4),
		OpenTime:  "08:00",
		CloseTime: "20:00",
		IsActive:  true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSpaceID overrides the generated space ID.
func WithSpaceID(id string) SpaceOption {
	return func(f *SpaceFixture) {
		f.ID = id
	}
}

// WithSpaceName overrides the generated name.
func WithSpaceName(name string) SpaceOption {
	return func(f *SpaceFixture) {
		f.Name = name
	}
}

// WithSpaceType overrides the space type.
func WithSpaceType(spaceType application.SpaceType) SpaceOption {
	return func(f *SpaceFixture) {
		f.Type = spaceType
	}
}

// WithSpaceCapacity overrides the capacity.
func WithSpaceCapacity(capacity int) SpaceOption {
	return func(f *SpaceFixture) {
		f.Capacity = capacity
	}
}

// WithSpaceLocation sets floor and building. Empty strings clear them.
func WithSpaceLocation(floor, building string) SpaceOption {
	return func(f *SpaceFixture) {
		f.Floor = optionalString(floor)
		f.Building = optionalString(building)
	}
}

// WithSpaceHours overrides the daily opening hours.
func WithSpaceHours(open, close string) SpaceOption {
	return func(f *SpaceFixture) {
		f.OpenTime = open
		f.CloseTime = close
	}
}

// WithSpaceActive sets the soft-delete flag.
func WithSpaceActive(active bool) SpaceOption {
	return func(f *SpaceFixture) {
		f.IsActive = active
	}
}

// Application returns the fixture as an application.Space value.
func (f SpaceFixture) Application() application.Space {
	return application.Space{
		ID:        f.ID,
		Name:      f.Name,
		Type:      f.Type,
		Capacity:  f.Capacity,
		Floor:     cloneString(f.Floor),
		Building:  cloneString(f.Building),
		OpenTime:  f.OpenTime,
		CloseTime: f.CloseTime,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Space value.
func (f SpaceFixture) Persistence() persistence.Space {
	return persistence.Space{
		ID:        f.ID,
		Name:      f.Name,
		Type:      string(f.Type),
		Capacity:  f.Capacity,
		Floor:     cloneString(f.Floor),
		Building:  cloneString(f.Building),
		OpenTime:  f.OpenTime,
		CloseTime: f.CloseTime,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.SpaceInput.
func (f SpaceFixture) Input() application.SpaceInput {
	return application.SpaceInput{
		Name:      f.Name,
		Type:      string(f.Type),
		Capacity:  f.Capacity,
		Floor:     cloneString(f.Floor),
		Building:  cloneString(f.Building),
		OpenTime:  f.OpenTime,
		CloseTime: f.CloseTime,
	}
}

// ----------------------------- Reservation fixtures -----------------------------

// ReservationFixture represents a deterministic reservation.
type ReservationFixture struct {
	ID          string
	UserID      string
	SpaceID     string
	StartTime   time.Time
	EndTime     time.Time
	Status      application.ReservationStatus
	QRCode      *string
	QRSignature *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns an ACTIVE one hour reservation starting at
// 09:00 on the day after ReferenceTime.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	id := fmt.Sprintf("reservation-%03d", idx)
	start := time.Date(2030, time.March, 12, 9, 0, 0, 0, time.UTC)
	fixture := ReservationFixture{
		ID:        id,
		UserID:    "user-001",
		SpaceID:   "space-001",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    application.StatusActive,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationOwner sets the booking user.
func WithReservationOwner(userID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.UserID = userID
	}
}

// WithReservationSpace sets the booked space.
func WithReservationSpace(spaceID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.SpaceID = spaceID
	}
}

// WithReservationWindow sets the reserved interval.
func WithReservationWindow(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithReservationStatus sets the lifecycle status.
func WithReservationStatus(status application.ReservationStatus) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
	}
}

// WithReservationQR sets the stored QR image and signature.
func WithReservationQR(code, signature string) ReservationOption {
	return func(f *ReservationFixture) {
		f.QRCode = optionalString(code)
		f.QRSignature = optionalString(signature)
	}
}

// Application returns the fixture as an application.Reservation without relations.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:          f.ID,
		UserID:      f.UserID,
		SpaceID:     f.SpaceID,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		Status:      f.Status,
		QRCode:      cloneString(f.QRCode),
		QRSignature: cloneString(f.QRSignature),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:          f.ID,
		UserID:      f.UserID,
		SpaceID:     f.SpaceID,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		Status:      string(f.Status),
		QRCode:      cloneString(f.QRCode),
		QRSignature: cloneString(f.QRSignature),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ----------------------------- Access log fixtures -----------------------------

// AccessLogFixture represents a deterministic access attempt.
type AccessLogFixture struct {
	ID            string
	ReservationID string
	UserID        string
	AccessTime    time.Time
	AccessGranted bool
}

// AccessLogOption configures the generated access log fixture.
type AccessLogOption func(*AccessLogFixture)

// NewAccessLogFixture returns a granted access at ReferenceTime.
func NewAccessLogFixture(opts ...AccessLogOption) AccessLogFixture {
	idx := atomic.AddUint64(&accessLogCounter, 1)
	fixture := AccessLogFixture{
		ID:            fmt.Sprintf("access-%03d", idx),
		ReservationID: "reservation-001",
		UserID:        "user-001",
		AccessTime:    referenceTime,
		AccessGranted: true,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAccessLogID overrides the generated ID.
func WithAccessLogID(id string) AccessLogOption {
	return func(f *AccessLogFixture) {
		f.ID = id
	}
}

// WithAccessLogReservation sets the reservation and acting user.
func WithAccessLogReservation(reservationID, userID string) AccessLogOption {
	return func(f *AccessLogFixture) {
		f.ReservationID = reservationID
		f.UserID = userID
	}
}

// WithAccessLogTime sets the attempt time.
func WithAccessLogTime(at time.Time) AccessLogOption {
	return func(f *AccessLogFixture) {
		f.AccessTime = at
	}
}

// WithAccessLogGranted sets the outcome.
func WithAccessLogGranted(granted bool) AccessLogOption {
	return func(f *AccessLogFixture) {
		f.AccessGranted = granted
	}
}

// Persistence returns the fixture as a persistence.AccessLog value.
func (f AccessLogFixture) Persistence() persistence.AccessLog {
	return persistence.AccessLog{
		ID:            f.ID,
		ReservationID: f.ReservationID,
		UserID:        f.UserID,
		AccessTime:    f.AccessTime,
		AccessGranted: f.AccessGranted,
		Method:        string(application.AccessMethodQRCode),
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
