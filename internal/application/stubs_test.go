package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/flexspace/internal/persistence"
	"github.com/example/flexspace/internal/scheduler"
)

// memoryStore implements every repository interface over maps.
type memoryStore struct {
	mu           sync.Mutex
	users        map[string]UserCredentials
	spaces       map[string]Space
	reservations map[string]Reservation
	order        []string
	logs         []AccessLog

	admitErr      error
	admitCalls    int
	storeQRErr    error
	getErr        error
	createLogErr  error
	findCalls     int
	beforeAdmitFn func(*memoryStore)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:        make(map[string]UserCredentials),
		spaces:       make(map[string]Space),
		reservations: make(map[string]Reservation),
	}
}

func (m *memoryStore) addUser(id string, role Role) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := User{ID: id, Email: id + "@example.com", FirstName: "First " + id, LastName: "Last " + id, Role: role}
	m.users[id] = UserCredentials{User: user, PasswordHash: "hash"}
	return user
}

func (m *memoryStore) addSpace(space Space) Space {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces[space.ID] = space
	return space
}

func (m *memoryStore) addReservation(r Reservation) Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(r)
	return r
}

func (m *memoryStore) insertLocked(r Reservation) {
	if _, ok := m.reservations[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	r.Space = nil
	r.User = nil
	m.reservations[r.ID] = r
}

func (m *memoryStore) reservation(id string) Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservations[id]
}

func (m *memoryStore) accessLogCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func (m *memoryStore) withRelationsLocked(r Reservation) Reservation {
	if space, ok := m.spaces[r.SpaceID]; ok {
		s := space
		r.Space = &s
	}
	if creds, ok := m.users[r.UserID]; ok {
		u := creds.User
		r.User = &u
	}
	return r
}

// UserRepository

func (m *memoryStore) CreateUser(ctx context.Context, creds UserCredentials) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, creds.Email) {
			return User{}, persistence.ErrDuplicate
		}
	}
	m.users[creds.ID] = creds
	return creds.User, nil
}

func (m *memoryStore) GetUser(ctx context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds, ok := m.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return creds.User, nil
}

func (m *memoryStore) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, creds := range m.users {
		if strings.EqualFold(creds.Email, email) {
			return creds, nil
		}
	}
	return UserCredentials{}, persistence.ErrNotFound
}

// SpaceRepository

func (m *memoryStore) CreateSpace(ctx context.Context, space Space) (Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spaces[space.ID]; ok {
		return Space{}, persistence.ErrDuplicate
	}
	m.spaces[space.ID] = space
	return space, nil
}

func (m *memoryStore) UpdateSpace(ctx context.Context, space Space) (Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spaces[space.ID]; !ok {
		return Space{}, persistence.ErrNotFound
	}
	m.spaces[space.ID] = space
	return space, nil
}

func (m *memoryStore) GetSpace(ctx context.Context, id string) (Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	space, ok := m.spaces[id]
	if !ok {
		return Space{}, persistence.ErrNotFound
	}
	return space, nil
}

func (m *memoryStore) ListSpaces(ctx context.Context, filter SpaceFilter) ([]Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var spaces []Space
	for _, space := range m.spaces {
		if !space.IsActive {
			continue
		}
		if filter.Type != nil && space.Type != *filter.Type {
			continue
		}
		if filter.MinCapacity != nil && space.Capacity < *filter.MinCapacity {
			continue
		}
		if filter.Search != nil && !strings.Contains(strings.ToLower(space.Name), strings.ToLower(*filter.Search)) {
			continue
		}
		spaces = append(spaces, space)
	}
	sort.Slice(spaces, func(i, j int) bool { return spaces[i].Name < spaces[j].Name })
	return spaces, nil
}

// ReservationRepository

func (m *memoryStore) GetReservation(ctx context.Context, id string) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return Reservation{}, m.getErr
	}
	r, ok := m.reservations[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	return m.withRelationsLocked(r), nil
}

func (m *memoryStore) ListReservations(ctx context.Context, q ReservationQuery) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reservation
	for _, id := range m.order {
		r := m.reservations[id]
		if q.UserID != nil && r.UserID != *q.UserID {
			continue
		}
		if q.SpaceID != nil && r.SpaceID != *q.SpaceID {
			continue
		}
		if q.Status != nil && r.Status != *q.Status {
			continue
		}
		if q.EndsAtOrAfter != nil && r.EndTime.Before(*q.EndsAtOrAfter) {
			continue
		}
		if q.StartsAtOrBefore != nil && r.StartTime.After(*q.StartsAtOrBefore) {
			continue
		}
		out = append(out, m.withRelationsLocked(r))
	}
	return out, nil
}

func (m *memoryStore) FindConflicts(ctx context.Context, q ConflictQuery) ([]Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	return m.conflictsLocked(q), nil
}

func (m *memoryStore) conflictsLocked(q ConflictQuery) []Conflict {
	candidate := scheduler.Interval{Start: q.Start, End: q.End}
	var out []Conflict
	for _, id := range m.order {
		r := m.reservations[id]
		if r.SpaceID != q.SpaceID || r.Status != StatusActive {
			continue
		}
		excluded := false
		for _, ex := range q.ExcludeIDs {
			if ex == r.ID {
				excluded = true
			}
		}
		if excluded || !scheduler.Overlaps(scheduler.Interval{Start: r.StartTime, End: r.EndTime}, candidate) {
			continue
		}
		out = append(out, Conflict{
			ReservationID: r.ID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			Owner:         m.users[r.UserID].User,
		})
	}
	return out
}

func (m *memoryStore) CountReservations(ctx context.Context, c ReservationCount) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.reservations {
		if r.SpaceID != c.SpaceID {
			continue
		}
		if c.Status != nil && r.Status != *c.Status {
			continue
		}
		if c.EndsAtOrAfter != nil && r.EndTime.Before(*c.EndsAtOrAfter) {
			continue
		}
		if c.StartsAtOrAfter != nil && r.StartTime.Before(*c.StartsAtOrAfter) {
			continue
		}
		if c.StartsBefore != nil && !r.StartTime.Before(*c.StartsBefore) {
			continue
		}
		count++
	}
	return count, nil
}

func (m *memoryStore) AdmitReservation(ctx context.Context, a Admission) (Reservation, error) {
	if m.beforeAdmitFn != nil {
		m.beforeAdmitFn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admitCalls++
	if m.admitErr != nil {
		return Reservation{}, m.admitErr
	}
	blocking := m.conflictsLocked(ConflictQuery{
		SpaceID:    a.Reservation.SpaceID,
		Start:      a.Reservation.StartTime,
		End:        a.Reservation.EndTime,
		ExcludeIDs: a.CancelIDs,
	})
	if len(blocking) > 0 {
		return Reservation{}, fmt.Errorf("%w: %s", persistence.ErrOverlap, blocking[0].ReservationID)
	}
	for _, id := range a.CancelIDs {
		r := m.reservations[id]
		if r.Status == StatusActive {
			r.Status = StatusCancelled
			r.UpdatedAt = a.At
			m.reservations[id] = r
		}
	}
	m.insertLocked(a.Reservation)
	return m.withRelationsLocked(a.Reservation), nil
}

func (m *memoryStore) UpdateReservationStatus(ctx context.Context, id string, status ReservationStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = at
	m.reservations[id] = r
	return nil
}

func (m *memoryStore) StoreQRCode(ctx context.Context, id, qrCode, qrSignature string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeQRErr != nil {
		return m.storeQRErr
	}
	r, ok := m.reservations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	r.QRCode = &qrCode
	r.QRSignature = &qrSignature
	r.UpdatedAt = at
	m.reservations[id] = r
	return nil
}

// AccessLogRepository

func (m *memoryStore) CreateAccessLog(ctx context.Context, entry AccessLog) (AccessLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createLogErr != nil {
		return AccessLog{}, m.createLogErr
	}
	m.logs = append(m.logs, entry)
	return entry, nil
}

func (m *memoryStore) ListAccessLogs(ctx context.Context, reservationID string) ([]AccessLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AccessLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].ReservationID == reservationID {
			entry := m.logs[i]
			if creds, ok := m.users[entry.UserID]; ok {
				u := creds.User
				entry.User = &u
			}
			out = append(out, entry)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	cancelled []string
}

func (n *recordingNotifier) ReservationOverridden(ctx context.Context, cancelled Conflict, replacement Reservation, by Principal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, cancelled.ReservationID)
}

type failingIssuer struct{}

func (failingIssuer) GenerateQRCode(ctx context.Context, reservationID string) (QRCode, error) {
	return QRCode{}, fmt.Errorf("renderer offline")
}

var testNow = time.Date(2030, time.March, 11, 8, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// slot returns the interval [start, end) on 2030-03-12 UTC.
func slot(startHour, startMinute, endHour, endMinute int) (time.Time, time.Time) {
	day := time.Date(2030, time.March, 12, 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMinute)*time.Minute),
		day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMinute)*time.Minute)
}

func testSpace(id string) Space {
	return Space{
		ID:        id,
		Name:      "Space " + id,
		Type:      SpaceTypeMeetingRoom,
		Capacity:  8,
		OpenTime:  "08:00",
		CloseTime: "20:00",
		IsActive:  true,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func activeReservation(id, userID, spaceID string, start, end time.Time) Reservation {
	return Reservation{
		ID:        id,
		UserID:    userID,
		SpaceID:   spaceID,
		StartTime: start,
		EndTime:   end,
		Status:    StatusActive,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}
