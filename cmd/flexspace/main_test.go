package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/flexspace/internal/accesstoken"
	"github.com/example/flexspace/internal/application"
	"github.com/example/flexspace/internal/config"
	"github.com/example/flexspace/internal/locking"
	"github.com/example/flexspace/internal/persistence"
	"github.com/example/flexspace/internal/persistence/sqlstore"
	"github.com/example/flexspace/internal/testfixtures"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedHarness(t *testing.T, clock *testfixtures.Clock) *testfixtures.SQLiteHarness {
	t.Helper()

	harness := testfixtures.NewSQLiteHarness(t)
	ids := testfixtures.NewIDGenerator("seed")
	repos := seedRepositories{users: harness.Users, spaces: harness.Spaces}
	if _, err := seedDemoData(context.Background(), repos, testfixtures.LightPasswordHasher, ids.NextFunc(), clock.NowFunc(), discardLogger()); err != nil {
		t.Fatalf("seedDemoData failed: %v", err)
	}
	return harness
}

func TestSeedDemoData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	harness := testfixtures.NewSQLiteHarness(t)
	repos := seedRepositories{users: harness.Users, spaces: harness.Spaces}
	ids := testfixtures.NewIDGenerator("seed")

	created, err := seedDemoData(ctx, repos, testfixtures.LightPasswordHasher, ids.NextFunc(), clock.NowFunc(), discardLogger())
	if err != nil {
		t.Fatalf("seedDemoData failed: %v", err)
	}
	if want := len(demoUsers) + len(demoSpaces); created != want {
		t.Fatalf("expected %d rows created, got %d", want, created)
	}

	again, err := seedDemoData(ctx, repos, testfixtures.LightPasswordHasher, ids.NextFunc(), clock.NowFunc(), discardLogger())
	if err != nil {
		t.Fatalf("second seedDemoData failed: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected the second run to create nothing, got %d", again)
	}

	admin, err := harness.Users.GetUserByEmail(ctx, "admin@flexspace.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if admin.Role != string(application.RoleAdmin) {
		t.Fatalf("expected admin role, got %q", admin.Role)
	}
	if err := application.VerifyPassword(admin.PasswordHash, "Admin123!"); err != nil {
		t.Fatalf("expected seeded password to verify: %v", err)
	}

	spaces, err := harness.Spaces.ListSpaces(ctx, persistence.SpaceFilter{})
	if err != nil {
		t.Fatalf("ListSpaces failed: %v", err)
	}
	if len(spaces) != len(demoSpaces) {
		t.Fatalf("expected %d spaces, got %d", len(demoSpaces), len(spaces))
	}
}

type flow struct {
	auth         *application.AuthService
	reservations *application.ReservationService
	access       *application.AccessService
	harness      *testfixtures.SQLiteHarness
	clock        *testfixtures.Clock
}

func newFlow(t *testing.T) flow {
	t.Helper()

	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	harness := seedHarness(t, clock)
	ids := testfixtures.NewIDGenerator("id")
	now := clock.NowFunc()

	signer, err := accesstoken.NewSigner("qr-secret")
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	tokens, err := application.NewTokenIssuer("jwt-secret", tokenIssuer, time.Hour, now)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}

	reservationRepo := newReservationRepositoryAdapter(harness.Reservations)
	spaceRepo := newSpaceRepositoryAdapter(harness.Spaces)

	access := application.NewAccessService(reservationRepo, newAccessLogRepositoryAdapter(harness.AccessLogs), signer, testfixtures.EchoRenderer{}, ids.NextFunc(), now,
		application.WithAccessLogger(discardLogger()),
	)
	reservations := application.NewReservationService(reservationRepo, spaceRepo, ids.NextFunc(), now,
		application.WithSpaceLocker(locking.NewKeyedMutex()),
		application.WithQRIssuer(access),
		application.WithNotifier(application.NewLogNotifier(discardLogger())),
		application.WithLocation(time.UTC),
		application.WithReservationLogger(discardLogger()),
	)
	auth := application.NewAuthServiceWithLogger(newUserRepositoryAdapter(harness.Users), tokens, testfixtures.LightPasswordHasher, nil, ids.NextFunc(), now, discardLogger())

	return flow{auth: auth, reservations: reservations, access: access, harness: harness, clock: clock}
}

func (f flow) login(t *testing.T, email, password string) application.Principal {
	t.Helper()

	result, err := f.auth.Login(context.Background(), application.LoginParams{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", email, err)
	}
	if result.AccessToken == "" {
		t.Fatalf("expected an access token for %s", email)
	}
	return application.Principal{UserID: result.User.ID, Role: result.User.Role}
}

func TestRepositoryAdapters_OverrideAndAccessFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFlow(t)

	employee := f.login(t, "employee@flexspace.com", "Employee123!")
	manager := f.login(t, "manager@flexspace.com", "Manager123!")

	room, err := f.harness.Spaces.GetSpaceByName(ctx, "Zeus Room")
	if err != nil {
		t.Fatalf("GetSpaceByName failed: %v", err)
	}
	start, end := testfixtures.Slot(1, 9, 0, time.Hour)

	booked, err := f.reservations.CreateReservation(ctx, application.CreateReservationParams{
		Principal: employee,
		Input:     application.ReservationInput{SpaceID: room.ID, StartTime: start, EndTime: end},
	})
	if err != nil {
		t.Fatalf("employee CreateReservation failed: %v", err)
	}
	if booked.Space == nil || booked.Space.Name != "Zeus Room" {
		t.Fatalf("expected the admitted reservation to carry its space, got %#v", booked.Space)
	}
	if booked.User == nil || booked.User.FirstName != "John" {
		t.Fatalf("expected the admitted reservation to carry its owner, got %#v", booked.User)
	}
	if booked.QRCode == nil || booked.QRSignature == nil {
		t.Fatalf("expected QR fields on the new reservation")
	}

	employeeQR, err := f.access.GenerateQRCodeFor(ctx, employee, booked.ID)
	if err != nil {
		t.Fatalf("GenerateQRCodeFor failed: %v", err)
	}

	t.Run("conflict is reported with its owner", func(t *testing.T) {
		_, err := f.reservations.CreateReservation(ctx, application.CreateReservationParams{
			Principal: manager,
			Input:     application.ReservationInput{SpaceID: room.ID, StartTime: start.Add(30 * time.Minute), EndTime: end.Add(30 * time.Minute)},
		})
		var conflict *application.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if !conflict.CanOverride {
			t.Fatalf("expected a manager to be offered the override")
		}
		if len(conflict.Conflicts) != 1 || conflict.Conflicts[0].ReservationID != booked.ID {
			t.Fatalf("unexpected conflicts %#v", conflict.Conflicts)
		}
		if conflict.Conflicts[0].Owner.Role != application.RoleEmployee {
			t.Fatalf("expected the conflict owner role, got %q", conflict.Conflicts[0].Owner.Role)
		}
	})

	replacement, err := f.reservations.CreateReservation(ctx, application.CreateReservationParams{
		Principal: manager,
		Input: application.ReservationInput{
			SpaceID:          room.ID,
			StartTime:        start.Add(30 * time.Minute),
			EndTime:          end.Add(30 * time.Minute),
			OverrideConflict: true,
		},
	})
	if err != nil {
		t.Fatalf("manager override failed: %v", err)
	}

	cancelled, err := f.reservations.GetReservation(ctx, employee, booked.ID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if cancelled.Status != application.StatusCancelled {
		t.Fatalf("expected the overridden reservation to be cancelled, got %s", cancelled.Status)
	}

	managerQR, err := f.access.GenerateQRCodeFor(ctx, manager, replacement.ID)
	if err != nil {
		t.Fatalf("GenerateQRCodeFor failed: %v", err)
	}

	f.clock.EnterWindow(start, 45*time.Minute)

	denied := f.access.VerifyQRCode(ctx, employeeQR.Token)
	if denied.AccessGranted || denied.Reason != application.VerifyReservationCancelled {
		t.Fatalf("expected the cancelled token to be denied, got %#v", denied)
	}

	granted := f.access.VerifyQRCode(ctx, managerQR.Token)
	if !granted.Valid || !granted.AccessGranted {
		t.Fatalf("expected the replacement token to be granted, got %#v", granted)
	}
	if granted.Grant == nil || granted.Grant.Space.ID != room.ID || granted.Grant.User.ID != manager.UserID {
		t.Fatalf("unexpected grant %#v", granted.Grant)
	}

	logs, err := f.access.AccessLogs(ctx, manager, replacement.ID)
	if err != nil {
		t.Fatalf("AccessLogs failed: %v", err)
	}
	if len(logs) != 1 || !logs[0].AccessGranted || logs[0].Method != application.AccessMethodQRCode {
		t.Fatalf("unexpected access logs %#v", logs)
	}
	if logs[0].User == nil || logs[0].User.LastName != "Smith" {
		t.Fatalf("expected the log to carry its user, got %#v", logs[0].User)
	}
}

func TestReservationRepositoryAdapter_Filters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	harness := seedHarness(t, clock)
	adapter := newReservationRepositoryAdapter(harness.Reservations)

	employee, err := harness.Users.GetUserByEmail(ctx, "employee@flexspace.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	desk, err := harness.Spaces.GetSpaceByName(ctx, "Open Space Desk 1")
	if err != nil {
		t.Fatalf("GetSpaceByName failed: %v", err)
	}

	start, end := testfixtures.Slot(1, 10, 0, time.Hour)
	candidate := testfixtures.NewReservationFixture(
		testfixtures.WithReservationID("reservation-filters"),
		testfixtures.WithReservationOwner(employee.ID),
		testfixtures.WithReservationSpace(desk.ID),
		testfixtures.WithReservationWindow(start, end),
	).Application()

	admitted, err := adapter.AdmitReservation(ctx, application.Admission{Reservation: candidate, At: clock.Now()})
	if err != nil {
		t.Fatalf("AdmitReservation failed: %v", err)
	}
	if admitted.Space == nil || admitted.Space.ID != desk.ID {
		t.Fatalf("expected the space relation, got %#v", admitted.Space)
	}

	if err := adapter.StoreQRCode(ctx, admitted.ID, "data:image/png;base64,AAAA", "sig", clock.Now()); err != nil {
		t.Fatalf("StoreQRCode failed: %v", err)
	}
	stored, err := adapter.GetReservation(ctx, admitted.ID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if stored.QRSignature == nil || *stored.QRSignature != "sig" {
		t.Fatalf("expected the stored signature, got %v", stored.QRSignature)
	}

	active := application.StatusActive
	count, err := adapter.CountReservations(ctx, application.ReservationCount{SpaceID: desk.ID, Status: &active})
	if err != nil {
		t.Fatalf("CountReservations failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one active reservation, got %d", count)
	}

	if err := adapter.UpdateReservationStatus(ctx, admitted.ID, application.StatusCancelled, clock.Now()); err != nil {
		t.Fatalf("UpdateReservationStatus failed: %v", err)
	}

	listed, err := adapter.ListReservations(ctx, application.ReservationQuery{UserID: &employee.ID, Status: &active})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected no active reservations after cancel, got %d", len(listed))
	}

	conflicts, err := adapter.FindConflicts(ctx, application.ConflictQuery{SpaceID: desk.ID, Start: start, End: end})
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected cancelled reservations to be ignored, got %#v", conflicts)
	}
}

func TestSpaceRepositoryAdapter_ListFiltersByType(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := seedHarness(t, testfixtures.NewClock(testfixtures.ReferenceTime()))
	adapter := newSpaceRepositoryAdapter(harness.Spaces)

	desk := application.SpaceTypeDesk
	spaces, err := adapter.ListSpaces(ctx, application.SpaceFilter{Type: &desk})
	if err != nil {
		t.Fatalf("ListSpaces failed: %v", err)
	}
	if len(spaces) != 2 {
		t.Fatalf("expected two desks, got %d", len(spaces))
	}
	for _, space := range spaces {
		if space.Type != application.SpaceTypeDesk || space.Floor == nil || *space.Floor != "2" {
			t.Fatalf("unexpected space %#v", space)
		}
	}
}

func TestNewSpaceLocker_DefaultsToKeyedMutex(t *testing.T) {
	t.Parallel()

	locker, closeLocker, err := newSpaceLocker(context.Background(), config.RedisConfig{}, discardLogger())
	if err != nil {
		t.Fatalf("newSpaceLocker failed: %v", err)
	}
	defer closeLocker()

	if _, ok := locker.(*locking.KeyedMutex); !ok {
		t.Fatalf("expected an in-process lock, got %T", locker)
	}
}

func TestOpenStorage_RejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := openStorage(context.Background(), config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Fatalf("expected an error for an unsupported driver")
	}
}

func setRunEnv(t *testing.T, dsn string) {
	t.Helper()

	t.Setenv("FLEXSPACE_CONFIG_FILE", "")
	t.Setenv("FLEXSPACE_JWT_SECRET", "jwt-secret-for-tests-only")
	t.Setenv("FLEXSPACE_QR_SECRET", "qr-secret-for-tests-only")
	t.Setenv("FLEXSPACE_DATABASE_DRIVER", "sqlite")
	t.Setenv("FLEXSPACE_DATABASE_DSN", dsn)

	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
}

func TestRun_MigrateOnlyReleasesStorage(t *testing.T) {
	dsn := sqlstore.SQLiteDSN(filepath.Join(t.TempDir(), "flexspace.db"))
	setRunEnv(t, dsn)

	var first bytes.Buffer
	if err := run(context.Background(), []string{"--migrate-only", "--seed"}, &first); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if !strings.Contains(first.String(), "demo data seeded") {
		t.Fatalf("expected a seed log line, got %s", first.String())
	}

	// A second run only succeeds when the first one closed the database.
	var second bytes.Buffer
	if err := run(context.Background(), []string{"--migrate-only", "--seed"}, &second); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !strings.Contains(second.String(), `"created":0`) {
		t.Fatalf("expected the second seed to create nothing, got %s", second.String())
	}
}

func TestRun_ReturnsStartupErrors(t *testing.T) {
	setRunEnv(t, sqlstore.SQLiteDSN(filepath.Join(t.TempDir(), "flexspace.db")))

	if err := run(context.Background(), []string{"--no-such-flag"}, io.Discard); err == nil {
		t.Fatalf("expected an error for an unknown flag")
	}

	t.Setenv("FLEXSPACE_DATABASE_DRIVER", "mysql")
	err := run(context.Background(), []string{"--migrate-only"}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "FLEXSPACE_DATABASE_DRIVER") {
		t.Fatalf("expected a configuration error naming the driver, got %v", err)
	}
}
