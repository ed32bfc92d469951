package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/flexspace/internal/accesstoken"
	"github.com/example/flexspace/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) defaults(idGen func() string, now func() time.Time) (func() string, func() time.Time) {
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return idGen, now
}

// SpaceServiceDeps captures dependencies for constructing a space service.
type SpaceServiceDeps struct {
	Spaces       application.SpaceRepository
	Reservations application.ReservationRepository
	Location     *time.Location
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewSpaceService builds a space service. Location defaults to UTC.
func (f *ServiceFactory) NewSpaceService(deps SpaceServiceDeps) *application.SpaceService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return application.NewSpaceServiceWithLogger(deps.Spaces, deps.Reservations, idGen, now, loc, deps.Logger)
}

// ReservationServiceDeps captures dependencies for constructing a reservation service.
type ReservationServiceDeps struct {
	Reservations application.ReservationRepository
	Spaces       application.SpaceRepository
	Locker       application.SpaceLocker
	QRIssuer     application.QRIssuer
	Notifier     application.Notifier
	Location     *time.Location
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewReservationService builds a reservation service. Location defaults to UTC.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	opts := []application.ReservationOption{application.WithLocation(loc)}
	if deps.Locker != nil {
		opts = append(opts, application.WithSpaceLocker(deps.Locker))
	}
	if deps.QRIssuer != nil {
		opts = append(opts, application.WithQRIssuer(deps.QRIssuer))
	}
	if deps.Notifier != nil {
		opts = append(opts, application.WithNotifier(deps.Notifier))
	}
	if deps.Logger != nil {
		opts = append(opts, application.WithReservationLogger(deps.Logger))
	}
	return application.NewReservationService(deps.Reservations, deps.Spaces, idGen, now, opts...)
}

// AccessServiceDeps captures dependencies for constructing an access service.
type AccessServiceDeps struct {
	Reservations application.ReservationRepository
	AccessLogs   application.AccessLogRepository
	Signer       *accesstoken.Signer
	Renderer     application.QRRenderer
	AuditDenied  bool
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewAccessService builds an access service. A nil Signer uses the secret
// "test-secret" and a nil Renderer echoes the token.
func (f *ServiceFactory) NewAccessService(deps AccessServiceDeps) *application.AccessService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	signer := deps.Signer
	if signer == nil {
		var err error
		signer, err = accesstoken.NewSigner("test-secret")
		if err != nil {
			panic(err)
		}
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = EchoRenderer{}
	}
	opts := []application.AccessServiceOption{application.WithDeniedAudit(deps.AuditDenied)}
	if deps.Logger != nil {
		opts = append(opts, application.WithAccessLogger(deps.Logger))
	}
	return application.NewAccessService(deps.Reservations, deps.AccessLogs, signer, renderer, idGen, now, opts...)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Users          application.UserRepository
	Tokens         *application.TokenIssuer
	PasswordHash   application.PasswordHasher
	PasswordVerify application.PasswordVerifier
	IDGenerator    func() string
	Now            func() time.Time
	Logger         *slog.Logger
}

// NewAuthService builds an auth service. A nil Tokens issuer signs with
// "test-jwt-secret" for one hour, and a nil PasswordHash uses LightArgon2idParams.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	tokens := deps.Tokens
	if tokens == nil {
		var err error
		tokens, err = application.NewTokenIssuer("test-jwt-secret", "", time.Hour, now)
		if err != nil {
			panic(err)
		}
	}
	hash := deps.PasswordHash
	if hash == nil {
		hash = LightPasswordHasher
	}
	return application.NewAuthServiceWithLogger(deps.Users, tokens, hash, deps.PasswordVerify, idGen, now, deps.Logger)
}

// LightArgon2idParams keeps password hashing fast in tests.
var LightArgon2idParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// LightPasswordHasher hashes with LightArgon2idParams.
func LightPasswordHasher(password string) (string, error) {
	return application.CreatePasswordHash(password, LightArgon2idParams)
}

// EchoRenderer returns "qr:" followed by the token instead of an image.
type EchoRenderer struct{}

// Render implements application.QRRenderer.
func (EchoRenderer) Render(content string) (string, error) {
	return "qr:" + content, nil
}
