package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/geo"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/queue"
	"github.com/courier-next/internal/repository"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "secret123"

type fakeEnqueuer struct {
	mu       sync.Mutex
	err      error
	payloads []queue.NotificationDeliverPayload
}

func (f *fakeEnqueuer) EnqueueNotification(payload queue.NotificationDeliverPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type fakeGeocoder struct {
	mu        sync.Mutex
	known     map[string]geo.Location
	calls     int
	failRoute bool
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{known: map[string]geo.Location{}}
}

func (f *fakeGeocoder) add(address string, lat, lng float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.known[address] = geo.Location{Lat: lat, Lng: lng, FormattedAddress: address + ", Formatted"}
}

func (f *fakeGeocoder) Resolve(_ context.Context, address string) (*geo.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	loc, ok := f.known[address]
	if !ok {
		return nil, &geo.Failure{Op: "resolve", Reason: geo.ReasonZeroResults}
	}
	return &loc, nil
}

func (f *fakeGeocoder) ResolveCoordinates(context.Context, float64, float64) (*geo.Location, error) {
	return nil, &geo.Failure{Op: "reverse", Reason: geo.ReasonUnavailable}
}

func (f *fakeGeocoder) Route(_ context.Context, origin, destination string) (*geo.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRoute {
		return nil, &geo.Failure{Op: "route", Reason: geo.ReasonNetwork}
	}
	return &geo.Route{DistanceKm: 12.5, DurationHours: 0.4, Polyline: origin + "|" + destination}, nil
}

func (f *fakeGeocoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (f *fakeMailer) SendText(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type courierTestEnv struct {
	db            *gorm.DB
	cfg           *config.Config
	enqueuer      *fakeEnqueuer
	geocoder      *fakeGeocoder
	mailer        *fakeMailer
	userRepo      *repository.GormUserRepository
	requestRepo   *repository.GormParcelRequestRepository
	parcelRepo    *repository.GormParcelRepository
	paymentRepo   *repository.GormPaymentRepository
	eventRepo     *repository.GormParcelEventRepository
	outboxRepo    *repository.GormNotificationEventRepository
	identity      *IdentityService
	notifications *NotificationService
	parcels       *ParcelService
	conversion    *ConversionService
	requests      *ParcelRequestService
	auth          *AuthService
}

func setupCourierTest(t *testing.T) *courierTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:courier_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// 单连接串行化写入，避免共享缓存下的表锁
	sqlDB.SetMaxOpenConns(1)
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	models.DB = db
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{
		App: config.AppConfig{
			PublicURL:       "https://courier.test/",
			DefaultLocale:   "en-US",
			DefaultCurrency: "usd",
		},
		JWT:          config.JWTConfig{SecretKey: "test-jwt-secret", ExpireHours: 1},
		Parcel:       config.ParcelConfig{TrackingPrefix: "PCL", TrackingAttempts: 5},
		Notification: config.NotificationConfig{SecretKey: "outbox-secret"},
	}

	env := &courierTestEnv{
		db:          db,
		cfg:         cfg,
		enqueuer:    &fakeEnqueuer{},
		geocoder:    newFakeGeocoder(),
		mailer:      &fakeMailer{},
		userRepo:    repository.NewUserRepository(db),
		requestRepo: repository.NewParcelRequestRepository(db),
		parcelRepo:  repository.NewParcelRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		eventRepo:   repository.NewParcelEventRepository(db),
		outboxRepo:  repository.NewNotificationEventRepository(db),
	}
	env.identity = NewIdentityService(cfg, env.userRepo)
	env.notifications = NewNotificationService(cfg, env.outboxRepo, env.mailer, env.enqueuer)
	env.parcels = NewParcelService(cfg, ParcelServiceOptions{
		ParcelRepo:    env.parcelRepo,
		PaymentRepo:   env.paymentRepo,
		EventRepo:     env.eventRepo,
		UserRepo:      env.userRepo,
		Identity:      env.identity,
		Notifications: env.notifications,
		Geocoder:      env.geocoder,
	})
	env.conversion = NewConversionService(env.requestRepo, env.parcelRepo, env.userRepo, env.parcels, env.notifications)
	env.requests = NewParcelRequestService(env.requestRepo, env.userRepo, env.identity, env.notifications, env.conversion)
	env.auth = NewAuthService(cfg, env.userRepo)
	return env
}

func (env *courierTestEnv) createUser(t *testing.T, email, role string) Caller {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.Split(email, "@")[0],
		Role:         role,
		Locale:       "en-US",
		Status:       constants.UserStatusActive,
	}
	if err := env.userRepo.Create(user); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return Caller{ID: user.ID, Email: user.Email, Role: user.Role}
}

func (env *courierTestEnv) submit(t *testing.T, sender Caller, receiverEmail string, weight float64) *models.ParcelRequest {
	t.Helper()
	req, err := env.requests.Submit(context.Background(), sender, SubmitParcelRequestInput{
		ReceiverEmail:       receiverEmail,
		Description:         "books",
		Weight:              weight,
		PickupLocation:      "A",
		DestinationLocation: "B",
	})
	if err != nil {
		t.Fatalf("submit request failed: %v", err)
	}
	return req
}

func (env *courierTestEnv) createParcel(t *testing.T, admin, sender Caller, receiverEmail string) *models.Parcel {
	t.Helper()
	parcel, err := env.parcels.Create(context.Background(), admin, CreateParcelInput{
		SenderID:            sender.ID,
		ReceiverEmail:       receiverEmail,
		Description:         "laptop",
		Weight:              2,
		PickupLocation:      "A",
		DestinationLocation: "B",
	})
	if err != nil {
		t.Fatalf("create parcel failed: %v", err)
	}
	return parcel
}

func (env *courierTestEnv) outbox(t *testing.T, recipient string, eventType constants.NotificationEventType) []models.NotificationEvent {
	t.Helper()
	rows, err := env.outboxRepo.List(repository.NotificationEventFilter{
		Recipient: strings.ToLower(recipient),
		EventType: eventType,
	})
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	return rows
}

func (env *courierTestEnv) countParcelsForRequest(t *testing.T, requestID uint) int64 {
	t.Helper()
	var count int64
	if err := env.db.Model(&models.Parcel{}).Where("parcel_request_id = ?", requestID).Count(&count).Error; err != nil {
		t.Fatalf("count parcels failed: %v", err)
	}
	return count
}

func (env *courierTestEnv) reloadParcel(t *testing.T, id uint) *models.Parcel {
	t.Helper()
	parcel, err := env.parcelRepo.GetByID(id)
	if err != nil || parcel == nil {
		t.Fatalf("reload parcel %d failed: %v", id, err)
	}
	return parcel
}
