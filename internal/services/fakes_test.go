package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/database"
	"github.com/tidyhome/booking-backend/internal/models"
	"github.com/tidyhome/booking-backend/pkg/payment"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func intPtr(i int) *int { return &i }

// fakeCatalog serves a fixed set of services
type fakeCatalog struct {
	services map[string]*models.Service
	err      error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{services: map[string]*models.Service{
		"Regular": {ID: 1, Code: "Regular", Name: "Regular Cleaning", BasePrice: decimal.NewFromInt(50), Active: true},
		"Deep":    {ID: 2, Code: "Deep", Name: "Deep Cleaning", BasePrice: decimal.NewFromInt(90), Active: true},
	}}
}

func (c *fakeCatalog) GetActiveByCode(_ context.Context, code string) (*models.Service, error) {
	if c.err != nil {
		return nil, c.err
	}
	s, ok := c.services[code]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (c *fakeCatalog) ListActive(context.Context) ([]models.Service, error) {
	out := make([]models.Service, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, *s)
	}
	return out, nil
}

// fakeUsers keeps users keyed by email
type fakeUsers struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]*models.User
	creates int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*models.User{}, byEmail: map[string]*models.User{}}
}

func (u *fakeUsers) add(name, email string) *models.User {
	user := &models.User{ID: uuid.New(), Name: name, Email: email, Phone: "555-0100"}
	u.byID[user.ID] = user
	u.byEmail[email] = user
	return user
}

func (u *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.byID[id], nil
}

func (u *fakeUsers) Upsert(_ context.Context, name, email, phone string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user, ok := u.byEmail[email]; ok {
		user.Name, user.Phone = name, phone
		return user, nil
	}
	u.creates++
	user := &models.User{ID: uuid.New(), Name: name, Email: email, Phone: phone}
	u.byID[user.ID] = user
	u.byEmail[email] = user
	return user, nil
}

func (u *fakeUsers) FindOrCreateByEmail(_ context.Context, name, email, phone string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user, ok := u.byEmail[email]; ok {
		return user, nil
	}
	u.creates++
	user := &models.User{ID: uuid.New(), Name: name, Email: email, Phone: phone}
	u.byID[user.ID] = user
	u.byEmail[email] = user
	return user, nil
}

// fakeBookings stores bookings and confirms them like the payment repository
type fakeBookings struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking
	catalog  *fakeCatalog
	payments map[string]*models.Payment
	err      error
}

func newFakeBookings(catalog *fakeCatalog) *fakeBookings {
	return &fakeBookings{
		bookings: map[uuid.UUID]*models.Booking{},
		catalog:  catalog,
		payments: map[string]*models.Payment{},
	}
}

func (b *fakeBookings) Create(_ context.Context, booking *models.Booking) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	cp := *booking
	b.bookings[booking.ID] = &cp
	return nil
}

func (b *fakeBookings) summary(bk *models.Booking) models.BookingSummary {
	s := models.BookingSummary{
		ID:        bk.ID,
		UserID:    bk.UserID,
		Date:      bk.Date,
		Time:      bk.Time,
		Price:     bk.Price,
		Status:    bk.Status,
		Beds:      bk.Beds,
		Baths:     bk.Baths,
		Freq:      bk.Freq,
		Extras:    bk.Extras,
		CreatedAt: bk.CreatedAt,
	}
	for _, svc := range b.catalog.services {
		if svc.ID == bk.ServiceID {
			s.ServiceCode, s.ServiceName = svc.Code, svc.Name
		}
	}
	return s
}

func (b *fakeBookings) GetSummary(_ context.Context, id uuid.UUID) (*models.BookingSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.bookings[id]
	if !ok {
		return nil, nil
	}
	s := b.summary(bk)
	return &s, nil
}

func (b *fakeBookings) ListByUser(_ context.Context, userID uuid.UUID) ([]models.BookingSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.BookingSummary
	for _, bk := range b.bookings {
		if bk.UserID == userID {
			out = append(out, b.summary(bk))
		}
	}
	return out, nil
}

// RecordSuccess mirrors the upsert + guarded status update of the repository
func (b *fakeBookings) RecordSuccess(_ context.Context, p *models.Payment) (*database.ReconcileResult, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := string(p.Provider) + "/" + p.ExternalID
	res := &database.ReconcileResult{}
	if existing, ok := b.payments[key]; ok {
		existing.Status = p.Status
		res.PaymentID = existing.ID
	} else {
		cp := *p
		cp.ID = uuid.New()
		b.payments[key] = &cp
		res.PaymentID = cp.ID
		res.Inserted = true
	}

	if bk, ok := b.bookings[p.BookingID]; ok && bk.Status == models.BookingStatusPending {
		bk.Status = models.BookingStatusConfirmed
		res.Confirmed = true
	}
	return res, nil
}

// addPending stores a pending booking directly
func (b *fakeBookings) addPending(userID uuid.UUID, serviceID int64, price string) *models.Booking {
	bk := &models.Booking{
		ID:        uuid.New(),
		UserID:    userID,
		ServiceID: serviceID,
		Beds:      2,
		Baths:     1,
		Freq:      "weekly",
		Date:      "2026-11-02",
		Time:      "09:00",
		Address:   "12 Main Street",
		Zip:       "10001",
		Price:     decimal.RequireFromString(price),
		Status:    models.BookingStatusPending,
		CreatedAt: time.Now(),
	}
	b.bookings[bk.ID] = bk
	return bk
}

// fakeAudits records audit entries in memory
type fakeAudits struct {
	mu      sync.Mutex
	entries []*models.PaymentAudit
	err     error
}

func (a *fakeAudits) Log(_ context.Context, audit *models.PaymentAudit) error {
	if a.err != nil {
		return a.err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, audit)
	return nil
}

func (a *fakeAudits) CheckDuplicate(_ context.Context, provider models.PaymentProvider, eventID string, eventType models.PaymentEventType) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if eventID == "" {
		return false, nil
	}
	for _, e := range a.entries {
		if e.Provider == provider && e.EventType == eventType && e.EventID != nil && *e.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (a *fakeAudits) count(eventType models.PaymentEventType) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.entries {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

// fakePublisher captures published events
type fakePublisher struct {
	mu     sync.Mutex
	events map[string][]any
	err    error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{events: map[string][]any{}}
}

func (p *fakePublisher) PublishJSON(_ context.Context, key string, v any) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[key] = append(p.events[key], v)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[key])
}

// fakeCardGateway records intent requests
type fakeCardGateway struct {
	requests []payment.IntentRequest
	intents  map[string]*payment.Intent
	err      error
}

func (g *fakeCardGateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return &payment.Intent{
		ID:           id,
		ClientSecret: id + "_secret_abc",
		Amount:       req.Amount,
		Currency:     strings.ToLower(req.Currency),
		Status:       "requires_payment_method",
		Metadata:     req.Metadata,
	}, nil
}

func (g *fakeCardGateway) RetrieveIntent(_ context.Context, id string) (*payment.Intent, error) {
	if g.err != nil {
		return nil, g.err
	}
	intent, ok := g.intents[id]
	if !ok {
		return nil, &payment.ProviderError{Provider: "stripe", Op: "retrieve_intent", StatusCode: 404, Err: errors.New("no such payment_intent")}
	}
	return intent, nil
}

// fakeRedirectGateway records preference requests and serves payments
type fakeRedirectGateway struct {
	requests []payment.PreferenceRequest
	payments map[string]*payment.RedirectPayment
	lookups  int
	err      error
}

func (g *fakeRedirectGateway) CreatePreference(_ context.Context, req payment.PreferenceRequest) (*payment.Preference, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	return &payment.Preference{ID: "pref-123", RedirectURL: "https://checkout.example/pref-123"}, nil
}

func (g *fakeRedirectGateway) GetPayment(_ context.Context, id string) (*payment.RedirectPayment, error) {
	g.lookups++
	if g.err != nil {
		return nil, g.err
	}
	p, ok := g.payments[id]
	if !ok {
		return nil, &payment.ProviderError{Provider: "mercadopago", Op: "get_payment", StatusCode: 404, Err: errors.New("payment not found")}
	}
	return p, nil
}

// fakeVerifier decodes events without signature checks
type fakeVerifier struct {
	events map[string]*payment.Event
}

func (v *fakeVerifier) ConstructEvent(payload []byte, header string) (*payment.Event, error) {
	if header != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	e, ok := v.events[string(payload)]
	if !ok {
		return nil, errors.New("undecodable event")
	}
	return e, nil
}
