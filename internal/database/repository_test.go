package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidyhome/booking-backend/internal/models"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

var summaryColumns = []string{
	"id", "user_id", "booking_date", "booking_time", "price", "status",
	"beds", "baths", "freq", "extras", "created_at", "service_code", "service_name",
}

func TestServiceRepository_GetActiveByCode(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewServiceRepository(db)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM services WHERE code = \\$1 AND active = TRUE").
			WithArgs("Regular").
			WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "description", "base_price", "active"}).
				AddRow(int64(1), "Regular", "Regular Cleaning", nil, "50.00", true))

		service, err := repo.GetActiveByCode(ctx, "Regular")
		require.NoError(t, err)
		require.NotNil(t, service)
		assert.Equal(t, int64(1), service.ID)
		assert.True(t, decimal.NewFromInt(50).Equal(service.BasePrice))
		assert.Nil(t, service.Description)
	})

	t.Run("Missing or inactive", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM services").
			WithArgs("Office").
			WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "description", "base_price", "active"}))

		service, err := repo.GetActiveByCode(ctx, "Office")
		require.NoError(t, err)
		assert.Nil(t, service)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRepository_ListActive(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewServiceRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM services WHERE active = TRUE ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "description", "base_price", "active"}).
			AddRow(int64(1), "Regular", "Regular Cleaning", "Routine", "50.00", true).
			AddRow(int64(2), "Deep", "Deep Cleaning", nil, "90.00", true))

	services, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Deep", services[1].Code)
	assert.Equal(t, "Routine", *services[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Upsert(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	userID := uuid.New()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO users (.+) ON CONFLICT \\(email\\) DO UPDATE\\s+SET name = EXCLUDED.name").
			WithArgs(sqlmock.AnyArg(), "Ana", "ana@example.com", "555-0101").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "created_at", "updated_at"}).
				AddRow(userID.String(), "Ana", "ana@example.com", "555-0101", now, now))

		user, err := repo.Upsert(context.Background(), "Ana", "ana@example.com", "555-0101")
		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(fmt.Errorf("database error"))

		user, err := repo.Upsert(context.Background(), "Ana", "ana@example.com", "555-0101")
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "failed to upsert user")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindOrCreateByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO users (.+) ON CONFLICT \\(email\\) DO UPDATE SET email = EXCLUDED.email").
		WithArgs(sqlmock.AnyArg(), "Guest", "guest@example.com", "N/A").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "created_at", "updated_at"}).
			AddRow(userID.String(), "Existing Name", "guest@example.com", "555", now, now))

	user, err := repo.FindOrCreateByEmail(context.Background(), "Guest", "guest@example.com", "N/A")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "Existing Name", user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "created_at", "updated_at"}))

	user, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBookingRepository(db)
	now := time.Now()

	booking := &models.Booking{
		UserID:    uuid.New(),
		ServiceID: 1,
		Beds:      2,
		Baths:     1,
		Freq:      "weekly",
		Extras:    pq.StringArray{"oven"},
		Date:      "2026-05-01",
		Time:      "09:30",
		Address:   "12 Main Street",
		Zip:       "10001",
		Price:     decimal.RequireFromString("66.30"),
	}

	mock.ExpectQuery("INSERT INTO bookings (.+) RETURNING created_at, updated_at").
		WithArgs(sqlmock.AnyArg(), booking.UserID, int64(1), 2, 1, "weekly", sqlmock.AnyArg(),
			"2026-05-01", "09:30", "12 Main Street", "10001", sqlmock.AnyArg(), nil, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, repo.Create(context.Background(), booking))
	assert.NotEqual(t, uuid.Nil, booking.ID)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, now, booking.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_GetSummary(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBookingRepository(db)
	id, userID := uuid.New(), uuid.New()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM bookings b\\s+JOIN services s ON s.id = b.service_id\\s+WHERE b.id = \\$1").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(summaryColumns).AddRow(
				id.String(), userID.String(), "2026-05-01", "09:30", "66.30", "pending",
				2, 1, "weekly", []byte("{oven,windows}"), time.Now(), "Regular", "Regular Cleaning"))

		summary, err := repo.GetSummary(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, summary)
		assert.Equal(t, "Regular Cleaning", summary.ServiceName)
		assert.Equal(t, pq.StringArray{"oven", "windows"}, summary.Extras)
		assert.True(t, summary.IsPending())
		assert.Equal(t, "66.3", summary.Price.String())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM bookings b").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(summaryColumns))

		summary, err := repo.GetSummary(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, summary)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListByUser(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBookingRepository(db)
	userID := uuid.New()

	mock.ExpectQuery("WHERE b.user_id = \\$1 ORDER BY b.created_at DESC").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(summaryColumns).
			AddRow(uuid.New().String(), userID.String(), "2026-05-02", "10:00", "50.00", "confirmed", 0, 1, "once", []byte("{}"), time.Now(), "Regular", "Regular Cleaning").
			AddRow(uuid.New().String(), userID.String(), "2026-05-01", "09:30", "66.30", "pending", 2, 1, "weekly", []byte("{}"), time.Now().Add(-time.Hour), "Regular", "Regular Cleaning"))

	bookings, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, models.BookingStatusConfirmed, bookings[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_RecordSuccess(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPaymentRepository(db)
	bookingID := uuid.New()

	newPayment := func() *models.Payment {
		return &models.Payment{
			BookingID:  bookingID,
			Provider:   models.ProviderStripe,
			ExternalID: "pi_123",
			Amount:     decimal.RequireFromString("66.30"),
			Currency:   "USD",
			Status:     "succeeded",
			Raw:        models.RawJSON(`{"id":"pi_123"}`),
		}
	}

	t.Run("First delivery inserts and confirms", func(t *testing.T) {
		paymentID := uuid.New()
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO payments (.+) ON CONFLICT \\(provider, external_id\\) DO UPDATE").
			WithArgs(sqlmock.AnyArg(), bookingID, "stripe", "pi_123", sqlmock.AnyArg(), "USD", "succeeded", `{"id":"pi_123"}`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow(paymentID.String(), true))
		mock.ExpectExec("UPDATE bookings SET status = 'confirmed'(.+)AND status = 'pending'").
			WithArgs(bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := repo.RecordSuccess(context.Background(), newPayment())
		require.NoError(t, err)
		assert.Equal(t, paymentID, result.PaymentID)
		assert.True(t, result.Inserted)
		assert.True(t, result.Confirmed)
	})

	t.Run("Redelivery updates in place", func(t *testing.T) {
		paymentID := uuid.New()
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO payments").
			WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow(paymentID.String(), false))
		mock.ExpectExec("UPDATE bookings SET status = 'confirmed'").
			WithArgs(bookingID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		result, err := repo.RecordSuccess(context.Background(), newPayment())
		require.NoError(t, err)
		assert.False(t, result.Inserted)
		assert.False(t, result.Confirmed)
	})

	t.Run("Failure rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO payments").
			WillReturnError(fmt.Errorf("connection reset"))
		mock.ExpectRollback()

		result, err := repo.RecordSuccess(context.Background(), newPayment())
		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "failed to upsert payment")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentAuditRepository(t *testing.T) {
	db, mock := setupMockDB(t)
	logger := logrus.New()
	repo := NewPaymentAuditRepository(db, logger)
	ctx := context.Background()

	t.Run("Log", func(t *testing.T) {
		audit := models.NewPaymentAudit(models.ProviderStripe, models.PaymentEventWebhookReceived).SetEventID("evt_1")

		mock.ExpectExec("INSERT INTO payment_audits").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Log(ctx, audit))
	})

	t.Run("Log nil", func(t *testing.T) {
		assert.Error(t, repo.Log(ctx, nil))
	})

	t.Run("CheckDuplicate", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT(.+) FROM payment_audits").
			WithArgs("stripe", "evt_1", "booking_confirmed").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		dup, err := repo.CheckDuplicate(ctx, models.ProviderStripe, "evt_1", models.PaymentEventBookingConfirmed)
		require.NoError(t, err)
		assert.True(t, dup)
	})

	t.Run("CheckDuplicate without event id", func(t *testing.T) {
		dup, err := repo.CheckDuplicate(ctx, models.ProviderStripe, "", models.PaymentEventBookingConfirmed)
		require.NoError(t, err)
		assert.False(t, dup)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
