package bookings

import (
	"log"
	"testing"
	"time"

	"replate/src/db"
	"replate/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: conn,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

// The summary view is rebuilt with a real DELETE, not a soft delete: the
// unique index on booking_id would still hold soft-deleted rows and the
// re-insert of the same booking ids would collide with them.
func TestRefreshSummariesHardDeletes(t *testing.T) {
	gormDB, mock := newMockDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "listing_id", "provider_id", "recipient_id", "recipient_name", "requested_quantity", "status", "requested_at"}).
			AddRow(1, 7, 10, 20, "Ana", 3, "approved", time.Now()))
	mock.ExpectExec(`DELETE FROM "booking_summaries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "booking_summaries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := gormDB.Transaction(func(tx *gorm.DB) error {
		return refreshSummaries(tx, 7)
	})
	assert.Nil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestVerifyCollectionClaimedListing(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	code := "123456"
	provider := types.Principal{UserID: 10, Role: types.ROLE_PROVIDER}

	bookingRows := func() *sqlmock.Rows {
		return sqlmock.NewRows(
			[]string{"id", "listing_id", "provider_id", "recipient_id", "status", "collection_code", "qr_code_expiry"}).
			AddRow(1, 3, 10, 20, "approved", code, expiry)
	}
	sealQR := func(t *testing.T) string {
		key, err := credentialKey()
		assert.Nil(t, err)
		qr, err := SealCredential(key, CredentialPayload{BookingID: 1, RecipientID: 20, ListingID: 3, IssuedAt: time.Now()})
		assert.Nil(t, err)
		return qr
	}

	t.Run("QR at the right listing verifies", func(t *testing.T) {
		gormDB, mock := newMockDB()
		db.NewDB(gormDB)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectQuery(`SELECT \* FROM "bookings"`).WillReturnRows(bookingRows())
		mock.ExpectQuery(`SELECT \* FROM "food_listings"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		qr := sealQR(t)
		booking, err := VerifyCollection(provider, types.VerifyCollectionRequestBody{QRData: &qr, ListingID: 3})
		assert.Nil(t, err)
		assert.Equal(t, uint(1), booking.ID)
	})

	t.Run("QR at another provider's listing fails", func(t *testing.T) {
		gormDB, mock := newMockDB()
		db.NewDB(gormDB)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectQuery(`SELECT \* FROM "bookings"`).WillReturnRows(bookingRows())
		mock.ExpectQuery(`SELECT \* FROM "food_listings"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		qr := sealQR(t)
		_, err := VerifyCollection(provider, types.VerifyCollectionRequestBody{QRData: &qr, ListingID: 4})
		assert.True(t, types.IsKind(err, types.ErrCredential))
		assert.Equal(t, "provider_mismatch", types.ErrorCode(err))
	})
}
