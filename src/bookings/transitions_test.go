package bookings

import (
	"testing"
	"time"

	"replate/src/models"
	"replate/src/types"

	"github.com/stretchr/testify/assert"
)

func TestParseTransitionAction(t *testing.T) {
	for s, want := range map[string]TransitionAction{
		"approve": ActionApprove,
		"reject":  ActionReject,
		"collect": ActionCollect,
		"cancel":  ActionCancel,
		"rate":    ActionRate,
	} {
		got, err := ParseTransitionAction(s)
		assert.Nil(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, s, got.String())
	}

	_, err := ParseTransitionAction("archive")
	assert.True(t, types.IsKind(err, types.ErrValidation))
	assert.Equal(t, "bad_action", types.ErrorCode(err))
}

func TestTransitionAllowed(t *testing.T) {
	allowed := map[types.BookingStatus][]TransitionAction{
		types.BOOKING_PENDING:   {ActionApprove, ActionReject, ActionCancel},
		types.BOOKING_APPROVED:  {ActionCollect, ActionCancel},
		types.BOOKING_COLLECTED: {ActionRate},
		types.BOOKING_REJECTED:  {},
		types.BOOKING_CANCELLED: {},
	}
	actions := []TransitionAction{ActionApprove, ActionReject, ActionCollect, ActionCancel, ActionRate}

	for from, legal := range allowed {
		legalSet := map[TransitionAction]bool{}
		for _, a := range legal {
			legalSet[a] = true
		}
		for _, action := range actions {
			assert.Equalf(t, legalSet[action], transitionAllowed(from, action),
				"%s from %s", action, from)
		}
	}
}

func TestAuthorizeTransition(t *testing.T) {
	booking := &models.Booking{ID: 1, ProviderID: 10, RecipientID: 20}
	provider := types.Principal{UserID: 10, Role: types.ROLE_PROVIDER}
	recipient := types.Principal{UserID: 20, Role: types.ROLE_RECIPIENT}
	stranger := types.Principal{UserID: 30, Role: types.ROLE_RECIPIENT}

	t.Run("provider actions", func(t *testing.T) {
		for _, action := range []TransitionAction{ActionApprove, ActionReject, ActionCollect} {
			assert.Nil(t, authorizeTransition(provider, action, booking))
			err := authorizeTransition(recipient, action, booking)
			assert.True(t, types.IsKind(err, types.ErrAuthorization))
		}
	})

	t.Run("cancel by either party", func(t *testing.T) {
		assert.Nil(t, authorizeTransition(provider, ActionCancel, booking))
		assert.Nil(t, authorizeTransition(recipient, ActionCancel, booking))
		err := authorizeTransition(stranger, ActionCancel, booking)
		assert.True(t, types.IsKind(err, types.ErrAuthorization))
	})

	t.Run("rate by recipient only", func(t *testing.T) {
		assert.Nil(t, authorizeTransition(recipient, ActionRate, booking))
		err := authorizeTransition(provider, ActionRate, booking)
		assert.True(t, types.IsKind(err, types.ErrAuthorization))
	})
}

func TestVerifyForCollect(t *testing.T) {
	now := time.Now()
	code := "111222"
	wrong := "999999"
	expiry := now.Add(time.Hour)

	newBooking := func() *models.Booking {
		return &models.Booking{
			ID:             4,
			ListingID:      5,
			ProviderID:     10,
			RecipientID:    20,
			Status:         types.BOOKING_APPROVED,
			CollectionCode: &code,
			QRCodeExpiry:   &expiry,
		}
	}

	t.Run("missing credential", func(t *testing.T) {
		err := verifyForCollect(newBooking(), TransitionCommand{Action: ActionCollect}, 10, now)
		assert.Equal(t, "missing_credential", types.ErrorCode(err))
	})

	t.Run("backup code match", func(t *testing.T) {
		cmd := TransitionCommand{Action: ActionCollect, CollectionCode: &code}
		assert.Nil(t, verifyForCollect(newBooking(), cmd, 10, now))
	})

	t.Run("backup code mismatch", func(t *testing.T) {
		cmd := TransitionCommand{Action: ActionCollect, CollectionCode: &wrong}
		err := verifyForCollect(newBooking(), cmd, 10, now)
		assert.Equal(t, "credential_mismatch", types.ErrorCode(err))
	})

	t.Run("QR payload for the booking", func(t *testing.T) {
		key, _ := credentialKey()
		qr, err := SealCredential(key, CredentialPayload{BookingID: 4, RecipientID: 20, ListingID: 5, IssuedAt: now})
		assert.Nil(t, err)
		cmd := TransitionCommand{Action: ActionCollect, QRData: &qr}
		assert.Nil(t, verifyForCollect(newBooking(), cmd, 10, now))
	})

	t.Run("QR payload for another booking", func(t *testing.T) {
		key, _ := credentialKey()
		qr, err := SealCredential(key, CredentialPayload{BookingID: 99, RecipientID: 20, ListingID: 5, IssuedAt: now})
		assert.Nil(t, err)
		cmd := TransitionCommand{Action: ActionCollect, QRData: &qr}
		err = verifyForCollect(newBooking(), cmd, 10, now)
		assert.Equal(t, "credential_mismatch", types.ErrorCode(err))
	})

	t.Run("expired credential fails even with the right code", func(t *testing.T) {
		b := newBooking()
		past := now.Add(-time.Minute)
		b.QRCodeExpiry = &past
		cmd := TransitionCommand{Action: ActionCollect, CollectionCode: &code}
		err := verifyForCollect(b, cmd, 10, now)
		assert.Equal(t, "credential_expired", types.ErrorCode(err))
	})
}
