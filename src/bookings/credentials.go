package bookings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"math/big"
	"os"
	"replate/src/config"
	"replate/src/models"
	"replate/src/types"
	"time"
)

// CredentialPayload is what the QR code carries, sealed with AES-GCM so a
// scanned code cannot be forged or replayed against another listing.
type CredentialPayload struct {
	BookingID   uint      `json:"booking_id"`
	RecipientID uint      `json:"recipient_id"`
	ListingID   uint      `json:"listing_id"`
	IssuedAt    time.Time `json:"issued_at"`
}

func credentialKey() ([]byte, error) {
	keyEnv := os.Getenv("API_QRC_SECRET")
	key, err := hex.DecodeString(keyEnv)
	if err != nil {
		return nil, err
	}
	return key, nil
}

func EncryptMessage(key []byte, message string) (string, error) {
	plaintext := []byte(message)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	cipherText := gcm.Seal(nonce, nonce, plaintext, nil)
	encodedString := hex.EncodeToString(cipherText)

	return encodedString, nil
}

func DecryptMessage(key []byte, message string) (*string, error) {
	cipherText, err := hex.DecodeString(message)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(cipherText) < gcm.NonceSize() {
		return nil, types.NewDomainError(types.ErrCredential, "credential_malformed", "QR payload is malformed")
	}
	decryptedData, err := gcm.Open(nil, cipherText[:gcm.NonceSize()], cipherText[gcm.NonceSize():], nil)
	if err != nil {
		return nil, err
	}
	decodedString := string(decryptedData)

	return &decodedString, nil
}

// SealCredential serializes and encrypts a payload into the opaque string
// rendered as the QR code.
func SealCredential(key []byte, payload CredentialPayload) (string, error) {
	raw, err := json.Marshal(&payload)
	if err != nil {
		return "", err
	}
	return EncryptMessage(key, string(raw))
}

// OpenCredential reverses SealCredential.
func OpenCredential(key []byte, qrData string) (*CredentialPayload, error) {
	message, err := DecryptMessage(key, qrData)
	if err != nil {
		return nil, types.NewDomainError(types.ErrCredential, "credential_malformed", "QR payload could not be decoded")
	}
	var payload CredentialPayload
	if err := json.Unmarshal([]byte(*message), &payload); err != nil {
		return nil, types.NewDomainError(types.ErrCredential, "credential_malformed", "QR payload could not be decoded")
	}
	return &payload, nil
}

// NewCollectionCode returns the 6-digit backup code presented when a
// recipient cannot show the QR image.
func NewCollectionCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	code := n.Int64()
	digits := []byte{
		byte('0' + code/100000%10),
		byte('0' + code/10000%10),
		byte('0' + code/1000%10),
		byte('0' + code/100%10),
		byte('0' + code/10%10),
		byte('0' + code%10),
	}
	return string(digits), nil
}

// IssueCredential mints the collection credential onto the booking: the
// backup code, the sealed QR payload, and the absolute expiry timestamp.
// The caller persists the booking.
func IssueCredential(b *models.Booking, now time.Time) error {
	key, err := credentialKey()
	if err != nil {
		return err
	}
	code, err := NewCollectionCode()
	if err != nil {
		return err
	}
	qrData, err := SealCredential(key, CredentialPayload{
		BookingID:   b.ID,
		RecipientID: b.RecipientID,
		ListingID:   b.ListingID,
		IssuedAt:    now,
	})
	if err != nil {
		return err
	}
	expiry := now.Add(config.CredentialTTL)
	b.CollectionCode = &code
	b.QRCode = &qrData
	b.QRCodeExpiry = &expiry
	return nil
}

// CheckCredential validates a loaded booking against the claimed
// collection context. Pure; the engine calls it under the row lock before
// permitting the collect transition.
func CheckCredential(b *models.Booking, claimedProviderID, claimedListingID uint, now time.Time) error {
	if b.Status == types.BOOKING_COLLECTED {
		return types.NewDomainError(types.ErrCredential, "already_collected",
			"booking [%d] has already been collected", b.ID)
	}
	if b.Status != types.BOOKING_APPROVED {
		return types.NewDomainError(types.ErrCredential, "not_collectable",
			"booking [%d] is %s, not approved for collection", b.ID, b.Status)
	}
	if b.ProviderID != claimedProviderID || b.ListingID != claimedListingID {
		return types.NewDomainError(types.ErrCredential, "provider_mismatch",
			"credential does not belong to this provider's listing")
	}
	if b.QRCodeExpiry == nil || !b.QRCodeExpiry.After(now) {
		return types.NewDomainError(types.ErrCredential, "credential_expired",
			"collection credential has expired")
	}
	return nil
}
