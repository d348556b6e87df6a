package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MobileDevice represents a tablet paired to a daycare unit. The
// device logs in with its id plus a PIN; the PIN is stored as an
// Argon2id hash.
type MobileDevice struct {
	// ID is the unique device identifier handed out at pairing time.
	ID uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	// Name is the display name shown in the unit's device list.
	Name string `gorm:"size:100;not null"`
	// UnitID is the daycare unit this device is scoped to.
	UnitID string `gorm:"size:36;not null;index"`
	// PinHash is the Argon2id hash of the device PIN.
	PinHash string `gorm:"size:255;not null"`
	// Active indicates whether the device may still log in.
	Active bool
	// CreatedAt is the pairing timestamp (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the last modification timestamp (managed by GORM).
	UpdatedAt time.Time
}

// HashPin hashes a plaintext device PIN using the Argon2id algorithm.
func HashPin(pin string) string {
	hashedPin, err := argon2id.CreateHash(pin, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash pin: %v", err)
	}

	return hashedPin
}

// VerifyPin verifies a plaintext PIN against the stored hash.
// Returns true if the PIN matches, false otherwise.
func (d *MobileDevice) VerifyPin(pin string) bool {
	match, err := argon2id.ComparePasswordAndHash(pin, d.PinHash)
	if err != nil {
		log.Error().Msgf("failed to verify pin: %v", err)
		return false
	}

	return match
}
