package daemon

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/db/models"
)

func seed(cfg *config.Config, db *gorm.DB) {
	// Seed a demo device in dev mode if the device table is empty, so
	// the mobile login flow works out of the box.
	if !cfg.DevMode {
		return
	}

	var count int64
	db.Model(&models.MobileDevice{}).Count(&count)

	if count == 0 {
		device := models.MobileDevice{
			ID:      uuid.New(),
			Name:    "demo-tablet",
			UnitID:  "demo-unit",
			PinHash: models.HashPin("1234"),
			Active:  true,
		}

		db.Create(&device)

		log.Warn().Str("deviceID", device.ID.String()).Str("pin", "1234").
			Msg("dev mode: seeded demo mobile device")
	}
}
