// Package mobilelogin implements the unit tablet flows: PIN login for
// paired devices and device provisioning by an employee.
package mobilelogin

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/evaka-go/apigw/internal/auth"
	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/db/models"
	"github.com/evaka-go/apigw/internal/web/handler"
	authmw "github.com/evaka-go/apigw/internal/web/middleware/auth"
)

const (
	// Path is the path of the device login endpoint.
	Path = handler.RootPath + "auth/mobile"

	// PairPath is the path of the device provisioning endpoint.
	PairPath = Path + "/pair"

	// method is the audit and metrics label of this flow.
	method = "mobile-device"

	// pinDigits is the length of a generated device PIN.
	pinDigits = 6
)

// LoginRequest is the device login request body.
type LoginRequest struct {
	ID  string `json:"id"`
	Pin string `json:"pin"`
}

// PairRequest is the device provisioning request body.
type PairRequest struct {
	Name   string `json:"name"`
	UnitID string `json:"unitId"`
}

// PairResponse returns the provisioned device identity. The PIN is
// shown exactly once; only its hash is stored.
type PairResponse struct {
	ID  string `json:"id"`
	Pin string `json:"pin"`
}

// Service is the mobile device handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the mobile device handler.
var Handler = Service{}

// Init initializes the mobile device handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACFatalLogMsg)
		return nil
	}

	s.cfg = cfg
	s.db = db

	app.Post(Path, s.Login)
	app.Post(PairPath, authmw.RequireUserType(auth.UserTypeEmployee), s.Pair)

	return nil
}

// Login authenticates a paired device by id and PIN.
func (s *Service) Login(c *fiber.Ctx) error {
	request := new(LoginRequest)
	if err := c.BodyParser(request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	user, err := s.login(request)

	auth.CountLogin(method, err)
	s.audit(err, user)

	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		log.Error().Err(err).Msg("mobile device login failed")

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if err := handler.EstablishSession(c, s.cfg, *user); err != nil {
		log.Error().Err(err).Msg("failed to establish session")

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	log.Info().Str("method", method).Str("deviceID", user.ID).Msg("device logged in")

	return c.JSON(user)
}

func (s *Service) login(request *LoginRequest) (*auth.SessionUser, error) {
	deviceID, err := uuid.Parse(request.ID)
	if err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	var device models.MobileDevice
	if err := s.db.First(&device, "id = ?", deviceID.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidCredentials
		}

		return nil, err
	}

	if !device.Active || !device.VerifyPin(request.Pin) {
		return nil, auth.ErrInvalidCredentials
	}

	user := auth.NewMobileDeviceUser(device.ID.String(), device.UnitID)

	return &user, nil
}

// Pair provisions a new device for a unit. Guarded by the employee
// session requirement at route registration.
func (s *Service) Pair(c *fiber.Ctx) error {
	request := new(PairRequest)
	if err := c.BodyParser(request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if request.Name == "" || request.UnitID == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	pin, err := generatePin()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate device pin")

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	device := models.MobileDevice{
		ID:      uuid.New(),
		Name:    request.Name,
		UnitID:  request.UnitID,
		PinHash: models.HashPin(pin),
		Active:  true,
	}

	if err := s.db.Create(&device).Error; err != nil {
		log.Error().Err(err).Msg("failed to store paired device")

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	employee, _ := authmw.CurrentUser(c)
	log.Info().Str("deviceID", device.ID.String()).Str("unitID", device.UnitID).
		Str("pairedBy", employee.ID).Msg("mobile device paired")

	return c.Status(fiber.StatusCreated).JSON(PairResponse{
		ID:  device.ID.String(),
		Pin: pin,
	})
}

// generatePin draws a uniform random PIN of pinDigits digits.
func generatePin() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < pinDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", pinDigits, n), nil
}

func (s *Service) audit(loginErr error, user *auth.SessionUser) {
	userID := ""
	if user != nil {
		userID = user.ID
	}

	if err := s.db.Create(models.NewLoginAudit(method, loginErr, userID)).Error; err != nil {
		log.Error().Err(err).Msg("failed to write login audit entry")
	}
}
