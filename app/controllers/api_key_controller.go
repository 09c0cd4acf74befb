package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/elvish-ishaan/dotformer/app/models"
	"github.com/elvish-ishaan/dotformer/app/repository"
	"github.com/elvish-ishaan/dotformer/internal/pkg/usercontext"
)

// APIKeyController manages the user's API keys.
type APIKeyController struct {
	keys repository.APIKeyRepository
}

// NewAPIKeyController creates the API key controller.
func NewAPIKeyController(keys repository.APIKeyRepository) *APIKeyController {
	return &APIKeyController{keys: keys}
}

// CreateKey generates a new API key for the user. The raw secret appears in
// this response only; afterwards only the hash is stored.
func (kc *APIKeyController) CreateKey(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
	}
	_ = c.BodyParser(&body)

	key, rawSecret, err := models.NewAPIKey(usercontext.GetUserID(c), body.Name)
	if err != nil {
		fiberlog.Errorf("Error generating API key: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to generate key"})
	}
	if err := kc.keys.Create(key); err != nil {
		fiberlog.Errorf("Error saving API key: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save key"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"key":     key,
		"secret":  rawSecret,
		"message": "Store this secret now, it cannot be retrieved again",
	})
}

// ListKeys returns the user's API keys (hashes excluded by the model).
func (kc *APIKeyController) ListKeys(c *fiber.Ctx) error {
	keys, err := kc.keys.GetByUserID(usercontext.GetUserID(c))
	if err != nil {
		fiberlog.Errorf("Error listing API keys: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list keys"})
	}
	return c.JSON(fiber.Map{"success": true, "keys": keys})
}

// RevokeKey revokes one of the user's API keys. The record is kept so usage
// records referencing it stay resolvable.
func (kc *APIKeyController) RevokeKey(c *fiber.Ctx) error {
	keyID, err := c.ParamsInt("id")
	if err != nil || keyID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid key id"})
	}

	key, err := kc.keys.GetByID(uint(keyID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Key not found"})
		}
		fiberlog.Errorf("Error loading API key %d: %v", keyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load key"})
	}

	if key.UserID != usercontext.GetUserID(c) && !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Key not found"})
	}

	if key.RevokedAt == nil {
		key.Revoke()
		if err := kc.keys.Update(key); err != nil {
			fiberlog.Errorf("Error revoking API key %d: %v", keyID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to revoke key"})
		}
	}

	return c.JSON(fiber.Map{"success": true, "message": "Key revoked"})
}
