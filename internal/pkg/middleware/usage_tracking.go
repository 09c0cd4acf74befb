package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/elvish-ishaan/dotformer/app/models"
	"github.com/elvish-ishaan/dotformer/internal/pkg/metering"
	"github.com/elvish-ishaan/dotformer/internal/pkg/usercontext"
)

// UsageTracker wraps metered routes: it gates the request on the quota
// enforcer and records the usage event after a successful response.
type UsageTracker struct {
	enforcer *metering.Enforcer
	meter    *metering.Meter
}

// NewUsageTracker creates the usage tracking middleware factory.
func NewUsageTracker(enforcer *metering.Enforcer, meter *metering.Meter) *UsageTracker {
	return &UsageTracker{enforcer: enforcer, meter: meter}
}

// Track returns a middleware metering the given operation type. The quota
// check runs before the handler; recording happens after it and never affects
// the response.
func (t *UsageTracker) Track(operationType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)

		if uc.IsLoggedIn {
			decision, err := t.enforcer.Check(uc.UserID, operationType)
			if err != nil {
				log.Errorf("[UsageTracking] Quota check failed for user %d: %v", uc.UserID, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "internal_server_error",
					"message": "Quota check failed",
				})
			}
			if !decision.Allowed {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error":   "quota_exceeded",
					"message": decision.Reason,
				})
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		if uc.IsLoggedIn && c.Response().StatusCode() < fiber.StatusBadRequest {
			quantity, unit := quantityFor(c, operationType)
			var resourceID *string
			if id := c.Params("id"); id != "" {
				resourceID = &id
			}
			t.meter.Record(metering.RecordInput{
				UserID:        uc.UserID,
				APIKeyID:      uc.APIKeyID,
				OperationType: operationType,
				ResourceID:    resourceID,
				Quantity:      quantity,
				Unit:          unit,
			})
		}
		return nil
	}
}

// quantityFor derives the billed quantity and unit for one request. Uploads
// bill the file byte size, storage events the byte size announced in the
// request body, everything else one call.
func quantityFor(c *fiber.Ctx, operationType string) (int64, string) {
	switch operationType {
	case models.OperationUpload:
		if file, err := c.FormFile("file"); err == nil && file != nil {
			return file.Size, models.UnitBytes
		}
		return int64(len(c.Body())), models.UnitBytes
	case models.OperationStorage:
		var body struct {
			FileSize int64 `json:"fileSize"`
		}
		if err := c.BodyParser(&body); err == nil && body.FileSize > 0 {
			return body.FileSize, models.UnitBytes
		}
		return 1, models.UnitBytes
	case models.OperationTransform:
		return 1, models.UnitTransformations
	default:
		return 1, models.UnitCalls
	}
}
