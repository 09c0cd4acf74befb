package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/elvish-ishaan/dotformer/internal/pkg/billing"
	"github.com/elvish-ishaan/dotformer/internal/pkg/jobqueue"
	"github.com/elvish-ishaan/dotformer/internal/pkg/usercontext"
)

// BillingController serves usage summaries, plans, subscriptions and bills.
type BillingController struct {
	svc   *billing.Service
	queue *jobqueue.Queue
}

// NewBillingController creates the billing controller.
func NewBillingController(svc *billing.Service, queue *jobqueue.Queue) *BillingController {
	return &BillingController{svc: svc, queue: queue}
}

// GetCurrentUsage returns the user's running-month usage and estimated cost.
func (bc *BillingController) GetCurrentUsage(c *fiber.Ctx) error {
	summary, err := bc.svc.CurrentUsage(usercontext.GetUserID(c))
	if err != nil {
		fiberlog.Errorf("Error loading usage summary: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load usage"})
	}
	return c.JSON(fiber.Map{"success": true, "usage": summary})
}

// GetBillingHistory returns one page of the user's bills.
func (bc *BillingController) GetBillingHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	offset := c.QueryInt("offset", 0)

	history, err := bc.svc.BillingHistory(usercontext.GetUserID(c), limit, offset)
	if err != nil {
		fiberlog.Errorf("Error loading billing history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load billing history"})
	}
	return c.JSON(fiber.Map{"success": true, "history": history})
}

// GetPricingPlans lists the active pricing plans.
func (bc *BillingController) GetPricingPlans(c *fiber.Ctx) error {
	plans, err := bc.svc.GetPricingPlans()
	if err != nil {
		fiberlog.Errorf("Error loading pricing plans: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load plans"})
	}
	return c.JSON(fiber.Map{"success": true, "plans": plans})
}

// Subscribe puts the user on a pricing plan.
func (bc *BillingController) Subscribe(c *fiber.Ctx) error {
	var body struct {
		PlanID uint `json:"plan_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.PlanID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "plan_id is required"})
	}

	sub, err := bc.svc.Subscribe(usercontext.GetUserID(c), body.PlanID)
	if err != nil {
		if errors.Is(err, billing.ErrPlanNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Pricing plan not found"})
		}
		fiberlog.Errorf("Error subscribing user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to subscribe"})
	}
	return c.JSON(fiber.Map{"success": true, "subscription": sub})
}

// UpdatePaymentMethod stores the user's payment method reference.
func (bc *BillingController) UpdatePaymentMethod(c *fiber.Ctx) error {
	var body struct {
		PaymentMethodID string `json:"payment_method_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.PaymentMethodID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "payment_method_id is required"})
	}

	user, err := bc.svc.UpdatePaymentMethod(usercontext.GetUserID(c), body.PaymentMethodID)
	if err != nil {
		fiberlog.Errorf("Error updating payment method: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update payment method"})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":                 user.ID,
			"email":              user.Email,
			"name":               user.Name,
			"has_payment_method": user.HasPaymentMethod(),
		},
	})
}

// PayBill settles one of the user's pending bills.
func (bc *BillingController) PayBill(c *fiber.Ctx) error {
	billID, err := c.ParamsInt("id")
	if err != nil || billID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid bill id"})
	}

	bill, err := bc.svc.PayBill(uint(billID), usercontext.GetUserID(c), usercontext.IsAdmin(c))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrBillNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Bill not found"})
		case errors.Is(err, billing.ErrBillNotPending):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": err.Error()})
		default:
			fiberlog.Errorf("Error paying bill %d: %v", billID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Payment failed"})
		}
	}
	return c.JSON(fiber.Map{"success": true, "bill": bill})
}

// RunBillingNow enqueues a manual billing run. Admin only. Without an
// explicit period the previous calendar month is billed.
func (bc *BillingController) RunBillingNow(c *fiber.Ctx) error {
	var body struct {
		StartPeriod string `json:"start_period"`
		EndPeriod   string `json:"end_period"`
	}
	_ = c.BodyParser(&body)

	start, end := billing.PreviousMonthWindow(time.Now())
	if body.StartPeriod != "" && body.EndPeriod != "" {
		var err error
		start, err = time.Parse(time.RFC3339, body.StartPeriod)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid start_period"})
		}
		end, err = time.Parse(time.RFC3339, body.EndPeriod)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid end_period"})
		}
		if !end.After(start) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "end_period must be after start_period"})
		}
	}

	job, err := bc.queue.EnqueueBillingRun(start, end, true)
	if err != nil {
		fiberlog.Errorf("Error enqueueing billing run: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to start billing run"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "job_id": job.ID})
}
