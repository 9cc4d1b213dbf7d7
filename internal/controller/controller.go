package controller

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/quillmarket/order-service/internal/dto"
	"github.com/quillmarket/order-service/internal/middleware"
	"github.com/quillmarket/order-service/internal/service"
	pkgdto "github.com/quillmarket/order-service/pkg/dto"
	"github.com/quillmarket/order-service/pkg/errs"
	"github.com/rs/zerolog/log"
)

type Controller struct {
	orderService   service.OrderService
	paymentService service.PaymentService
}

func CreateOrderController(e *echo.Group, orderService service.OrderService, paymentService service.PaymentService, isLoggedIn echo.MiddlewareFunc) {
	c := Controller{
		orderService:   orderService,
		paymentService: paymentService,
	}

	e.POST("/orders", c.AddOrder, isLoggedIn)
	e.GET("/orders", c.GetOrders, isLoggedIn)
	e.GET("/orders/:id", c.GetOrder, isLoggedIn)
	e.PATCH("/orders/:id", c.UpdateOrder, isLoggedIn)
	e.POST("/orders/:id/transitions", c.RequestTransition, isLoggedIn)
	e.POST("/orders/:id/artifacts", c.AddArtifact, isLoggedIn)

	e.POST("/payments", c.InitiatePayment, isLoggedIn)
	e.GET("/payments/:id", c.GetPayment, isLoggedIn)
	e.POST("/payments/:id/confirmation", c.ConfirmPayment, isLoggedIn)
	e.DELETE("/payments/:id/polling", c.CancelPolling, isLoggedIn)

	// Provider callback, authenticated by its signature instead of a user
	// token.
	e.POST("/payments/notifications", c.PaymentWebhook)
}

func (c *Controller) AddOrder(e echo.Context) error {
	payload := dto.OrderRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Error().Err(err).Str("component", "AddOrder").Msg("")
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	resp, err := c.orderService.CreateOrder(e.Request().Context(), payload, middleware.ExtractActor(e))
	if err != nil {
		return writeServiceError(e, err)
	}

	return pkgdto.WriteSuccessResponse(e, "", resp)
}

func (c *Controller) GetOrders(e echo.Context) error {
	filter := pkgdto.Filter{}
	err := e.Bind(&filter)
	if err != nil {
		log.Error().Err(err).Str("component", "GetOrders").Msg("")
	}

	responsePayload, err := c.orderService.GetOrders(e.Request().Context(), filter)
	if err != nil {
		return writeServiceError(e, err)
	}

	return pkgdto.WriteSuccessResponse(e, "successfully retrieved orders", responsePayload)
}

func (c *Controller) GetOrder(e echo.Context) error {
	id, err := pathID(e)
	if err != nil {
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	resp, err := c.orderService.GetOrder(e.Request().Context(), id)
	if err != nil {
		return writeServiceError(e, err)
	}

	return pkgdto.WriteSuccessResponse(e, "", resp)
}

func (c *Controller) UpdateOrder(e echo.Context) error {
	id, err := pathID(e)
	if err != nil {
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	payload := dto.OrderUpdateRequest{}
	if err := e.Bind(&payload); err != nil {
		log.Error().Err(err).Str("component", "UpdateOrder").Msg("")
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	resp, err := c.orderService.UpdateOrder(e.Request().Context(), id, payload, middleware.ExtractActor(e))
	if err != nil {
		return writeServiceError(e, err)
	}

	return pkgdto.WriteSuccessResponse(e, "", resp)
}

func (c *Controller) RequestTransition(e echo.Context) error {
	id, err := pathID(e)
	if err != nil {
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	payload := dto.TransitionRequest{}
	if err := e.Bind(&payload); err != nil {
		log.Error().Err(err).Str("component", "RequestTransition").Msg("")
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	resp, err := c.orderService.RequestTransition(e.Request().Context(), id, payload, middleware.ExtractActor(e))
	if err != nil {
		return writeServiceError(e, err)
	}

	return pkgdto.WriteSuccessResponse(e, "", resp)
}

func (c *Controller) AddArtifact(e echo.Context) error {
	id, err := pathID(e)
	if err != nil {
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	payload := dto.ArtifactRequest{}
	if err := e.Bind(&payload); err != nil {
		log.Error().Err(err).Str("component", "AddArtifact").Msg("")
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	err = c.orderService.AddArtifact(e.Request().Context(), id, payload, middleware.ExtractActor(e))
	if err != nil {
		return writeServiceError(e, err)
	}

	return pkgdto.WriteSuccessResponse(e, "artifact recorded", nil)
}

func (c *Controller) InitiatePayment(e echo.Context) error {
	payload := dto.PaymentRequest{}
	if err := e.Bind(&payload); err != nil {
		log.Error().Err(err).Str("component", "InitiatePayment").Msg("")
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	resp, err := c.paymentService.InitiatePayment(e.Request().Context(), payload, middleware.ExtractActor(e))
	if err != nil {
		return writeServiceError(e, err)
	}

	return pkgdto.WriteSuccessResponse(e, "", resp)
}

func (c *Controller) GetPayment(e echo.Context) error {
	id, err := pathID(e)
	if err != nil {
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	resp, err := c.paymentService.GetPayment(e.Request().Context(), id)
	if err != nil {
		return writeServiceError(e, err)
	}

	return pkgdto.WriteSuccessResponse(e, "", resp)
}

func (c *Controller) ConfirmPayment(e echo.Context) error {
	id, err := pathID(e)
	if err != nil {
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	resp, err := c.paymentService.ConfirmByAdmin(e.Request().Context(), id, middleware.ExtractActor(e))
	if err != nil {
		return writeServiceError(e, err)
	}

	return pkgdto.WriteSuccessResponse(e, "", resp)
}

func (c *Controller) CancelPolling(e echo.Context) error {
	id, err := pathID(e)
	if err != nil {
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	if !c.paymentService.CancelPolling(id) {
		return pkgdto.WriteErrorResponse(e, errs.ErrNotFound, nil)
	}

	return pkgdto.WriteSuccessResponse(e, "polling cancelled", nil)
}

func (c *Controller) PaymentWebhook(e echo.Context) error {
	payload := dto.PaymentNotification{}
	if err := e.Bind(&payload); err != nil {
		log.Error().Err(err).Str("component", "PaymentWebhook").Msg("")
		return pkgdto.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	err := c.paymentService.HandleWebhook(e.Request().Context(), payload)
	if err != nil {
		return writeServiceError(e, err)
	}

	return pkgdto.WriteSuccessResponse(e, "", nil)
}

func pathID(e echo.Context) (int64, error) {
	return strconv.ParseInt(e.Param("id"), 10, 64)
}

// writeServiceError attaches structure the UI needs: submission-gate
// failures list each unmet requirement, below-minimum amounts carry the
// computed minimum.
func writeServiceError(e echo.Context, err error) error {
	var submissionErr *errs.SubmissionIncompleteError
	if errors.As(err, &submissionErr) {
		return pkgdto.WriteErrorResponse(e, err, submissionErr.Missing)
	}

	var belowMinErr *errs.AmountBelowMinimumError
	if errors.As(err, &belowMinErr) {
		return pkgdto.WriteErrorResponse(e, err, map[string]string{"minimum": belowMinErr.Minimum.StringFixed(2)})
	}

	var transitionErr *errs.TransitionError
	if errors.As(err, &transitionErr) {
		return pkgdto.WriteErrorResponse(e, err, map[string]string{
			"current_state":   transitionErr.CurrentState,
			"attempted_event": transitionErr.AttemptedEvent,
		})
	}

	return pkgdto.WriteErrorResponse(e, err, nil)
}
