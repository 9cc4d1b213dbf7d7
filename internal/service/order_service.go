package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quillmarket/order-service/config"
	"github.com/quillmarket/order-service/internal/domain"
	"github.com/quillmarket/order-service/internal/dto"
	"github.com/quillmarket/order-service/internal/pricing"
	"github.com/quillmarket/order-service/internal/repository"
	pkgdto "github.com/quillmarket/order-service/pkg/dto"
	"github.com/quillmarket/order-service/pkg/errs"
)

type OrderServiceImpl struct {
	repository repository.OrderRepository
	producer   EventProducer
	config     *config.Config
}

func CreateOrderService(repository repository.OrderRepository, producer EventProducer, config *config.Config) OrderService {
	return &OrderServiceImpl{
		repository: repository,
		producer:   producer,
		config:     config,
	}
}

func (s *OrderServiceImpl) CreateOrder(ctx context.Context, req dto.OrderRequest, actor domain.Actor) (resp dto.OrderResponse, err error) {
	entry, ok := pricing.Lookup(req.ServiceKey)
	if !ok {
		return resp, errs.ErrUnknownService
	}

	if req.Quantity <= 0 {
		return resp, errs.ErrClient
	}

	now := time.Now()
	deadline := time.Unix(req.Deadline, 0)
	if !deadline.After(now) {
		return resp, errs.ErrClient
	}

	minimum, err := pricing.ComputeAmount(req.ServiceKey, req.Quantity, deadline, now)
	if err != nil {
		return resp, err
	}

	amount := minimum
	customAmount := false
	if req.Amount != nil {
		if err = pricing.ValidateAmount(*req.Amount, minimum); err != nil {
			return resp, err
		}
		amount = req.Amount.Round(2)
		customAmount = true
	}

	displayID, err := uuid.NewV7()
	if err != nil {
		return resp, fmt.Errorf("error generating display id: %v", err)
	}

	requiresReports := true
	if req.RequiresReports != nil {
		requiresReports = *req.RequiresReports
	}

	order := domain.Order{
		DisplayID:          displayID.String(),
		ClientID:           actor.ID,
		Title:              req.Title,
		Instructions:       req.Instructions,
		ServiceKey:         req.ServiceKey,
		Amount:             amount,
		CustomAmount:       customAmount,
		Deadline:           req.Deadline,
		FreelancerDeadline: pricing.FreelancerDeadline(now, deadline).Unix(),
		RequiresReports:    requiresReports,
		Status:             domain.OrderStatusPending,
		CreatedAt:          now.Unix(),
		UpdatedAt:          now.Unix(),
	}

	quantity := req.Quantity
	if entry.Unit == pricing.UnitSlide {
		order.Slides = &quantity
	} else {
		order.Pages = &quantity
	}

	orderID, err := s.repository.AddOrder(ctx, order)
	if err != nil {
		return resp, err
	}
	order.ID = orderID

	publishEvent(s.producer, dto.EventOrderCreated, order.DisplayID, dto.OrderEvent{
		OrderID:   orderID,
		DisplayID: order.DisplayID,
		ToStatus:  domain.OrderStatusPending,
		ActorID:   actor.ID,
	})

	return s.toOrderResponse(order), nil
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, id int64) (resp dto.OrderResponse, err error) {
	order, err := s.repository.GetOrderByID(ctx, id)
	if err != nil {
		return
	}

	return s.toOrderResponse(order), nil
}

func (s *OrderServiceImpl) GetOrders(ctx context.Context, filter pkgdto.Filter) (response pkgdto.Pagination, err error) {
	orders, err := s.repository.GetOrders(ctx, filter)
	if err != nil {
		return
	}

	var records []dto.OrderResponse
	for _, order := range orders {
		records = append(records, s.toOrderResponse(order))
	}

	response.Records = records

	return
}

// RequestTransition applies one lifecycle event. The order is either fully
// transitioned or left untouched: guards run first, and the status update
// itself is conditional on the status the guards saw.
func (s *OrderServiceImpl) RequestTransition(ctx context.Context, id int64, req dto.TransitionRequest, actor domain.Actor) (resp dto.OrderResponse, err error) {
	order, err := s.repository.GetOrderByID(ctx, id)
	if err != nil {
		return
	}

	rule, ok := transitionRules[req.Event]
	if !ok || !rule.allowsFrom(order.Status) {
		return resp, &errs.TransitionError{CurrentState: order.Status, AttemptedEvent: req.Event}
	}

	if err = s.checkTransitionActor(order, rule, actor); err != nil {
		return
	}

	switch req.Event {
	case domain.EventSubmit:
		artifacts, artErr := s.repository.GetArtifactsByOrderID(ctx, id)
		if artErr != nil {
			return resp, artErr
		}
		if missing := missingSubmissionItems(artifacts, order.RequiresReports); len(missing) > 0 {
			return resp, &errs.SubmissionIncompleteError{Missing: missing}
		}
	case domain.EventClientApprove:
		if !order.PaymentConfirmed {
			return resp, errs.ErrPaymentRequired
		}
	case domain.EventAssign:
		if req.FreelancerID == nil {
			return resp, errs.ErrClient
		}
	}

	switch req.Event {
	case domain.EventApprove:
		err = s.repository.ApproveOrder(ctx, id)
	case domain.EventAssign:
		err = s.repository.AssignFreelancer(ctx, id, *req.FreelancerID)
	case domain.EventClientApprove:
		err = s.repository.CompleteOrder(ctx, id)
	default:
		err = s.repository.UpdateOrderStatus(ctx, id, order.Status, rule.to)
	}
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			fresh, readErr := s.repository.GetOrderByID(ctx, id)
			if readErr != nil {
				return resp, readErr
			}
			return resp, &errs.TransitionError{CurrentState: fresh.Status, AttemptedEvent: req.Event}
		}
		return
	}

	publishEvent(s.producer, dto.EventOrderStatusChanged, order.DisplayID, dto.OrderEvent{
		OrderID:    id,
		DisplayID:  order.DisplayID,
		FromStatus: order.Status,
		ToStatus:   rule.to,
		ActorID:    actor.ID,
	})

	order.Status = rule.to
	switch req.Event {
	case domain.EventApprove:
		order.AdminApproved = true
	case domain.EventAssign:
		order.FreelancerID = req.FreelancerID
	case domain.EventClientApprove:
		order.ClientApproved = true
	case domain.EventMarkPaid:
		s.recordPayout(order)
	}

	return s.toOrderResponse(order), nil
}

// UpdateOrder applies a client edit. Commercial and content fields are only
// mutable while the order is pending; the pages/slides pairing is
// re-established whenever the catalog entry or quantity changes.
func (s *OrderServiceImpl) UpdateOrder(ctx context.Context, id int64, req dto.OrderUpdateRequest, actor domain.Actor) (resp dto.OrderResponse, err error) {
	order, err := s.repository.GetOrderByID(ctx, id)
	if err != nil {
		return
	}

	if actor.Role == domain.RoleFreelancer {
		return resp, errs.ErrNoPermission
	}
	if actor.Role == domain.RoleClient && order.ClientID != actor.ID {
		return resp, errs.ErrNoPermission
	}

	if order.Status != domain.OrderStatusPending {
		return resp, &errs.TransitionError{CurrentState: order.Status, AttemptedEvent: domain.EventEdit}
	}

	if req.Title != nil {
		order.Title = *req.Title
	}
	if req.Instructions != nil {
		order.Instructions = *req.Instructions
	}

	pricingChanged := false
	if req.ServiceKey != nil && *req.ServiceKey != order.ServiceKey {
		if _, ok := pricing.Lookup(*req.ServiceKey); !ok {
			return resp, errs.ErrUnknownService
		}
		order.ServiceKey = *req.ServiceKey
		pricingChanged = true
	}

	quantity := order.Quantity()
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return resp, errs.ErrClient
		}
		quantity = *req.Quantity
		pricingChanged = true
	}

	// Switching catalog entry types nulls the now-irrelevant quantity
	// column; exactly one of pages/slides stays populated.
	entry, _ := pricing.Lookup(order.ServiceKey)
	order.Pages = nil
	order.Slides = nil
	if entry.Unit == pricing.UnitSlide {
		order.Slides = &quantity
	} else {
		order.Pages = &quantity
	}

	deadlineChanged := false
	if req.Deadline != nil && *req.Deadline != order.Deadline {
		deadline := time.Unix(*req.Deadline, 0)
		if !deadline.After(time.Now()) {
			return resp, errs.ErrClient
		}
		order.Deadline = *req.Deadline
		order.FreelancerDeadline = pricing.FreelancerDeadline(time.Unix(order.CreatedAt, 0), deadline).Unix()
		deadlineChanged = true
	}

	minimum, err := pricing.ComputeAmount(order.ServiceKey, quantity, time.Unix(order.Deadline, 0), time.Now())
	if err != nil {
		return resp, err
	}

	if req.Amount != nil {
		if err = pricing.ValidateAmount(*req.Amount, minimum); err != nil {
			return resp, err
		}
		order.Amount = req.Amount.Round(2)
		order.CustomAmount = true
	} else if !order.CustomAmount && (pricingChanged || deadlineChanged) {
		// Custom amounts stay frozen; computed ones track the catalog.
		order.Amount = minimum
	}

	err = s.repository.UpdateOrderDetails(ctx, order)
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			fresh, readErr := s.repository.GetOrderByID(ctx, id)
			if readErr != nil {
				return resp, readErr
			}
			return resp, &errs.TransitionError{CurrentState: fresh.Status, AttemptedEvent: domain.EventEdit}
		}
		return
	}

	return s.toOrderResponse(order), nil
}

func (s *OrderServiceImpl) AddArtifact(ctx context.Context, orderID int64, req dto.ArtifactRequest, actor domain.Actor) (err error) {
	switch req.Kind {
	case domain.ArtifactDraft, domain.ArtifactFinalDocument, domain.ArtifactPlagiarismReport, domain.ArtifactAIReport:
	default:
		return errs.ErrClient
	}

	order, err := s.repository.GetOrderByID(ctx, orderID)
	if err != nil {
		return
	}

	if actor.Role == domain.RoleFreelancer && (order.FreelancerID == nil || *order.FreelancerID != actor.ID) {
		return errs.ErrNoPermission
	}
	if actor.Role == domain.RoleClient {
		return errs.ErrNoPermission
	}

	_, err = s.repository.AddArtifact(ctx, domain.Artifact{
		OrderID:    orderID,
		Kind:       req.Kind,
		FileName:   req.FileName,
		UploadedBy: actor.ID,
		CreatedAt:  time.Now().Unix(),
	})

	return
}

func (s *OrderServiceImpl) checkTransitionActor(order domain.Order, rule transitionRule, actor domain.Actor) error {
	if rule.role != "" && actor.Role != rule.role {
		return errs.ErrNoPermission
	}

	switch actor.Role {
	case domain.RoleFreelancer:
		if order.FreelancerID == nil || *order.FreelancerID != actor.ID {
			return errs.ErrNoPermission
		}
	case domain.RoleClient:
		if order.ClientID != actor.ID {
			return errs.ErrNoPermission
		}
	}

	return nil
}

func (s *OrderServiceImpl) recordPayout(order domain.Order) {
	if order.FreelancerID == nil {
		return
	}

	payout := pricing.ComputePayout(workTypeName(order), pages(order), slides(order))
	publishEvent(s.producer, dto.EventPayoutRecorded, order.DisplayID, dto.PayoutEvent{
		OrderID:      order.ID,
		DisplayID:    order.DisplayID,
		FreelancerID: *order.FreelancerID,
		Amount:       payout,
	})
}

// missingSubmissionItems is the submission gate: every unmet requirement is
// reported individually so the caller can show exactly what is missing.
func missingSubmissionItems(artifacts []domain.Artifact, requiresReports bool) []string {
	have := make(map[string]bool, len(artifacts))
	for _, artifact := range artifacts {
		have[artifact.Kind] = true
	}

	var missing []string
	if !have[domain.ArtifactDraft] {
		missing = append(missing, domain.ArtifactDraft)
	}
	if !have[domain.ArtifactFinalDocument] {
		missing = append(missing, domain.ArtifactFinalDocument)
	}
	if requiresReports {
		if !have[domain.ArtifactPlagiarismReport] {
			missing = append(missing, domain.ArtifactPlagiarismReport)
		}
		if !have[domain.ArtifactAIReport] {
			missing = append(missing, domain.ArtifactAIReport)
		}
	}

	return missing
}

func (s *OrderServiceImpl) toOrderResponse(order domain.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:                 order.ID,
		DisplayID:          order.DisplayID,
		Title:              order.Title,
		ServiceKey:         order.ServiceKey,
		Pages:              order.Pages,
		Slides:             order.Slides,
		Amount:             order.Amount,
		CustomAmount:       order.CustomAmount,
		Deadline:           order.Deadline,
		FreelancerDeadline: order.FreelancerDeadline,
		RequiresReports:    order.RequiresReports,
		Status:             order.Status,
		FreelancerID:       order.FreelancerID,
		PaymentConfirmed:   order.PaymentConfirmed,
		FreelancerPayout:   pricing.ComputePayout(workTypeName(order), pages(order), slides(order)),
	}
}

func workTypeName(order domain.Order) string {
	if entry, ok := pricing.Lookup(order.ServiceKey); ok {
		return entry.Name
	}
	return order.ServiceKey
}

func pages(order domain.Order) int64 {
	if order.Pages != nil {
		return *order.Pages
	}
	return 0
}

func slides(order domain.Order) int64 {
	if order.Slides != nil {
		return *order.Slides
	}
	return 0
}
