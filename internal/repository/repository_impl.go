package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/quillmarket/order-service/internal/domain"
	pkgdto "github.com/quillmarket/order-service/pkg/dto"
	"github.com/quillmarket/order-service/pkg/errs"
	"github.com/rs/zerolog/log"
)

type OrderRepositoryImpl struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

func CreateOrderRepository(db *sqlx.DB) OrderRepository {
	return &OrderRepositoryImpl{
		db: db,
	}
}

// ext returns the transaction when one is open, the pool otherwise.
func (r *OrderRepositoryImpl) ext() sqlx.ExtContext {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// HandleTrx runs fn inside a transaction. The return value is named so the
// deferred commit's error reaches the caller; a failed commit must never
// read as success.
func (r *OrderRepositoryImpl) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo OrderRepository) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	txRepo := &OrderRepositoryImpl{
		tx: tx,
	}

	err = fn(ctx, txRepo)

	return err
}

func (r *OrderRepositoryImpl) AddOrder(ctx context.Context, data domain.Order) (id int64, err error) {
	query := `INSERT INTO orders(display_id, client_id, title, instructions, service_key, pages, slides, amount, custom_amount, deadline, freelancer_deadline, requires_reports, status, created_at, updated_at)
		VALUES (:display_id, :client_id, :title, :instructions, :service_key, :pages, :slides, :amount, :custom_amount, :deadline, :freelancer_deadline, :requires_reports, :status, :created_at, :updated_at) RETURNING id`

	rows, err := sqlx.NamedQueryContext(ctx, r.ext(), query, data)
	if err != nil {
		log.Error().Err(err).Str("component", "AddOrder").Msg("")
		return
	}
	defer rows.Close()

	if rows.Next() {
		err = rows.Scan(&id)
	}

	return
}

func (r *OrderRepositoryImpl) GetOrderByID(ctx context.Context, id int64) (data domain.Order, err error) {
	row := r.ext().QueryRowxContext(ctx, "SELECT * FROM orders WHERE id = $1 AND deleted_at IS NULL", id)
	err = row.StructScan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, errs.ErrNotFound
		}
		log.Error().Err(err).Str("component", "GetOrderByID").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

func (r *OrderRepositoryImpl) GetOrderByDisplayID(ctx context.Context, displayID string) (data domain.Order, err error) {
	row := r.ext().QueryRowxContext(ctx, "SELECT * FROM orders WHERE display_id = $1 AND deleted_at IS NULL", displayID)
	err = row.StructScan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, errs.ErrNotFound
		}
		log.Error().Err(err).Str("component", "GetOrderByDisplayID").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

func (r *OrderRepositoryImpl) GetOrders(ctx context.Context, filter pkgdto.Filter) (data []domain.Order, err error) {
	query := "SELECT * FROM orders WHERE deleted_at IS NULL"

	args := make(map[string]interface{})

	if filter.Status != "" {
		query += " AND status = :status"
		args["status"] = filter.Status
	}

	if filter.ClientID != 0 {
		query += " AND client_id = :client_id"
		args["client_id"] = filter.ClientID
	}

	if filter.FreelancerID != 0 {
		query += " AND freelancer_id = :freelancer_id"
		args["freelancer_id"] = filter.FreelancerID
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit != 0 && filter.Page != 0 {
		offset := (filter.Page - 1) * filter.Limit
		query += " LIMIT :limit OFFSET :offset"
		args["limit"] = filter.Limit
		args["offset"] = offset
	}

	nstmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("component", "GetOrders").Msg("")
		return nil, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &data, args)
	if err != nil {
		log.Error().Err(err).Str("component", "GetOrders").Msg("")
		return nil, err
	}

	return
}

// UpdateOrderStatus transitions an order if and only if its status still
// equals fromStatus. A stale status yields errs.ErrConflict, never a silent
// overwrite.
func (r *OrderRepositoryImpl) UpdateOrderStatus(ctx context.Context, id int64, fromStatus, toStatus string) (err error) {
	result, err := r.ext().ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 AND deleted_at IS NULL",
		toStatus, time.Now().Unix(), id, fromStatus)
	if err != nil {
		log.Error().Err(err).Str("component", "UpdateOrderStatus").Msg("")
		return
	}

	return r.requireOneRow(result, "UpdateOrderStatus")
}

func (r *OrderRepositoryImpl) ApproveOrder(ctx context.Context, id int64) (err error) {
	result, err := r.ext().ExecContext(ctx,
		"UPDATE orders SET status = $1, admin_approved = TRUE, updated_at = $2 WHERE id = $3 AND status = $4 AND deleted_at IS NULL",
		domain.OrderStatusApproved, time.Now().Unix(), id, domain.OrderStatusPending)
	if err != nil {
		log.Error().Err(err).Str("component", "ApproveOrder").Msg("")
		return
	}

	return r.requireOneRow(result, "ApproveOrder")
}

func (r *OrderRepositoryImpl) AssignFreelancer(ctx context.Context, id int64, freelancerID int64) (err error) {
	result, err := r.ext().ExecContext(ctx,
		"UPDATE orders SET status = $1, freelancer_id = $2, updated_at = $3 WHERE id = $4 AND status = $5 AND freelancer_id IS NULL AND deleted_at IS NULL",
		domain.OrderStatusAssigned, freelancerID, time.Now().Unix(), id, domain.OrderStatusApproved)
	if err != nil {
		log.Error().Err(err).Str("component", "AssignFreelancer").Msg("")
		return
	}

	return r.requireOneRow(result, "AssignFreelancer")
}

// CompleteOrder performs the client-approval transition. The payment guard is
// repeated in SQL so a race with payment confirmation cannot complete an
// unpaid order.
func (r *OrderRepositoryImpl) CompleteOrder(ctx context.Context, id int64) (err error) {
	result, err := r.ext().ExecContext(ctx,
		"UPDATE orders SET status = $1, client_approved = TRUE, updated_at = $2 WHERE id = $3 AND status = $4 AND payment_confirmed = TRUE AND deleted_at IS NULL",
		domain.OrderStatusCompleted, time.Now().Unix(), id, domain.OrderStatusDelivered)
	if err != nil {
		log.Error().Err(err).Str("component", "CompleteOrder").Msg("")
		return
	}

	return r.requireOneRow(result, "CompleteOrder")
}

// UpdateOrderDetails persists a client edit. Guarded on pending status; any
// later state reports a conflict to the caller.
func (r *OrderRepositoryImpl) UpdateOrderDetails(ctx context.Context, data domain.Order) (err error) {
	result, err := r.ext().ExecContext(ctx,
		`UPDATE orders SET title = $1, instructions = $2, service_key = $3, pages = $4, slides = $5, amount = $6, custom_amount = $7, deadline = $8, freelancer_deadline = $9, updated_at = $10
		WHERE id = $11 AND status = $12 AND deleted_at IS NULL`,
		data.Title, data.Instructions, data.ServiceKey, data.Pages, data.Slides, data.Amount, data.CustomAmount, data.Deadline, data.FreelancerDeadline, time.Now().Unix(),
		data.ID, domain.OrderStatusPending)
	if err != nil {
		log.Error().Err(err).Str("component", "UpdateOrderDetails").Msg("")
		return
	}

	return r.requireOneRow(result, "UpdateOrderDetails")
}

func (r *OrderRepositoryImpl) SetOrderPaymentConfirmed(ctx context.Context, id int64) (err error) {
	_, err = r.ext().ExecContext(ctx,
		"UPDATE orders SET payment_confirmed = TRUE, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		time.Now().Unix(), id)
	if err != nil {
		log.Error().Err(err).Str("component", "SetOrderPaymentConfirmed").Msg("")
		return
	}

	return nil
}

func (r *OrderRepositoryImpl) AddArtifact(ctx context.Context, data domain.Artifact) (id int64, err error) {
	rows, err := sqlx.NamedQueryContext(ctx, r.ext(),
		"INSERT INTO artifacts(order_id, kind, file_name, uploaded_by, created_at) VALUES (:order_id, :kind, :file_name, :uploaded_by, :created_at) RETURNING id",
		data)
	if err != nil {
		log.Error().Err(err).Str("component", "AddArtifact").Msg("")
		return
	}
	defer rows.Close()

	if rows.Next() {
		err = rows.Scan(&id)
	}

	return
}

func (r *OrderRepositoryImpl) GetArtifactsByOrderID(ctx context.Context, orderID int64) (data []domain.Artifact, err error) {
	err = sqlx.SelectContext(ctx, r.ext(), &data, "SELECT * FROM artifacts WHERE order_id = $1", orderID)
	if err != nil {
		log.Error().Err(err).Str("component", "GetArtifactsByOrderID").Msg("")
		return nil, err
	}

	return
}

func (r *OrderRepositoryImpl) AddPayment(ctx context.Context, data domain.Payment) (id int64, err error) {
	query := `INSERT INTO payments(order_id, payer_id, payee_id, reference, amount, method, status, created_at, updated_at)
		VALUES (:order_id, :payer_id, :payee_id, :reference, :amount, :method, :status, :created_at, :updated_at) RETURNING id`

	rows, err := sqlx.NamedQueryContext(ctx, r.ext(), query, data)
	if err != nil {
		log.Error().Err(err).Str("component", "AddPayment").Msg("")
		return
	}
	defer rows.Close()

	if rows.Next() {
		err = rows.Scan(&id)
	}

	return
}

func (r *OrderRepositoryImpl) GetPaymentByID(ctx context.Context, id int64) (data domain.Payment, err error) {
	row := r.ext().QueryRowxContext(ctx, "SELECT * FROM payments WHERE id = $1", id)
	err = row.StructScan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, errs.ErrNotFound
		}
		log.Error().Err(err).Str("component", "GetPaymentByID").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

func (r *OrderRepositoryImpl) GetPaymentByReference(ctx context.Context, reference string) (data domain.Payment, err error) {
	row := r.ext().QueryRowxContext(ctx, "SELECT * FROM payments WHERE reference = $1", reference)
	err = row.StructScan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, errs.ErrNotFound
		}
		log.Error().Err(err).Str("component", "GetPaymentByReference").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

func (r *OrderRepositoryImpl) SetPaymentProviderRef(ctx context.Context, id int64, providerRef string) (err error) {
	_, err = r.ext().ExecContext(ctx,
		"UPDATE payments SET provider_ref = $1, updated_at = $2 WHERE id = $3",
		providerRef, time.Now().Unix(), id)
	if err != nil {
		log.Error().Err(err).Str("component", "SetPaymentProviderRef").Msg("")
		return
	}

	return nil
}

func (r *OrderRepositoryImpl) SetPaymentAdminConfirmed(ctx context.Context, id int64) (err error) {
	_, err = r.ext().ExecContext(ctx,
		"UPDATE payments SET admin_confirmed = TRUE, updated_at = $1 WHERE id = $2",
		time.Now().Unix(), id)
	if err != nil {
		log.Error().Err(err).Str("component", "SetPaymentAdminConfirmed").Msg("")
		return
	}

	return nil
}

// UpdatePaymentStatus is the compare-and-set underneath confirmation: the row
// moves fromStatus → toStatus only if it still holds fromStatus. Zero rows
// matched means a concurrent writer got there first.
func (r *OrderRepositoryImpl) UpdatePaymentStatus(ctx context.Context, id int64, fromStatus, toStatus string, failureReason, receiptID *string) (err error) {
	result, err := r.ext().ExecContext(ctx,
		"UPDATE payments SET status = $1, failure_reason = $2, receipt_id = COALESCE($3, receipt_id), updated_at = $4 WHERE id = $5 AND status = $6",
		toStatus, failureReason, receiptID, time.Now().Unix(), id, fromStatus)
	if err != nil {
		log.Error().Err(err).Str("component", "UpdatePaymentStatus").Msg("")
		return
	}

	return r.requireOneRow(result, "UpdatePaymentStatus")
}

func (r *OrderRepositoryImpl) ListStalePendingPayments(ctx context.Context, cutoff int64) (data []domain.Payment, err error) {
	err = sqlx.SelectContext(ctx, r.ext(), &data,
		"SELECT * FROM payments WHERE status = $1 AND created_at < $2",
		domain.PaymentStatusPending, cutoff)
	if err != nil {
		log.Error().Err(err).Str("component", "ListStalePendingPayments").Msg("")
		return nil, err
	}

	return
}

func (r *OrderRepositoryImpl) requireOneRow(result sql.Result, component string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		log.Error().Err(err).Str("component", component).Msg("")
		return err
	}

	if affected == 0 {
		return errs.ErrConflict
	}

	return nil
}
