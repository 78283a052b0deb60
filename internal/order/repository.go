package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Placement is one cart line prepared by the service: identifier and
// delivery-code hash already generated, stock not yet consumed.
type Placement struct {
	OrderID     string
	ItemID      int64
	Quantity    int
	OTPHash     string
	PaymentMode string
}

// PlacedLine is what the store reports back per successfully reserved
// line. Seller and price come from the item row read under lock.
type PlacedLine struct {
	OrderID      string
	ItemID       int64
	ItemName     string
	PriceCharged float64
}

// Store is the durable record of orders plus the stock side of every
// mutation. Each method is one atomic unit of work: a failed call
// leaves both orders and item stock untouched.
type Store interface {
	PlaceAll(ctx context.Context, buyerID int64, placements []Placement) ([]PlacedLine, error)
	GetByID(ctx context.Context, orderID string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]BuyerOrder, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]SellerSale, error)
	ListOpen(ctx context.Context) ([]OpenOrder, error)
	UpdateStatus(ctx context.Context, orderID string, from []Status, to Status) error
	CancelAndRestock(ctx context.Context, orderID string, from []Status) error
	DeleteAndRestock(ctx context.Context, orderID string) error
}

type postgresStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) rollback(ctx context.Context, tx pgx.Tx, orderID string) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		log.Error().Err(err).Str("order_id", orderID).Msg("repository: failed to rollback transaction")
	}
}

// PlaceAll reserves stock and inserts order rows for every placement
// inside a single transaction. Lines are processed in submitted order;
// the first failing line aborts the whole batch. Item rows are locked
// FOR UPDATE so the check-then-decrement is atomic with respect to
// concurrent placements against the same item.
func (s *postgresStore) PlaceAll(ctx context.Context, buyerID int64, placements []Placement) (placed []PlacedLine, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin placement transaction: %w", err)
	}
	defer func() {
		if err != nil {
			s.rollback(ctx, tx, "")
		}
	}()

	createdAt := time.Now().UTC()
	placed = make([]PlacedLine, 0, len(placements))

	for i, p := range placements {
		var (
			sellerID  int64
			name      string
			unitPrice float64
			quantity  int
			status    string
		)
		err = tx.QueryRow(ctx,
			`SELECT seller_id, name, price, quantity, status FROM items WHERE item_id = $1 FOR UPDATE`,
			p.ItemID,
		).Scan(&sellerID, &name, &unitPrice, &quantity, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = fmt.Errorf("cart line %d (item %d): %w", i+1, p.ItemID, ErrItemUnavailable)
				return nil, err
			}
			return nil, fmt.Errorf("repository: failed to lock item %d: %w", p.ItemID, err)
		}

		if status != "available" {
			err = fmt.Errorf("cart line %d (%s): %w", i+1, name, ErrItemUnavailable)
			return nil, err
		}
		if sellerID == buyerID {
			err = fmt.Errorf("cart line %d (%s): %w", i+1, name, ErrSelfPurchase)
			return nil, err
		}
		if quantity < p.Quantity {
			err = fmt.Errorf("cart line %d (%s): %w", i+1, name, ErrInsufficientStock)
			return nil, err
		}

		ct, execErr := tx.Exec(ctx, `
			UPDATE items
			SET quantity = quantity - $2,
			    status = CASE WHEN quantity - $2 <= 0 THEN 'sold' ELSE status END
			WHERE item_id = $1 AND quantity >= $2`,
			p.ItemID, p.Quantity,
		)
		if execErr != nil {
			err = fmt.Errorf("repository: failed to reserve stock for item %d: %w", p.ItemID, execErr)
			return nil, err
		}
		if ct.RowsAffected() == 0 {
			err = fmt.Errorf("cart line %d (%s): %w", i+1, name, ErrInsufficientStock)
			return nil, err
		}

		priceCharged := unitPrice * float64(p.Quantity)
		_, err = tx.Exec(ctx, `
			INSERT INTO orders (order_id, buyer_id, seller_id, item_id, price_charged, quantity, payment_mode, payment_status, status, otp_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9, $10)`,
			p.OrderID, buyerID, sellerID, p.ItemID, priceCharged, p.Quantity,
			p.PaymentMode, string(StatusPending), p.OTPHash, createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to insert order %s: %w", p.OrderID, err)
		}

		placed = append(placed, PlacedLine{
			OrderID:      p.OrderID,
			ItemID:       p.ItemID,
			ItemName:     name,
			PriceCharged: priceCharged,
		})
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository: failed to commit placement: %w", err)
	}
	return placed, nil
}

const orderColumns = `order_id, buyer_id, seller_id, item_id, price_charged, quantity, payment_mode, payment_status, status, otp_hash, created_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var itemID *int64
	err := row.Scan(
		&o.OrderID,
		&o.BuyerID,
		&o.SellerID,
		&itemID,
		&o.PriceCharged,
		&o.Quantity,
		&o.PaymentMode,
		&o.PaymentStatus,
		&o.Status,
		&o.OTPHash,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if itemID != nil {
		o.ItemID = *itemID
	}
	return &o, nil
}

func (s *postgresStore) GetByID(ctx context.Context, orderID string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	o, err := scanOrder(s.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", orderID, err)
	}
	return o, nil
}

func (s *postgresStore) ListByBuyer(ctx context.Context, buyerID int64) ([]BuyerOrder, error) {
	query := `
		SELECT o.order_id, o.buyer_id, o.seller_id, o.item_id, o.price_charged, o.quantity,
		       o.payment_mode, o.payment_status, o.status, o.otp_hash, o.created_at,
		       COALESCE(i.name, 'Deleted item')
		FROM orders o
		LEFT JOIN items i ON o.item_id = i.item_id
		WHERE o.buyer_id = $1
		ORDER BY o.created_at DESC
	`

	rows, err := s.db.Query(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for buyer %d: %w", buyerID, err)
	}
	defer rows.Close()

	orders := make([]BuyerOrder, 0)
	for rows.Next() {
		var bo BuyerOrder
		var itemID *int64
		err := rows.Scan(
			&bo.OrderID,
			&bo.BuyerID,
			&bo.SellerID,
			&itemID,
			&bo.PriceCharged,
			&bo.Quantity,
			&bo.PaymentMode,
			&bo.PaymentStatus,
			&bo.Status,
			&bo.OTPHash,
			&bo.CreatedAt,
			&bo.ItemName,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan buyer order: %w", err)
		}
		if itemID != nil {
			bo.ItemID = *itemID
		}
		orders = append(orders, bo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating buyer orders: %w", err)
	}
	return orders, nil
}

func (s *postgresStore) ListBySeller(ctx context.Context, sellerID int64) ([]SellerSale, error) {
	query := `
		SELECT o.order_id, o.item_id, COALESCE(i.name, 'Deleted item'), buyer.name, o.price_charged, o.quantity, o.status, o.created_at
		FROM orders o
		LEFT JOIN items i ON o.item_id = i.item_id
		JOIN users buyer ON o.buyer_id = buyer.user_id
		WHERE o.seller_id = $1
		ORDER BY o.created_at DESC
	`

	rows, err := s.db.Query(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query sales for seller %d: %w", sellerID, err)
	}
	defer rows.Close()

	sales := make([]SellerSale, 0)
	for rows.Next() {
		var sale SellerSale
		var itemID *int64
		err := rows.Scan(
			&sale.OrderID,
			&itemID,
			&sale.ItemName,
			&sale.BuyerName,
			&sale.PriceCharged,
			&sale.Quantity,
			&sale.Status,
			&sale.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan seller sale: %w", err)
		}
		if itemID != nil {
			sale.ItemID = *itemID
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating seller sales: %w", err)
	}
	return sales, nil
}

// ListOpen returns orders still in the fulfillment queue, newest first.
func (s *postgresStore) ListOpen(ctx context.Context) ([]OpenOrder, error) {
	query := `
		SELECT o.order_id, o.status, COALESCE(i.name, 'Deleted item'), buyer.name, seller.name, o.created_at
		FROM orders o
		LEFT JOIN items i ON o.item_id = i.item_id
		JOIN users buyer ON o.buyer_id = buyer.user_id
		JOIN users seller ON o.seller_id = seller.user_id
		WHERE o.status NOT IN ('completed', 'cancelled')
		ORDER BY o.created_at DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query open orders: %w", err)
	}
	defer rows.Close()

	orders := make([]OpenOrder, 0)
	for rows.Next() {
		var oo OpenOrder
		if err := rows.Scan(&oo.OrderID, &oo.Status, &oo.ItemName, &oo.BuyerName, &oo.SellerName, &oo.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan open order: %w", err)
		}
		orders = append(orders, oo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating open orders: %w", err)
	}
	return orders, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

// UpdateStatus moves an order to a new status only if its current
// status is in from. The condition lives in the UPDATE itself, so a
// concurrent transition cannot slip between read and write.
func (s *postgresStore) UpdateStatus(ctx context.Context, orderID string, from []Status, to Status) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE order_id = $1 AND status = ANY($3)`,
		orderID, string(to), statusStrings(from),
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update status of order %s: %w", orderID, err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = $1)`, orderID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("repository: failed to check order %s: %w", orderID, err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

// CancelAndRestock cancels an order and returns its stock to the item
// in the same transaction.
func (s *postgresStore) CancelAndRestock(ctx context.Context, orderID string, from []Status) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin cancel transaction: %w", err)
	}
	defer func() {
		if err != nil {
			s.rollback(ctx, tx, orderID)
		}
	}()

	var (
		itemID   *int64
		quantity int
		status   Status
	)
	err = tx.QueryRow(ctx,
		`SELECT item_id, quantity, status FROM orders WHERE order_id = $1 FOR UPDATE`, orderID,
	).Scan(&itemID, &quantity, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("repository: failed to lock order %s for cancel: %w", orderID, err)
	}

	allowed := false
	for _, st := range from {
		if st == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInvalidTransition
	}

	if _, err = tx.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE order_id = $1`, orderID, string(StatusCancelled),
	); err != nil {
		return fmt.Errorf("repository: failed to cancel order %s: %w", orderID, err)
	}

	// item_id is null once the listing itself has been deleted; there is
	// nothing left to restock then.
	if itemID != nil {
		if _, err = tx.Exec(ctx,
			`UPDATE items SET quantity = quantity + $2, status = 'available' WHERE item_id = $1`,
			*itemID, quantity,
		); err != nil {
			return fmt.Errorf("repository: failed to restock item %d: %w", *itemID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit cancel of order %s: %w", orderID, err)
	}
	return nil
}

// DeleteAndRestock removes an order row entirely. Unless the order was
// already cancelled (its stock is already back), the item is restocked
// in the same transaction.
func (s *postgresStore) DeleteAndRestock(ctx context.Context, orderID string) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin delete transaction: %w", err)
	}
	defer func() {
		if err != nil {
			s.rollback(ctx, tx, orderID)
		}
	}()

	var (
		itemID   *int64
		quantity int
		status   Status
	)
	err = tx.QueryRow(ctx,
		`SELECT item_id, quantity, status FROM orders WHERE order_id = $1 FOR UPDATE`, orderID,
	).Scan(&itemID, &quantity, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("repository: failed to lock order %s for delete: %w", orderID, err)
	}

	if status != StatusCancelled && itemID != nil {
		if _, err = tx.Exec(ctx,
			`UPDATE items SET quantity = quantity + $2, status = 'available' WHERE item_id = $1`,
			*itemID, quantity,
		); err != nil {
			return fmt.Errorf("repository: failed to restock item %d: %w", *itemID, err)
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("repository: failed to delete order %s: %w", orderID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit delete of order %s: %w", orderID, err)
	}
	return nil
}
