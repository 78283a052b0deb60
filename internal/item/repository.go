package item

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound         = errors.New("item not found")
	ErrItemLocked       = errors.New("item has existing non-cancelled orders")
	ErrPermissionDenied = errors.New("item does not belong to this seller")
)

type Repository interface {
	Create(ctx context.Context, it *Item) (int64, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
	ListAvailable(ctx context.Context, filter Filter) ([]Item, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]Item, error)
	Delete(ctx context.Context, id, sellerID int64) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const itemColumns = `item_id, seller_id, name, description, price, category, image_url, quantity, status, created_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(
		&it.ID,
		&it.SellerID,
		&it.Name,
		&it.Description,
		&it.Price,
		&it.Category,
		&it.ImageURL,
		&it.Quantity,
		&it.Status,
		&it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *postgresRepository) Create(ctx context.Context, it *Item) (int64, error) {
	query := `
		INSERT INTO items (seller_id, name, description, price, category, image_url, quantity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING item_id
	`

	createdAt := time.Now().UTC()
	var id int64
	err := r.db.QueryRow(ctx, query,
		it.SellerID,
		it.Name,
		it.Description,
		it.Price,
		it.Category,
		it.ImageURL,
		it.Quantity,
		string(StatusAvailable),
		createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to insert item: %w", err)
	}

	it.ID = id
	it.Status = StatusAvailable
	it.CreatedAt = createdAt
	return id, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE item_id = $1`

	it, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select item %d: %w", id, err)
	}
	return it, nil
}

// ListAvailable returns items the catalog shows to buyers: available
// status with stock left, newest first. Name matches are substring,
// case-insensitive.
func (r *postgresRepository) ListAvailable(ctx context.Context, filter Filter) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE status = 'available' AND quantity > 0`
	args := []any{}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY item_id DESC"

	return r.queryItems(ctx, query, args...)
}

func (r *postgresRepository) ListBySeller(ctx context.Context, sellerID int64) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE seller_id = $1 ORDER BY item_id DESC`
	return r.queryItems(ctx, query, sellerID)
}

func (r *postgresRepository) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating items: %w", err)
	}
	return items, nil
}

// Delete removes a listing. An item referenced by any non-cancelled
// order may not be deleted; the check and the delete run in one
// transaction so a concurrent placement cannot slip between them.
func (r *postgresRepository) Delete(ctx context.Context, id, sellerID int64) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Int64("item_id", id).Msg("repository: failed to rollback item delete")
			}
		}
	}()

	var ownerID int64
	err = tx.QueryRow(ctx, `SELECT seller_id FROM items WHERE item_id = $1 FOR UPDATE`, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("repository: failed to lock item %d for delete: %w", id, err)
	}
	if ownerID != sellerID {
		return ErrPermissionDenied
	}

	var locked bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE item_id = $1 AND status <> 'cancelled')`, id,
	).Scan(&locked)
	if err != nil {
		return fmt.Errorf("repository: failed to check orders for item %d: %w", id, err)
	}
	if locked {
		return ErrItemLocked
	}

	if _, err = tx.Exec(ctx, `DELETE FROM items WHERE item_id = $1`, id); err != nil {
		return fmt.Errorf("repository: failed to delete item %d: %w", id, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit item delete: %w", err)
	}
	return nil
}
