package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"financefly/internal/domain/connect"
)

// ClientRepository persists completed bank links.
type ClientRepository struct {
	db *DB
}

var _ connect.ClientStore = (*ClientRepository)(nil)

func NewClientRepository(db *DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Save inserts a client record. The single atomic statement makes the
// operation race-free: two sessions inserting the same item_id cannot
// both create a row, and the loser sees nil instead of an error.
func (r *ClientRepository) Save(ctx context.Context, name, email, itemID string) (*int64, error) {
	query := `
		INSERT INTO financefly_clients (name, email, item_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id) DO NOTHING
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, name, email, itemID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// item_id already linked; idempotent no-op.
		return nil, nil
	}
	if err != nil {
		return nil, &connect.StoreError{Err: fmt.Errorf("failed to save client: %w", err)}
	}

	return &id, nil
}

// GetByItemID retrieves a client record by its external item id.
func (r *ClientRepository) GetByItemID(ctx context.Context, itemID string) (*connect.ClientRecord, error) {
	query := `
		SELECT id, name, email, item_id, created_at
		FROM financefly_clients
		WHERE item_id = $1
	`

	var rec connect.ClientRecord
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(
		&rec.ID, &rec.Name, &rec.Email, &rec.ItemID, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &connect.StoreError{Err: fmt.Errorf("failed to get client: %w", err)}
	}

	return &rec, nil
}

// List retrieves all client records, newest first.
func (r *ClientRepository) List(ctx context.Context) ([]*connect.ClientRecord, error) {
	query := `
		SELECT id, name, email, item_id, created_at
		FROM financefly_clients
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &connect.StoreError{Err: fmt.Errorf("failed to list clients: %w", err)}
	}
	defer rows.Close()

	var records []*connect.ClientRecord
	for rows.Next() {
		var rec connect.ClientRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Email, &rec.ItemID, &rec.CreatedAt); err != nil {
			return nil, &connect.StoreError{Err: fmt.Errorf("failed to scan client: %w", err)}
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, &connect.StoreError{Err: fmt.Errorf("error iterating clients: %w", err)}
	}

	return records, nil
}
