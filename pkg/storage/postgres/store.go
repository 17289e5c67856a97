// Package postgres implements contract storage on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

const (
	uniqueViolation      = "23505"
	accessCodeConstraint = "contracts_access_code_key"
	contractColumns      = `id, seller_id, buyer_id, title, description, price::text, condition,
access_code, qr_payload, status, photos, created_at, updated_at`
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewPool constructs a pgx connection pool using the provided connection string.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, fmt.Errorf("postgres: empty connection string")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	return pgxpool.NewWithConfig(ctx, cfg)
}

// Migrate creates the contracts table and its indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

var _ storage.Storage = (*Store)(nil)

type photoRow struct {
	Order int    `json:"order"`
	URI   string `json:"uri"`
}

func (s *Store) NextContractID(ctx context.Context) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT nextval(pg_get_serial_sequence('contracts', 'id'))`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: next contract id: %w", err)
	}
	return id, nil
}

func (s *Store) InsertContract(ctx context.Context, c *contract.Contract) error {
	const insertSQL = `
INSERT INTO contracts (id, seller_id, buyer_id, title, description, price, condition,
    access_code, qr_payload, status, photos, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13)`

	var buyer *int64
	if id, ok := c.BuyerID(); ok {
		buyer = &id
	}
	photos := make([]photoRow, 0, len(c.Photos))
	for _, p := range c.Photos {
		photos = append(photos, photoRow{Order: p.Order, URI: p.URI})
	}

	_, err := s.pool.Exec(ctx, insertSQL,
		c.ID, c.SellerID, buyer, c.Title, c.Description, c.Price.String(), string(c.Condition),
		c.AccessCode, c.QRPayload, string(c.Status()), photos, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == accessCodeConstraint {
				return storage.ErrAccessCodeTaken
			}
			return storage.ErrContractExists
		}
		return fmt.Errorf("postgres: insert contract: %w", err)
	}
	return nil
}

func (s *Store) AccessCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM contracts WHERE access_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check access code: %w", err)
	}
	return exists, nil
}

func (s *Store) GetContract(ctx context.Context, id int64) (*contract.Contract, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("contract with ID %d: %w", id, storage.ErrContractNotFound)
	}
	return c, err
}

func (s *Store) GetContractByAccessCode(ctx context.Context, code string) (*contract.Contract, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE access_code = $1`, code)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("contract with access code %s: %w", code, storage.ErrContractNotFound)
	}
	return c, err
}

func (s *Store) ListContractsBySeller(ctx context.Context, sellerID int64) ([]*contract.Contract, error) {
	return s.list(ctx, `SELECT `+contractColumns+` FROM contracts WHERE seller_id = $1 ORDER BY created_at DESC, id DESC`, sellerID)
}

func (s *Store) ListContractsByBuyer(ctx context.Context, buyerID int64) ([]*contract.Contract, error) {
	return s.list(ctx, `SELECT `+contractColumns+` FROM contracts WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC`, buyerID)
}

// UpdateContractStatus is a compare-and-swap on the status column.
func (s *Store) UpdateContractStatus(ctx context.Context, c *contract.Contract, expected contract.Status) error {
	const updateSQL = `
UPDATE contracts
SET status = $2, qr_payload = $3, updated_at = $4
WHERE id = $1 AND status = $5`

	tag, err := s.pool.Exec(ctx, updateSQL, c.ID, string(c.Status()), c.QRPayload, c.UpdatedAt, string(expected))
	if err != nil {
		return fmt.Errorf("postgres: update contract status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrStaleContract
	}
	return nil
}

func (s *Store) AssignBuyer(ctx context.Context, id, buyerID int64, now time.Time) (*contract.Contract, error) {
	updateSQL := `
UPDATE contracts
SET buyer_id = $2, updated_at = $3
WHERE id = $1 AND buyer_id IS NULL AND seller_id <> $2
RETURNING ` + contractColumns

	c, err := scanContract(s.pool.QueryRow(ctx, updateSQL, id, buyerID, now))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: assign buyer: %w", err)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM contracts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres: assign buyer: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("contract with ID %d: %w", id, storage.ErrContractNotFound)
	}
	return nil, storage.ErrBuyerAlreadyAssigned
}

func (s *Store) list(ctx context.Context, query string, userID int64) ([]*contract.Contract, error) {
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list contracts: %w", err)
	}
	defer rows.Close()

	contracts := []*contract.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list contracts: %w", err)
	}
	return contracts, nil
}

func scanContract(row pgx.Row) (*contract.Contract, error) {
	var (
		fields    contract.Contract
		buyer     *int64
		price     string
		condition string
		status    string
		photos    []photoRow
	)
	err := row.Scan(&fields.ID, &fields.SellerID, &buyer, &fields.Title, &fields.Description, &price, &condition,
		&fields.AccessCode, &fields.QRPayload, &status, &photos, &fields.CreatedAt, &fields.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: scan contract: %w", err)
	}

	fields.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse price of contract %d: %w", fields.ID, err)
	}
	fields.Condition = contract.Condition(condition)
	fields.Photos = make([]contract.Photo, 0, len(photos))
	for _, p := range photos {
		fields.Photos = append(fields.Photos, contract.Photo{Order: p.Order, URI: p.URI})
	}

	return contract.Restore(fields, contract.Status(status), buyer)
}
