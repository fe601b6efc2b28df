package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/propchain/marketd/internal/domain"
)

// PropertyStore implements domain.PropertyStore using PostgreSQL.
type PropertyStore struct {
	q    querier
	lock string
}

const propertyCols = `id, owner, asset_token, title, description, image_url,
	location, property_type, size_sqft, bedrooms, bathrooms, year_built,
	created_at, listing_state, list_price`

func scanProperty(row pgx.Row) (domain.Property, error) {
	var p domain.Property
	var state string
	err := row.Scan(
		&p.ID, &p.Owner, &p.AssetToken, &p.Title, &p.Description, &p.ImageURL,
		&p.Location, &p.PropertyType, &p.SizeSqft, &p.Bedrooms, &p.Bathrooms,
		&p.YearBuilt, &p.CreatedAt, &state, &p.ListPrice,
	)
	if err != nil {
		return domain.Property{}, err
	}
	p.ListingState = domain.ListingState(state)
	return p, nil
}

// Create inserts a new property record.
func (s *PropertyStore) Create(ctx context.Context, p domain.Property) error {
	const query = `
		INSERT INTO properties (
			id, owner, asset_token, title, description, image_url,
			location, property_type, size_sqft, bedrooms, bathrooms,
			year_built, created_at, listing_state, list_price
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15
		)`

	_, err := s.q.Exec(ctx, query,
		p.ID, p.Owner, p.AssetToken, p.Title, p.Description, p.ImageURL,
		p.Location, p.PropertyType, p.SizeSqft, p.Bedrooms, p.Bathrooms,
		p.YearBuilt, p.CreatedAt, string(p.ListingState), p.ListPrice,
	)
	if err != nil {
		return fmt.Errorf("postgres: create property %d: %w", p.ID, err)
	}
	return nil
}

// Get retrieves a property by id. Inside a transaction it locks the row for
// the rest of the transaction.
func (s *PropertyStore) Get(ctx context.Context, id uint64) (domain.Property, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+propertyCols+` FROM properties WHERE id = $1`+s.lock, id)
	p, err := scanProperty(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Property{}, domain.ErrNotFound
		}
		return domain.Property{}, fmt.Errorf("postgres: get property %d: %w", id, err)
	}
	return p, nil
}

// Update writes the mutable fields of a property back.
func (s *PropertyStore) Update(ctx context.Context, p domain.Property) error {
	const query = `
		UPDATE properties SET
			owner         = $2,
			listing_state = $3,
			list_price    = $4
		WHERE id = $1`

	tag, err := s.q.Exec(ctx, query, p.ID, p.Owner, string(p.ListingState), p.ListPrice)
	if err != nil {
		return fmt.Errorf("postgres: update property %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns properties ordered by id with pagination.
func (s *PropertyStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Property, error) {
	query := `SELECT ` + propertyCols + ` FROM properties ORDER BY id`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list properties: %w", err)
	}
	defer rows.Close()

	var props []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan property: %w", err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list properties rows: %w", err)
	}
	return props, nil
}

// ListByOwner returns one owner's properties ordered by id with pagination.
func (s *PropertyStore) ListByOwner(ctx context.Context, owner domain.ActorID, opts domain.ListOpts) ([]domain.Property, error) {
	query := `SELECT ` + propertyCols + ` FROM properties WHERE owner = $1 ORDER BY id`
	args := []any{owner}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list properties by owner: %w", err)
	}
	defer rows.Close()

	var props []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan property: %w", err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list properties by owner rows: %w", err)
	}
	return props, nil
}
