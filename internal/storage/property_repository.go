package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/locapp/backend/internal/storage/models"
)

// ErrNotFound is returned by mutating repository methods when no row matches.
var ErrNotFound = errors.New("not found")

// PropertyRepository provides data access for properties.
type PropertyRepository struct {
	BaseRepository
}

// NewPropertyRepository creates a new property repository.
func NewPropertyRepository(db *DB) *PropertyRepository {
	return &PropertyRepository{BaseRepository: NewBaseRepository(db)}
}

// Create inserts a new property.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	p.ID = GenerateID()
	p.CreatedAt = r.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.Q().ExecContext(ctx, `
		INSERT INTO properties (id, name, slug, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Slug, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting property: %w", err)
	}
	return nil
}

// GetByID retrieves a property by its ID. It returns nil when absent.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	return r.getOne(ctx, "SELECT id, name, slug, created_at, updated_at FROM properties WHERE id = ?", id)
}

// GetBySlug retrieves a property by its public slug. It returns nil when absent.
func (r *PropertyRepository) GetBySlug(ctx context.Context, slug string) (*models.Property, error) {
	return r.getOne(ctx, "SELECT id, name, slug, created_at, updated_at FROM properties WHERE slug = ?", slug)
}

func (r *PropertyRepository) getOne(ctx context.Context, query string, arg any) (*models.Property, error) {
	p := &models.Property{}
	err := r.Q().QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.Name, &p.Slug, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying property: %w", err)
	}
	return p, nil
}

// List retrieves all properties ordered by name.
func (r *PropertyRepository) List(ctx context.Context) ([]models.Property, error) {
	rows, err := r.Q().QueryContext(ctx, "SELECT id, name, slug, created_at, updated_at FROM properties ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}
