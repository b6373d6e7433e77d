package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// genreRepository implements repository.GenreRepository for SQLite.
type genreRepository struct {
	db *DB
}

// NewGenreRepository creates a new SQLite genre repository.
func NewGenreRepository(db *DB) repository.GenreRepository {
	return &genreRepository{db: db}
}

// Create creates a new genre.
func (r *genreRepository) Create(ctx context.Context, genre *domain.Genre) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO genres (name, slug) VALUES (?, ?)`,
		genre.Name, genre.Slug,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateSlug, genre.Slug)
		}
		return fmt.Errorf("failed to create genre: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	genre.ID = id

	return nil
}

// GetBySlug retrieves a genre by slug.
func (r *genreRepository) GetBySlug(ctx context.Context, slug string) (*domain.Genre, error) {
	genre := &domain.Genre{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM genres WHERE slug = ?`, slug,
	).Scan(&genre.ID, &genre.Name, &genre.Slug)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrGenreNotFound
		}
		return nil, fmt.Errorf("failed to get genre: %w", err)
	}
	return genre, nil
}

// GetBySlugs resolves a set of slugs in one query. Every slug must resolve;
// an unknown slug fails the whole lookup with domain.ErrGenreNotFound.
func (r *genreRepository) GetBySlugs(ctx context.Context, slugs []string) ([]domain.Genre, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(slugs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(slugs))
	for i, slug := range slugs {
		args[i] = slug
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug FROM genres WHERE slug IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve genre slugs: %w", err)
	}
	defer rows.Close()

	found := make(map[string]domain.Genre, len(slugs))
	for rows.Next() {
		var genre domain.Genre
		if err := rows.Scan(&genre.ID, &genre.Name, &genre.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		found[genre.Slug] = genre
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating genres: %w", err)
	}

	genres := make([]domain.Genre, 0, len(slugs))
	for _, slug := range slugs {
		genre, ok := found[slug]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrGenreNotFound, slug)
		}
		genres = append(genres, genre)
	}

	return genres, nil
}

// List returns genres ordered by name.
func (r *genreRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Genre], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM genres`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count genres: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug FROM genres ORDER BY name, id LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	defer rows.Close()

	var genres []*domain.Genre
	for rows.Next() {
		genre := &domain.Genre{}
		if err := rows.Scan(&genre.ID, &genre.Name, &genre.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, genre)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating genres: %w", err)
	}

	return &repository.ListResult[domain.Genre]{
		Items:  genres,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// DeleteBySlug deletes a genre. The junction rows go with it via cascade.
func (r *genreRepository) DeleteBySlug(ctx context.Context, slug string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM genres WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("failed to delete genre: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrGenreNotFound
	}

	return nil
}

// Ensure genreRepository implements repository.GenreRepository.
var _ repository.GenreRepository = (*genreRepository)(nil)
