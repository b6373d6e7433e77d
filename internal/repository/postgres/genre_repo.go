package postgres

import (
	"context"
	"fmt"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// genreRepository implements repository.GenreRepository for PostgreSQL.
type genreRepository struct {
	db *DB
}

// NewGenreRepository creates a new PostgreSQL genre repository.
func NewGenreRepository(db *DB) repository.GenreRepository {
	return &genreRepository{db: db}
}

// Create creates a new genre.
func (r *genreRepository) Create(ctx context.Context, genre *domain.Genre) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO genres (name, slug) VALUES ($1, $2) RETURNING id`,
		genre.Name, genre.Slug,
	).Scan(&genre.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateSlug, genre.Slug)
		}
		return fmt.Errorf("failed to create genre: %w", err)
	}
	return nil
}

// GetBySlug retrieves a genre by slug.
func (r *genreRepository) GetBySlug(ctx context.Context, slug string) (*domain.Genre, error) {
	genre := &domain.Genre{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, slug FROM genres WHERE slug = $1`, slug,
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

	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, slug FROM genres WHERE slug = ANY($1)`,
		slugs,
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
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM genres`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count genres: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, slug FROM genres ORDER BY name, id LIMIT $1 OFFSET $2`,
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
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM genres WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("failed to delete genre: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrGenreNotFound
	}

	return nil
}

// Ensure genreRepository implements repository.GenreRepository.
var _ repository.GenreRepository = (*genreRepository)(nil)
