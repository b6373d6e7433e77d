package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// titleRepository implements repository.TitleRepository for PostgreSQL.
type titleRepository struct {
	db *DB
}

// NewTitleRepository creates a new PostgreSQL title repository.
func NewTitleRepository(db *DB) repository.TitleRepository {
	return &titleRepository{db: db}
}

// titleSelect fetches a title joined with its optional category and the
// aggregate rating. Rating rides along as a subquery so a single fetch and a
// list fetch always agree.
const titleSelect = `
	SELECT
		t.id, t.name, t.description, t.year, t.created_at,
		c.id, c.name, c.slug,
		(SELECT AVG(r.score) FROM reviews r WHERE r.title_id = t.id) AS rating
	FROM titles t
	LEFT JOIN categories c ON c.id = t.category_id
`

// Create creates a title and attaches its genres in one transaction.
func (r *titleRepository) Create(ctx context.Context, title *domain.Title, genreIDs []int64) error {
	return r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var categoryID *int64
		if title.Category != nil {
			categoryID = &title.Category.ID
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO titles (name, description, year, category_id, created_at)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			title.Name, title.Description, title.Year, categoryID, title.CreatedAt,
		).Scan(&title.ID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrCategoryNotFound
			}
			return fmt.Errorf("failed to create title: %w", err)
		}

		return attachGenres(ctx, tx, title.ID, genreIDs)
	})
}

// GetByID retrieves a title with category, genres, and rating.
func (r *titleRepository) GetByID(ctx context.Context, id int64) (*domain.Title, error) {
	row := r.db.Pool.QueryRow(ctx, titleSelect+` WHERE t.id = $1`, id)
	title, err := scanTitle(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTitleNotFound
		}
		return nil, fmt.Errorf("failed to get title: %w", err)
	}

	genres, err := r.loadGenres(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	title.Genres = genres[id]

	return title, nil
}

// List returns titles matching the filter, with category, genres, and rating.
func (r *titleRepository) List(ctx context.Context, filter repository.TitleFilter, opts repository.ListOptions) (*repository.ListResult[domain.Title], error) {
	where, args := buildTitleFilter(filter)

	countQuery := `SELECT COUNT(*) FROM titles t LEFT JOIN categories c ON c.id = t.category_id` + where
	var total int64
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count titles: %w", err)
	}

	query := fmt.Sprintf("%s%s ORDER BY t.created_at DESC, t.id DESC LIMIT $%d OFFSET $%d",
		titleSelect, where, len(args)+1, len(args)+2)
	rows, err := r.db.Pool.Query(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	defer rows.Close()

	var titles []*domain.Title
	var ids []int64
	for rows.Next() {
		title, err := scanTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, title)
		ids = append(ids, title.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating titles: %w", err)
	}

	if len(ids) > 0 {
		genres, err := r.loadGenres(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, title := range titles {
			title.Genres = genres[title.ID]
		}
	}

	return &repository.ListResult[domain.Title]{
		Items:  titles,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Update rewrites the title's fields and, when genreIDs is non-nil, replaces
// its genre set.
func (r *titleRepository) Update(ctx context.Context, title *domain.Title, genreIDs []int64) error {
	return r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var categoryID *int64
		if title.Category != nil {
			categoryID = &title.Category.ID
		}

		tag, err := tx.Exec(ctx,
			`UPDATE titles SET name = $1, description = $2, year = $3, category_id = $4 WHERE id = $5`,
			title.Name, title.Description, title.Year, categoryID, title.ID,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrCategoryNotFound
			}
			return fmt.Errorf("failed to update title: %w", err)
		}

		if tag.RowsAffected() == 0 {
			return domain.ErrTitleNotFound
		}

		if genreIDs == nil {
			return nil
		}

		if _, err := tx.Exec(ctx, `DELETE FROM title_genres WHERE title_id = $1`, title.ID); err != nil {
			return fmt.Errorf("failed to detach genres: %w", err)
		}

		return attachGenres(ctx, tx, title.ID, genreIDs)
	})
}

// Delete deletes a title. Reviews and comments go with it via cascade.
func (r *titleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM titles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete title: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTitleNotFound
	}

	return nil
}

// attachGenres inserts junction rows for the given genres.
func attachGenres(ctx context.Context, tx pgx.Tx, titleID int64, genreIDs []int64) error {
	for _, genreID := range genreIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO title_genres (title_id, genre_id) VALUES ($1, $2)`,
			titleID, genreID,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrGenreNotFound
			}
			return fmt.Errorf("failed to attach genre: %w", err)
		}
	}
	return nil
}

// loadGenres batch-loads genres for a set of titles, ordered by name within
// each title.
func (r *titleRepository) loadGenres(ctx context.Context, titleIDs []int64) (map[int64][]domain.Genre, error) {
	query := `
		SELECT tg.title_id, g.id, g.name, g.slug
		FROM title_genres tg
		JOIN genres g ON g.id = tg.genre_id
		WHERE tg.title_id = ANY($1)
		ORDER BY g.name, g.id
	`

	rows, err := r.db.Pool.Query(ctx, query, titleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load genres: %w", err)
	}
	defer rows.Close()

	genres := make(map[int64][]domain.Genre, len(titleIDs))
	for rows.Next() {
		var titleID int64
		var genre domain.Genre
		if err := rows.Scan(&titleID, &genre.ID, &genre.Name, &genre.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres[titleID] = append(genres[titleID], genre)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating genres: %w", err)
	}

	return genres, nil
}

// buildTitleFilter translates a filter into a WHERE clause. All matches are
// exact; the genre filter is an EXISTS over the junction table.
func buildTitleFilter(filter repository.TitleFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.CategorySlug != "" {
		args = append(args, filter.CategorySlug)
		conds = append(conds, fmt.Sprintf(`c.slug = $%d`, len(args)))
	}
	if filter.GenreSlug != "" {
		args = append(args, filter.GenreSlug)
		conds = append(conds, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM title_genres tg
			JOIN genres g ON g.id = tg.genre_id
			WHERE tg.title_id = t.id AND g.slug = $%d
		)`, len(args)))
	}
	if filter.Name != "" {
		args = append(args, filter.Name)
		conds = append(conds, fmt.Sprintf(`t.name = $%d`, len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		conds = append(conds, fmt.Sprintf(`t.year = $%d`, len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanTitle scans one title row from titleSelect.
func scanTitle(row pgx.Row) (*domain.Title, error) {
	title := &domain.Title{}
	var categoryID *int64
	var categoryName, categorySlug *string
	var rating *float64

	err := row.Scan(
		&title.ID,
		&title.Name,
		&title.Description,
		&title.Year,
		&title.CreatedAt,
		&categoryID,
		&categoryName,
		&categorySlug,
		&rating,
	)
	if err != nil {
		return nil, err
	}

	if categoryID != nil {
		title.Category = &domain.Category{
			ID:   *categoryID,
			Name: *categoryName,
			Slug: *categorySlug,
		}
	}
	title.Rating = rating

	return title, nil
}

// Ensure titleRepository implements repository.TitleRepository.
var _ repository.TitleRepository = (*titleRepository)(nil)
