package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// slugCacheTTL bounds staleness if an invalidation is lost.
const slugCacheTTL = 15 * time.Minute

// CatalogService handles categories, genres, and titles.
//
// Category and genre slug lookups run on every title write and are nearly
// immutable, so they go through the cache; admin writes invalidate the
// affected slug. Cache failures degrade to database reads.
type CatalogService struct {
	categoryRepo repository.CategoryRepository
	genreRepo    repository.GenreRepository
	titleRepo    repository.TitleRepository
	cache        repository.Cache
	logger       zerolog.Logger

	// now is the clock, injectable for tests. It bounds title years.
	now func() time.Time
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	genreRepo repository.GenreRepository,
	titleRepo repository.TitleRepository,
	cache repository.Cache,
	logger zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		categoryRepo: categoryRepo,
		genreRepo:    genreRepo,
		titleRepo:    titleRepo,
		cache:        cache,
		logger:       logger.With().Str("service", "catalog").Logger(),
		now:          time.Now,
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateClassifierInput contains the data for a new category or genre.
type CreateClassifierInput struct {
	Name string
	Slug string
}

// ListInput contains pagination for classifier and title listings.
type ListInput struct {
	Offset int
	Limit  int
}

// CreateTitleInput contains the data needed to create a title.
type CreateTitleInput struct {
	Name         string
	Description  string
	Year         int
	CategorySlug string
	GenreSlugs   []string
}

// UpdateTitleInput contains a partial title update. Nil fields are untouched.
type UpdateTitleInput struct {
	TitleID int64

	Name         *string
	Description  *string
	Year         *int
	CategorySlug *string
	GenreSlugs   []string
}

// ListTitlesInput combines the title filter with pagination.
type ListTitlesInput struct {
	CategorySlug string
	GenreSlug    string
	Name         string
	Year         *int

	Offset int
	Limit  int
}

// =============================================================================
// Categories
// =============================================================================

// CreateCategory creates a new category.
func (s *CatalogService) CreateCategory(ctx context.Context, input CreateClassifierInput) (*domain.Category, error) {
	category := &domain.Category{Name: input.Name, Slug: input.Slug}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, domain.ErrDuplicateSlug) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("slug", input.Slug).Msg("failed to create category")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidateSlug(ctx, categoryCacheKey(category.Slug))
	s.logger.Info().Str("slug", category.Slug).Msg("category created")
	return category, nil
}

// ListCategories returns categories ordered by name.
func (s *CatalogService) ListCategories(ctx context.Context, input ListInput) (*repository.ListResult[domain.Category], error) {
	result, err := s.categoryRepo.List(ctx, repository.ListOptions{Offset: input.Offset, Limit: input.Limit})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list categories")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// DeleteCategory deletes a category by slug. Titles that referenced it
// survive with no category.
func (s *CatalogService) DeleteCategory(ctx context.Context, slug string) error {
	if err := s.categoryRepo.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return err
		}
		s.logger.Error().Err(err).Str("slug", slug).Msg("failed to delete category")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidateSlug(ctx, categoryCacheKey(slug))
	s.logger.Info().Str("slug", slug).Msg("category deleted")
	return nil
}

// cachedCategory is the cache encoding. The Category's API JSON shape
// omits the ID, which the title writes need back.
type cachedCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// getCategoryBySlug resolves a category slug, via the cache when possible.
func (s *CatalogService) getCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	key := categoryCacheKey(slug)

	if data, err := s.cache.Get(ctx, key); err == nil {
		var cached cachedCategory
		if json.Unmarshal(data, &cached) == nil && cached.ID != 0 {
			return &domain.Category{ID: cached.ID, Name: cached.Name, Slug: cached.Slug}, nil
		}
	}

	category, err := s.categoryRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(cachedCategory{ID: category.ID, Name: category.Name, Slug: category.Slug}); err == nil {
		if err := s.cache.Set(ctx, key, data, slugCacheTTL); err != nil {
			s.logger.Debug().Err(err).Str("key", key).Msg("failed to cache category")
		}
	}

	return category, nil
}

// =============================================================================
// Genres
// =============================================================================

// CreateGenre creates a new genre.
func (s *CatalogService) CreateGenre(ctx context.Context, input CreateClassifierInput) (*domain.Genre, error) {
	genre := &domain.Genre{Name: input.Name, Slug: input.Slug}
	if err := s.genreRepo.Create(ctx, genre); err != nil {
		if errors.Is(err, domain.ErrDuplicateSlug) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("slug", input.Slug).Msg("failed to create genre")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidateSlug(ctx, genreCacheKey(genre.Slug))
	s.logger.Info().Str("slug", genre.Slug).Msg("genre created")
	return genre, nil
}

// ListGenres returns genres ordered by name.
func (s *CatalogService) ListGenres(ctx context.Context, input ListInput) (*repository.ListResult[domain.Genre], error) {
	result, err := s.genreRepo.List(ctx, repository.ListOptions{Offset: input.Offset, Limit: input.Limit})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list genres")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// DeleteGenre deletes a genre by slug, detaching it from titles.
func (s *CatalogService) DeleteGenre(ctx context.Context, slug string) error {
	if err := s.genreRepo.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, domain.ErrGenreNotFound) {
			return err
		}
		s.logger.Error().Err(err).Str("slug", slug).Msg("failed to delete genre")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidateSlug(ctx, genreCacheKey(slug))
	s.logger.Info().Str("slug", slug).Msg("genre deleted")
	return nil
}

// =============================================================================
// Titles
// =============================================================================

// CreateTitle creates a title with its category and at least one genre.
func (s *CatalogService) CreateTitle(ctx context.Context, input CreateTitleInput) (*domain.Title, error) {
	if len(input.GenreSlugs) == 0 {
		return nil, domain.NewValidationError("genre", "at least one genre is required")
	}

	title := &domain.Title{
		Name:        input.Name,
		Description: input.Description,
		Year:        input.Year,
		CreatedAt:   s.now().UTC(),
	}
	if !title.ValidYear(s.now()) {
		return nil, domain.NewValidationError("year", "release year cannot be in the future")
	}

	if input.CategorySlug != "" {
		category, err := s.getCategoryBySlug(ctx, input.CategorySlug)
		if err != nil {
			if errors.Is(err, domain.ErrCategoryNotFound) {
				return nil, err
			}
			s.logger.Error().Err(err).Str("slug", input.CategorySlug).Msg("failed to resolve category")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		title.Category = category
	}

	genres, err := s.genreRepo.GetBySlugs(ctx, input.GenreSlugs)
	if err != nil {
		if errors.Is(err, domain.ErrGenreNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Msg("failed to resolve genres")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	title.Genres = genres

	genreIDs := make([]int64, len(genres))
	for i, g := range genres {
		genreIDs[i] = g.ID
	}

	if err := s.titleRepo.Create(ctx, title, genreIDs); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) || errors.Is(err, domain.ErrGenreNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("name", input.Name).Msg("failed to create title")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("title_id", title.ID).Str("name", title.Name).Msg("title created")
	return title, nil
}

// GetTitle retrieves a title with its rating.
func (s *CatalogService) GetTitle(ctx context.Context, id int64) (*domain.Title, error) {
	title, err := s.titleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTitleNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("title_id", id).Msg("failed to get title")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return title, nil
}

// ListTitles returns titles matching the filter.
func (s *CatalogService) ListTitles(ctx context.Context, input ListTitlesInput) (*repository.ListResult[domain.Title], error) {
	filter := repository.TitleFilter{
		CategorySlug: input.CategorySlug,
		GenreSlug:    input.GenreSlug,
		Name:         input.Name,
		Year:         input.Year,
	}

	result, err := s.titleRepo.List(ctx, filter, repository.ListOptions{Offset: input.Offset, Limit: input.Limit})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list titles")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// UpdateTitle applies a partial update to a title. A nil GenreSlugs keeps
// the existing genre set; an empty non-nil one is rejected.
func (s *CatalogService) UpdateTitle(ctx context.Context, input UpdateTitleInput) (*domain.Title, error) {
	title, err := s.GetTitle(ctx, input.TitleID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		title.Name = *input.Name
	}
	if input.Description != nil {
		title.Description = *input.Description
	}
	if input.Year != nil {
		title.Year = *input.Year
		if !title.ValidYear(s.now()) {
			return nil, domain.NewValidationError("year", "release year cannot be in the future")
		}
	}
	if input.CategorySlug != nil {
		if *input.CategorySlug == "" {
			title.Category = nil
		} else {
			category, err := s.getCategoryBySlug(ctx, *input.CategorySlug)
			if err != nil {
				if errors.Is(err, domain.ErrCategoryNotFound) {
					return nil, err
				}
				s.logger.Error().Err(err).Str("slug", *input.CategorySlug).Msg("failed to resolve category")
				return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
			}
			title.Category = category
		}
	}

	var genreIDs []int64
	if input.GenreSlugs != nil {
		if len(input.GenreSlugs) == 0 {
			return nil, domain.NewValidationError("genre", "at least one genre is required")
		}
		genres, err := s.genreRepo.GetBySlugs(ctx, input.GenreSlugs)
		if err != nil {
			if errors.Is(err, domain.ErrGenreNotFound) {
				return nil, err
			}
			s.logger.Error().Err(err).Msg("failed to resolve genres")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		title.Genres = genres
		genreIDs = make([]int64, len(genres))
		for i, g := range genres {
			genreIDs[i] = g.ID
		}
	}

	if err := s.titleRepo.Update(ctx, title, genreIDs); err != nil {
		if errors.Is(err, domain.ErrTitleNotFound) ||
			errors.Is(err, domain.ErrCategoryNotFound) ||
			errors.Is(err, domain.ErrGenreNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("title_id", input.TitleID).Msg("failed to update title")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return title, nil
}

// DeleteTitle deletes a title and, via cascade, its reviews and comments.
func (s *CatalogService) DeleteTitle(ctx context.Context, id int64) error {
	if err := s.titleRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrTitleNotFound) {
			return err
		}
		s.logger.Error().Err(err).Int64("title_id", id).Msg("failed to delete title")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("title_id", id).Msg("title deleted")
	return nil
}

// =============================================================================
// Cache Keys
// =============================================================================

func categoryCacheKey(slug string) string {
	return "catalog:category:" + slug
}

func genreCacheKey(slug string) string {
	return "catalog:genre:" + slug
}

// invalidateSlug drops a cached slug lookup. A failed delete only extends
// staleness until the TTL fires.
func (s *CatalogService) invalidateSlug(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("failed to invalidate cache entry")
	}
}
