package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/aurelius-catalogue/internal/config"
	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            ":memory:",
		JournalMode:     "MEMORY",
		BusyTimeout:     5000,
		CacheSize:       -2000,
		SynchronousMode: "OFF",
		MaxOpenConns:    1,
	}

	db, err := NewDB(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func seedUser(t *testing.T, db *DB, username, email string) *domain.User {
	t.Helper()
	user := domain.NewUser(username, email)
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func seedTitle(t *testing.T, db *DB, name string, year int) *domain.Title {
	t.Helper()
	title := &domain.Title{Name: name, Year: year, CreatedAt: time.Now().UTC()}
	require.NoError(t, NewTitleRepository(db).Create(context.Background(), title, nil))
	return title
}

// =============================================================================
// Users
// =============================================================================

func TestUserRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := domain.NewUser("alice", "alice@example.com")
	user.Bio = "hello"
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "alice@example.com", got.Email)
	require.Equal(t, domain.RoleUser, got.Role)
	require.False(t, got.Active)
	require.False(t, got.IsSuperuser)
	require.Equal(t, "hello", got.Bio)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)

	got.Role = domain.RoleModerator
	got.Active = true
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleModerator, updated.Role)
	require.True(t, updated.Active)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err = repo.GetByID(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_UniqueIdentity(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewUser("alice", "alice@example.com")))

	err := repo.Create(ctx, domain.NewUser("alice", "other@example.com"))
	require.ErrorIs(t, err, domain.ErrDuplicateIdentity)

	err = repo.Create(ctx, domain.NewUser("bob", "alice@example.com"))
	require.ErrorIs(t, err, domain.ErrDuplicateIdentity)

	exists, err := repo.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.ExistsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestUserRepository_List(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		seedUser(t, db, name, name+"@example.com")
	}

	result, err := repo.List(ctx, repository.ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.EqualValues(t, 3, result.Total)

	rest, err := repo.List(ctx, repository.ListOptions{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
}

// =============================================================================
// Confirmation codes
// =============================================================================

func TestConfirmationCodeRepository_Upsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewConfirmationCodeRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice", "alice@example.com")
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stored, err := repo.Upsert(ctx, &domain.ConfirmationCode{
		UserID: user.ID, CodeHash: "hash-1", IssuedAt: issuedAt,
	}, issuedAt.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, stored)

	// A replacement whose cutoff predates the stored row is rejected and
	// leaves the row untouched.
	stored, err = repo.Upsert(ctx, &domain.ConfirmationCode{
		UserID: user.ID, CodeHash: "hash-2", IssuedAt: issuedAt.Add(20 * time.Second),
	}, issuedAt.Add(-40*time.Second))
	require.NoError(t, err)
	require.False(t, stored)

	current, err := repo.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "hash-1", current.CodeHash)
	require.True(t, current.IssuedAt.Equal(issuedAt))

	// A cutoff at or after the stored issue time lets the replacement in.
	stored, err = repo.Upsert(ctx, &domain.ConfirmationCode{
		UserID: user.ID, CodeHash: "hash-3", IssuedAt: issuedAt.Add(time.Minute),
	}, issuedAt)
	require.NoError(t, err)
	require.True(t, stored)

	current, err = repo.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "hash-3", current.CodeHash)
}

func TestConfirmationCodeRepository_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewConfirmationCodeRepository(db)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, &domain.ConfirmationCode{
		UserID: 999, CodeHash: "hash", IssuedAt: time.Now().UTC(),
	}, time.Now().UTC())
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByUserID(ctx, 999)
	require.ErrorIs(t, err, domain.ErrCodeNotFound)
}

func TestConfirmationCodeRepository_DeletedWithUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewConfirmationCodeRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice", "alice@example.com")
	_, err := repo.Upsert(ctx, &domain.ConfirmationCode{
		UserID: user.ID, CodeHash: "hash", IssuedAt: time.Now().UTC(),
	}, time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, NewUserRepository(db).Delete(ctx, user.ID))

	_, err = repo.GetByUserID(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrCodeNotFound)
}

// =============================================================================
// Categories & genres
// =============================================================================

func TestCategoryRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	film := &domain.Category{Name: "Film", Slug: "film"}
	require.NoError(t, repo.Create(ctx, film))
	require.NotZero(t, film.ID)

	err := repo.Create(ctx, &domain.Category{Name: "Films", Slug: "film"})
	require.ErrorIs(t, err, domain.ErrDuplicateSlug)

	require.NoError(t, repo.Create(ctx, &domain.Category{Name: "Book", Slug: "book"}))

	result, err := repo.List(ctx, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.Equal(t, "Book", result.Items[0].Name) // ordered by name

	require.NoError(t, repo.DeleteBySlug(ctx, "book"))
	require.ErrorIs(t, repo.DeleteBySlug(ctx, "book"), domain.ErrCategoryNotFound)

	_, err = repo.GetBySlug(ctx, "book")
	require.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestGenreRepository_GetBySlugs(t *testing.T) {
	db := newTestDB(t)
	repo := NewGenreRepository(db)
	ctx := context.Background()

	for _, g := range []string{"drama", "comedy", "thriller"} {
		require.NoError(t, repo.Create(ctx, &domain.Genre{Name: g, Slug: g}))
	}

	genres, err := repo.GetBySlugs(ctx, []string{"thriller", "drama"})
	require.NoError(t, err)
	require.Len(t, genres, 2)
	// Results come back in input order, not storage order.
	require.Equal(t, "thriller", genres[0].Slug)
	require.Equal(t, "drama", genres[1].Slug)

	_, err = repo.GetBySlugs(ctx, []string{"drama", "western"})
	require.ErrorIs(t, err, domain.ErrGenreNotFound)
}

// =============================================================================
// Titles
// =============================================================================

func TestTitleRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	titleRepo := NewTitleRepository(db)
	categoryRepo := NewCategoryRepository(db)
	genreRepo := NewGenreRepository(db)
	ctx := context.Background()

	film := &domain.Category{Name: "Film", Slug: "film"}
	require.NoError(t, categoryRepo.Create(ctx, film))

	drama := &domain.Genre{Name: "Drama", Slug: "drama"}
	comedy := &domain.Genre{Name: "Comedy", Slug: "comedy"}
	require.NoError(t, genreRepo.Create(ctx, drama))
	require.NoError(t, genreRepo.Create(ctx, comedy))

	title := &domain.Title{
		Name:        "Seven Samurai",
		Description: "Kurosawa",
		Year:        1954,
		Category:    film,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, titleRepo.Create(ctx, title, []int64{drama.ID, comedy.ID}))
	require.NotZero(t, title.ID)

	got, err := titleRepo.GetByID(ctx, title.ID)
	require.NoError(t, err)
	require.Equal(t, "Seven Samurai", got.Name)
	require.Equal(t, 1954, got.Year)
	require.NotNil(t, got.Category)
	require.Equal(t, "film", got.Category.Slug)
	require.Len(t, got.Genres, 2)
	require.Nil(t, got.Rating, "a title without reviews has no rating")

	_, err = titleRepo.GetByID(ctx, 999)
	require.ErrorIs(t, err, domain.ErrTitleNotFound)
}

func TestTitleRepository_UnknownGenre(t *testing.T) {
	db := newTestDB(t)
	titleRepo := NewTitleRepository(db)
	ctx := context.Background()

	title := &domain.Title{Name: "X", Year: 2000, CreatedAt: time.Now().UTC()}
	err := titleRepo.Create(ctx, title, []int64{999})
	require.ErrorIs(t, err, domain.ErrGenreNotFound)
}

func TestTitleRepository_List(t *testing.T) {
	db := newTestDB(t)
	titleRepo := NewTitleRepository(db)
	categoryRepo := NewCategoryRepository(db)
	genreRepo := NewGenreRepository(db)
	ctx := context.Background()

	film := &domain.Category{Name: "Film", Slug: "film"}
	book := &domain.Category{Name: "Book", Slug: "book"}
	require.NoError(t, categoryRepo.Create(ctx, film))
	require.NoError(t, categoryRepo.Create(ctx, book))

	drama := &domain.Genre{Name: "Drama", Slug: "drama"}
	require.NoError(t, genreRepo.Create(ctx, drama))

	seven := &domain.Title{Name: "Seven Samurai", Year: 1954, Category: film, CreatedAt: time.Now().UTC()}
	require.NoError(t, titleRepo.Create(ctx, seven, []int64{drama.ID}))

	hamlet := &domain.Title{Name: "Hamlet", Year: 1603, Category: book, CreatedAt: time.Now().UTC()}
	require.NoError(t, titleRepo.Create(ctx, hamlet, nil))

	opts := repository.ListOptions{Limit: 10}

	byCategory, err := titleRepo.List(ctx, repository.TitleFilter{CategorySlug: "film"}, opts)
	require.NoError(t, err)
	require.Len(t, byCategory.Items, 1)
	require.Equal(t, "Seven Samurai", byCategory.Items[0].Name)

	byGenre, err := titleRepo.List(ctx, repository.TitleFilter{GenreSlug: "drama"}, opts)
	require.NoError(t, err)
	require.Len(t, byGenre.Items, 1)

	year := 1603
	byYear, err := titleRepo.List(ctx, repository.TitleFilter{Year: &year}, opts)
	require.NoError(t, err)
	require.Len(t, byYear.Items, 1)
	require.Equal(t, "Hamlet", byYear.Items[0].Name)

	byName, err := titleRepo.List(ctx, repository.TitleFilter{Name: "Hamlet"}, opts)
	require.NoError(t, err)
	require.Len(t, byName.Items, 1)

	none, err := titleRepo.List(ctx, repository.TitleFilter{Name: "Macbeth"}, opts)
	require.NoError(t, err)
	require.Empty(t, none.Items)
	require.EqualValues(t, 0, none.Total)
}

func TestTitleRepository_Update(t *testing.T) {
	db := newTestDB(t)
	titleRepo := NewTitleRepository(db)
	genreRepo := NewGenreRepository(db)
	ctx := context.Background()

	drama := &domain.Genre{Name: "Drama", Slug: "drama"}
	comedy := &domain.Genre{Name: "Comedy", Slug: "comedy"}
	require.NoError(t, genreRepo.Create(ctx, drama))
	require.NoError(t, genreRepo.Create(ctx, comedy))

	title := &domain.Title{Name: "Old", Year: 2000, CreatedAt: time.Now().UTC()}
	require.NoError(t, titleRepo.Create(ctx, title, []int64{drama.ID}))

	// Nil genreIDs keeps the genre set.
	title.Name = "New"
	require.NoError(t, titleRepo.Update(ctx, title, nil))

	got, err := titleRepo.GetByID(ctx, title.ID)
	require.NoError(t, err)
	require.Equal(t, "New", got.Name)
	require.Len(t, got.Genres, 1)
	require.Equal(t, "drama", got.Genres[0].Slug)

	// Non-nil genreIDs replaces it.
	require.NoError(t, titleRepo.Update(ctx, title, []int64{comedy.ID}))
	got, err = titleRepo.GetByID(ctx, title.ID)
	require.NoError(t, err)
	require.Len(t, got.Genres, 1)
	require.Equal(t, "comedy", got.Genres[0].Slug)
}

func TestTitleRepository_CategoryDeleteDetaches(t *testing.T) {
	db := newTestDB(t)
	titleRepo := NewTitleRepository(db)
	categoryRepo := NewCategoryRepository(db)
	ctx := context.Background()

	film := &domain.Category{Name: "Film", Slug: "film"}
	require.NoError(t, categoryRepo.Create(ctx, film))

	title := &domain.Title{Name: "X", Year: 2000, Category: film, CreatedAt: time.Now().UTC()}
	require.NoError(t, titleRepo.Create(ctx, title, nil))

	require.NoError(t, categoryRepo.DeleteBySlug(ctx, "film"))

	// The title survives its category.
	got, err := titleRepo.GetByID(ctx, title.ID)
	require.NoError(t, err)
	require.Nil(t, got.Category)
}

// =============================================================================
// Reviews
// =============================================================================

func TestReviewRepository_CreateAndRating(t *testing.T) {
	db := newTestDB(t)
	reviewRepo := NewReviewRepository(db)
	titleRepo := NewTitleRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com")
	bob := seedUser(t, db, "bob", "bob@example.com")
	title := seedTitle(t, db, "Seven Samurai", 1954)

	review := &domain.Review{
		TitleID: title.ID, AuthorID: alice.ID,
		Text: "great", Score: 9, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, reviewRepo.Create(ctx, review))
	require.NotZero(t, review.ID)

	got, err := reviewRepo.GetByID(ctx, title.ID, review.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Author, "author username resolved on read")
	require.Equal(t, 9, got.Score)

	// Second reviewer moves the mean.
	require.NoError(t, reviewRepo.Create(ctx, &domain.Review{
		TitleID: title.ID, AuthorID: bob.ID,
		Text: "fine", Score: 6, CreatedAt: time.Now().UTC(),
	}))

	rated, err := titleRepo.GetByID(ctx, title.ID)
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	require.InDelta(t, 7.5, *rated.Rating, 0.001)
}

func TestReviewRepository_DuplicatePair(t *testing.T) {
	db := newTestDB(t)
	reviewRepo := NewReviewRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com")
	title := seedTitle(t, db, "X", 2000)

	require.NoError(t, reviewRepo.Create(ctx, &domain.Review{
		TitleID: title.ID, AuthorID: alice.ID, Text: "a", Score: 5, CreatedAt: time.Now().UTC(),
	}))

	err := reviewRepo.Create(ctx, &domain.Review{
		TitleID: title.ID, AuthorID: alice.ID, Text: "b", Score: 7, CreatedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, domain.ErrDuplicateReview)

	exists, err := reviewRepo.ExistsByTitleAndAuthor(ctx, title.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestReviewRepository_ListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	reviewRepo := NewReviewRepository(db)
	ctx := context.Background()

	title := seedTitle(t, db, "X", 2000)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"alice", "bob", "carol"} {
		user := seedUser(t, db, name, name+"@example.com")
		require.NoError(t, reviewRepo.Create(ctx, &domain.Review{
			TitleID: title.ID, AuthorID: user.ID, Text: "r", Score: 5,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	result, err := reviewRepo.ListByTitle(ctx, title.ID, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	require.Equal(t, "carol", result.Items[0].Author)
	require.Equal(t, "alice", result.Items[2].Author)
}

func TestReviewRepository_TitleCascade(t *testing.T) {
	db := newTestDB(t)
	reviewRepo := NewReviewRepository(db)
	titleRepo := NewTitleRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com")
	title := seedTitle(t, db, "X", 2000)

	require.NoError(t, reviewRepo.Create(ctx, &domain.Review{
		TitleID: title.ID, AuthorID: alice.ID, Text: "r", Score: 5, CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, titleRepo.Delete(ctx, title.ID))

	exists, err := reviewRepo.ExistsByTitleAndAuthor(ctx, title.ID, alice.ID)
	require.NoError(t, err)
	require.False(t, exists, "deleting a title removes its reviews")
}

// =============================================================================
// Comments
// =============================================================================

func TestCommentRepository(t *testing.T) {
	db := newTestDB(t)
	reviewRepo := NewReviewRepository(db)
	commentRepo := NewCommentRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com")
	bob := seedUser(t, db, "bob", "bob@example.com")
	title := seedTitle(t, db, "X", 2000)

	review := &domain.Review{
		TitleID: title.ID, AuthorID: alice.ID, Text: "r", Score: 5, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, reviewRepo.Create(ctx, review))

	comment := &domain.Comment{
		ReviewID: review.ID, AuthorID: bob.ID, Text: "agreed", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, commentRepo.Create(ctx, comment))
	require.NotZero(t, comment.ID)

	got, err := commentRepo.GetByID(ctx, review.ID, comment.ID)
	require.NoError(t, err)
	require.Equal(t, "bob", got.Author)

	// Scoped lookup: the comment is not reachable under another review.
	_, err = commentRepo.GetByID(ctx, review.ID+1, comment.ID)
	require.ErrorIs(t, err, domain.ErrCommentNotFound)

	comment.Text = "changed"
	require.NoError(t, commentRepo.Update(ctx, comment))

	list, err := commentRepo.ListByReview(ctx, review.ID, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, "changed", list.Items[0].Text)

	// Deleting the review removes its comments.
	require.NoError(t, reviewRepo.Delete(ctx, review.ID))
	_, err = commentRepo.GetByID(ctx, review.ID, comment.ID)
	require.ErrorIs(t, err, domain.ErrCommentNotFound)
}
