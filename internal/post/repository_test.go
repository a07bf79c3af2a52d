package post

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MalikAqeelArshad/blog-crud/internal/apperr"
	"github.com/MalikAqeelArshad/blog-crud/internal/dbtest"
	"github.com/MalikAqeelArshad/blog-crud/internal/events"
	"github.com/MalikAqeelArshad/blog-crud/internal/like"
	"github.com/MalikAqeelArshad/blog-crud/internal/user"
)

type recordingCache struct {
	like.NopCache
	mu          sync.Mutex
	invalidated []uint
}

func (c *recordingCache) Invalidate(_ context.Context, postID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, postID)
}

type fixture struct {
	db       *gorm.DB
	repo     *Repository
	recorder *events.Recorder
	cache    *recordingCache
	alice    user.User
	bob      user.User
	carol    user.User // email non vérifié
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t, &user.User{}, &Post{}, &like.Like{})
	verified := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	f := &fixture{
		db:       db,
		recorder: &events.Recorder{},
		cache:    &recordingCache{},
		alice:    user.User{ID: "alice", Name: "Alice Martin", Email: "alice@example.com", EmailVerifiedAt: &verified},
		bob:      user.User{ID: "bob", Name: "Bob Durand", Email: "bob@example.com", EmailVerifiedAt: &verified},
		carol:    user.User{ID: "carol", Name: "Carol", Email: "carol@example.com"},
	}
	f.repo = NewRepository(db, time.UTC, f.cache, f.recorder)

	for _, u := range []user.User{f.alice, f.bob, f.carol} {
		u := u
		require.NoError(t, db.Create(&u).Error)
	}
	return f
}

func (f *fixture) insert(t *testing.T, author user.User, title, description string, public bool, createdAt time.Time) Post {
	t.Helper()
	p := Post{
		UserID:      author.ID,
		Title:       title,
		Description: description,
		IsPublic:    public,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func ids(posts []Post) []uint {
	out := make([]uint, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }

func TestListVisibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	private := f.insert(t, f.alice, "Journal intime", "Des pensées très personnelles", false, day)
	public := f.insert(t, f.alice, "Billet public", "Un texte lisible par tout le monde", true, day.Add(time.Minute))

	filterSets := []Filters{
		{},
		{Search: "journal"},
		{Author: "alice"},
		{Date: "2026-10-18"},
		{Search: "pensées", Author: "Martin", Date: "2026-10-18"},
	}

	for i, filters := range filterSets {
		t.Run(fmt.Sprintf("filters %d", i), func(t *testing.T) {
			res, err := f.repo.List(ctx, f.bob, filters, 1)
			require.NoError(t, err)
			assert.NotContains(t, ids(res.Items), private.ID)

			res, err = f.repo.List(ctx, f.alice, filters, 1)
			require.NoError(t, err)
			assert.Contains(t, ids(res.Items), private.ID)
		})
	}

	res, err := f.repo.List(ctx, f.bob, Filters{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{public.ID}, ids(res.Items))
	assert.EqualValues(t, 1, res.TotalCount)

	res, err = f.repo.List(ctx, f.alice, Filters{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{public.ID, private.ID}, ids(res.Items))
}

func TestListFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d18 := time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
	d19 := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	hello := f.insert(t, f.alice, "Hello World", "This is a sufficiently long description.", true, d18)
	golang := f.insert(t, f.bob, "Notes Go", "Les canaux et les goroutines, HELLO encore", true, d19)
	percent := f.insert(t, f.bob, "Remise 100%", "Une offre promotionnelle a saisir", true, d19.Add(time.Hour))

	tests := []struct {
		name     string
		filters  Filters
		expected []uint
	}{
		{name: "No filter", filters: Filters{}, expected: []uint{percent.ID, golang.ID, hello.ID}},
		{name: "Search is case-insensitive on title or description", filters: Filters{Search: "hello"}, expected: []uint{golang.ID, hello.ID}},
		{name: "Search on description only", filters: Filters{Search: "GOROUTINES"}, expected: []uint{golang.ID}},
		{name: "Search wildcard is literal", filters: Filters{Search: "%"}, expected: []uint{percent.ID}},
		{name: "Search underscore is literal", filters: Filters{Search: "_"}, expected: []uint{}},
		{name: "Author substring", filters: Filters{Author: "duRAND"}, expected: []uint{percent.ID, golang.ID}},
		{name: "Unknown author", filters: Filters{Author: "zoe"}, expected: []uint{}},
		{name: "Exact calendar date", filters: Filters{Date: "2026-10-18"}, expected: []uint{hello.ID}},
		{name: "Other calendar date", filters: Filters{Date: "2026-10-19"}, expected: []uint{percent.ID, golang.ID}},
		{name: "Malformed date is ignored", filters: Filters{Date: "18/10/2026"}, expected: []uint{percent.ID, golang.ID, hello.ID}},
		{name: "Blank values are ignored", filters: Filters{Search: "   ", Author: " "}, expected: []uint{percent.ID, golang.ID, hello.ID}},
		{name: "Filters are conjunctive", filters: Filters{Search: "hello", Author: "bob"}, expected: []uint{golang.ID}},
		{name: "Conjunction without match", filters: Filters{Search: "hello", Date: "2026-10-20"}, expected: []uint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.repo.List(ctx, f.carol, tt.filters, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(res.Items))
			assert.EqualValues(t, len(tt.expected), res.TotalCount)
		})
	}
}

func TestListDateUsesApplicationTimezone(t *testing.T) {
	f := setup(t)
	repo := NewRepository(f.db, time.FixedZone("CEST", 2*60*60), nil, nil)

	// 22h30 UTC le 18 = 00h30 le 19 en heure locale
	late := f.insert(t, f.alice, "Minuit passé", "Publié juste après minuit à Paris", true, time.Date(2026, 10, 18, 22, 30, 0, 0, time.UTC))

	res, err := repo.List(context.Background(), f.bob, Filters{Date: "2026-10-19"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{late.ID}, ids(res.Items))

	res, err = repo.List(context.Background(), f.bob, Filters{Date: "2026-10-18"}, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestListOrderingAndPagination(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	var all []Post
	for i := 0; i < 23; i++ {
		// Deux posts par minute : l'id départage les égalités
		createdAt := base.Add(time.Duration(i/2) * time.Minute)
		all = append(all, f.insert(t, f.alice, fmt.Sprintf("Post %02d", i), "Une description assez longue", true, createdAt))
	}

	var expected []uint
	for i := len(all) - 1; i >= 0; i-- {
		expected = append(expected, all[i].ID)
	}

	tests := []struct {
		name         string
		page         int
		expectedPage int
		expectedIDs  []uint
	}{
		{name: "First page", page: 1, expectedPage: 1, expectedIDs: expected[0:10]},
		{name: "Second page", page: 2, expectedPage: 2, expectedIDs: expected[10:20]},
		{name: "Last page", page: 3, expectedPage: 3, expectedIDs: expected[20:23]},
		{name: "Page beyond the end is clamped", page: 99, expectedPage: 3, expectedIDs: expected[20:23]},
		{name: "Zero page is clamped", page: 0, expectedPage: 1, expectedIDs: expected[0:10]},
		{name: "Negative page is clamped", page: -4, expectedPage: 1, expectedIDs: expected[0:10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.repo.List(ctx, f.bob, Filters{}, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPage, res.Page)
			assert.Equal(t, tt.expectedIDs, ids(res.Items))
			assert.EqualValues(t, 23, res.TotalCount)
			assert.Equal(t, 3, res.LastPage)
			assert.Equal(t, PerPage, res.PerPage)
		})
	}
}

func TestListEmpty(t *testing.T) {
	f := setup(t)

	res, err := f.repo.List(context.Background(), f.bob, Filters{Search: "rien"}, 5)
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 1, res.LastPage)
}

func TestListEnrichesAuthorAndLikes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.insert(t, f.alice, "Hello World", "This is a sufficiently long description.", true, time.Now().UTC())

	require.NoError(t, f.db.Create(&like.Like{UserID: "bob", PostID: p.ID}).Error)
	require.NoError(t, f.db.Create(&like.Like{UserID: "carol", PostID: p.ID}).Error)

	res, err := f.repo.List(ctx, f.bob, Filters{}, 1)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	item := res.Items[0]
	assert.Equal(t, user.Summary{ID: "alice", Name: "Alice Martin"}, item.Author)
	assert.Equal(t, 2, item.LikeCount)
	assert.True(t, item.LikedByMe)
	assert.Equal(t, []string{"bob", "carol"}, []string{item.Likes[0].UserID, item.Likes[1].UserID})

	res, err = f.repo.List(ctx, f.alice, Filters{}, 1)
	require.NoError(t, err)
	assert.False(t, res.Items[0].LikedByMe)
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name           string
		author         func(f *fixture) user.User
		input          Input
		expectedError  error
		expectedFields []string
	}{
		{
			name:   "Valid public post",
			author: func(f *fixture) user.User { return f.alice },
			input:  Input{Title: "Hello World", Description: "This is a sufficiently long description.", IsPublic: boolPtr(true)},
		},
		{
			name:   "Title of 255 characters",
			author: func(f *fixture) user.User { return f.alice },
			input:  Input{Title: strings.Repeat("é", 255), Description: "Une description valide", IsPublic: boolPtr(false)},
		},
		{
			name:           "Title of 256 characters",
			author:         func(f *fixture) user.User { return f.alice },
			input:          Input{Title: strings.Repeat("é", 256), Description: "Une description valide", IsPublic: boolPtr(false)},
			expectedFields: []string{"title"},
		},
		{
			name:           "Short description",
			author:         func(f *fixture) user.User { return f.alice },
			input:          Input{Title: "Hello", Description: "short", IsPublic: boolPtr(true)},
			expectedFields: []string{"description"},
		},
		{
			name:           "Blank title and missing visibility",
			author:         func(f *fixture) user.User { return f.alice },
			input:          Input{Title: "   ", Description: "Une description valide"},
			expectedFields: []string{"title", "is_public"},
		},
		{
			name:          "Unverified author",
			author:        func(f *fixture) user.User { return f.carol },
			input:         Input{Title: "Hello", Description: "Une description valide", IsPublic: boolPtr(true)},
			expectedError: apperr.ErrEmailNotVerified,
		},
		{
			name:          "Unverified author with invalid input",
			author:        func(f *fixture) user.User { return f.carol },
			input:         Input{Description: "court"},
			expectedError: apperr.ErrEmailNotVerified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			author := tt.author(f)

			p, err := f.repo.Create(context.Background(), author, tt.input)

			var count int64
			require.NoError(t, f.db.Model(&Post{}).Count(&count).Error)

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
				assert.EqualValues(t, 0, count)
			case tt.expectedFields != nil:
				verr, ok := apperr.IsValidation(err)
				require.True(t, ok, "expected validation error, got %v", err)
				for _, field := range tt.expectedFields {
					assert.Contains(t, verr.Fields, field)
				}
				assert.Len(t, verr.Fields, len(tt.expectedFields))
				assert.EqualValues(t, 0, count)
			default:
				require.NoError(t, err)
				assert.NotZero(t, p.ID)
				assert.Equal(t, author.ID, p.UserID)
				assert.Equal(t, author.Name, p.Author.Name)
				assert.False(t, p.CreatedAt.IsZero())
				assert.EqualValues(t, 1, count)
				assert.Equal(t, []string{events.PostCreated}, f.recorder.Types())
			}
		})
	}
}

func TestCreateThenSearch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.repo.Create(ctx, f.alice, Input{
		Title:       "Hello World",
		Description: "This is a sufficiently long description.",
		IsPublic:    boolPtr(true),
	})
	require.NoError(t, err)

	for _, viewer := range []user.User{f.alice, f.bob, f.carol} {
		res, err := f.repo.List(ctx, viewer, Filters{Search: "hello"}, 1)
		require.NoError(t, err)
		assert.Equal(t, []uint{p.ID}, ids(res.Items), "viewer %s", viewer.ID)
	}
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	created := time.Date(2020, 10, 1, 10, 0, 0, 0, time.UTC)
	p := f.insert(t, f.alice, "Titre initial", "Description initiale du billet", true, created)

	unverifiedOwner := f.alice
	unverifiedOwner.EmailVerifiedAt = nil

	valid := Input{Title: "Titre modifié", Description: "Une description entièrement revue", IsPublic: boolPtr(false)}

	tests := []struct {
		name          string
		actor         user.User
		postID        uint
		input         Input
		expectedError error
	}{
		{name: "Missing post", actor: f.alice, postID: 424242, input: valid, expectedError: apperr.ErrNotFound},
		{name: "Not the author", actor: f.bob, postID: p.ID, input: valid, expectedError: apperr.ErrNotOwner},
		{name: "Unverified author", actor: unverifiedOwner, postID: p.ID, input: valid, expectedError: apperr.ErrEmailNotVerified},
		{name: "Unverified non-author", actor: f.carol, postID: p.ID, input: valid, expectedError: apperr.ErrEmailNotVerified},
		{name: "Authorization errors share a parent", actor: f.bob, postID: p.ID, input: valid, expectedError: apperr.ErrAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.repo.Update(ctx, tt.actor, tt.postID, tt.input)
			assert.ErrorIs(t, err, tt.expectedError)
		})
	}

	t.Run("Invalid input keeps the post unchanged", func(t *testing.T) {
		_, err := f.repo.Update(ctx, f.alice, p.ID, Input{Title: "", Description: "court", IsPublic: boolPtr(true)})
		verr, ok := apperr.IsValidation(err)
		require.True(t, ok)
		assert.Contains(t, verr.Fields, "title")
		assert.Contains(t, verr.Fields, "description")

		got, err := f.repo.Get(ctx, f.alice, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Titre initial", got.Title)
	})

	t.Run("Round trip", func(t *testing.T) {
		updated, err := f.repo.Update(ctx, f.alice, p.ID, valid)
		require.NoError(t, err)
		assert.Equal(t, "Titre modifié", updated.Title)
		assert.False(t, updated.IsPublic)
		assert.True(t, updated.CreatedAt.Equal(created))
		assert.True(t, updated.UpdatedAt.After(created))

		res, err := f.repo.List(ctx, f.alice, Filters{}, 1)
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, "Titre modifié", res.Items[0].Title)
		assert.Equal(t, "Une description entièrement revue", res.Items[0].Description)

		// Devenu privé : Bob ne le voit plus
		res, err = f.repo.List(ctx, f.bob, Filters{}, 1)
		require.NoError(t, err)
		assert.Empty(t, res.Items)

		assert.Equal(t, []string{events.PostUpdated}, f.recorder.Types())
	})
}

func TestDeleteCascadesLikes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	target := f.insert(t, f.alice, "A supprimer", "Ce billet va disparaître", true, now)
	other := f.insert(t, f.alice, "A garder", "Ce billet doit rester en place", true, now)

	likes := like.NewService(f.db, nil, nil)
	require.NoError(t, likes.Like(ctx, f.bob, target.ID))
	require.NoError(t, likes.Like(ctx, f.alice, target.ID))
	require.NoError(t, likes.Like(ctx, f.bob, other.ID))

	assert.ErrorIs(t, f.repo.Delete(ctx, f.bob, target.ID), apperr.ErrNotOwner)
	unverifiedOwner := f.alice
	unverifiedOwner.EmailVerifiedAt = nil
	assert.ErrorIs(t, f.repo.Delete(ctx, unverifiedOwner, target.ID), apperr.ErrEmailNotVerified)

	require.NoError(t, f.repo.Delete(ctx, f.alice, target.ID))

	var remaining int64
	require.NoError(t, f.db.Model(&like.Like{}).Where("post_id = ?", target.ID).Count(&remaining).Error)
	assert.EqualValues(t, 0, remaining)
	require.NoError(t, f.db.Model(&like.Like{}).Where("post_id = ?", other.ID).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)

	res, err := f.repo.List(ctx, f.alice, Filters{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{other.ID}, ids(res.Items))

	assert.ErrorIs(t, likes.Like(ctx, f.bob, target.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, likes.Unlike(ctx, f.bob, target.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, f.repo.Delete(ctx, f.alice, target.ID), apperr.ErrNotFound)

	assert.Equal(t, []uint{target.ID}, f.cache.invalidated)
	assert.Equal(t, []string{events.PostDeleted}, f.recorder.Types())
}

func TestGet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	private := f.insert(t, f.alice, "Brouillon", "Pas encore prêt à être publié", false, time.Now().UTC())

	_, err := f.repo.Get(ctx, f.bob, private.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.repo.Get(ctx, f.alice, private.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brouillon", got.Title)
	assert.Equal(t, "Alice Martin", got.Author.Name)
	assert.NotNil(t, got.Likes)

	_, err = f.repo.Get(ctx, f.alice, private.ID+100)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStoreErrors(t *testing.T) {
	verified := time.Now().UTC()
	alice := user.User{ID: "alice", Name: "Alice", EmailVerifiedAt: &verified}

	t.Run("List count failure", func(t *testing.T) {
		db, mock := dbtest.Mock(t)
		repo := NewRepository(db, time.UTC, nil, nil)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "posts"`).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.List(context.Background(), alice, Filters{}, 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperr.ErrNotFound)
		assert.Equal(t, 500, apperr.Status(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete rolls back when likes cannot be removed", func(t *testing.T) {
		db, mock := dbtest.Mock(t)
		recorder := &events.Recorder{}
		repo := NewRepository(db, time.UTC, nil, recorder)

		mock.ExpectQuery(`SELECT \* FROM "posts"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "description", "is_public"}).
				AddRow(7, "alice", "Titre", "Une description", true))
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "likes"`).WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		err := repo.Delete(context.Background(), alice, 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete likes")
		assert.Empty(t, recorder.Events())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
