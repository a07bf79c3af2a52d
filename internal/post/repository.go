package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MalikAqeelArshad/blog-crud/internal/apperr"
	"github.com/MalikAqeelArshad/blog-crud/internal/events"
	"github.com/MalikAqeelArshad/blog-crud/internal/like"
	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
	"github.com/MalikAqeelArshad/blog-crud/internal/metrics"
	"github.com/MalikAqeelArshad/blog-crud/internal/user"
)

type Repository struct {
	db     *gorm.DB
	loc    *time.Location
	likes  like.CountCache
	events events.Publisher
}

func NewRepository(db *gorm.DB, loc *time.Location, likes like.CountCache, pub events.Publisher) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	if likes == nil {
		likes = like.NopCache{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Repository{db: db, loc: loc, likes: likes, events: pub}
}

// List renvoie une page des posts visibles par viewer, filtrés puis triés du plus récent au plus ancien
func (r *Repository) List(ctx context.Context, viewer user.User, f Filters, page int) (res *ListResult, err error) {
	defer func() { metrics.PostOperations.WithLabelValues("list", metrics.Outcome(err)).Inc() }()

	f = f.normalized()
	scopes, ignored := f.scopes(r.loc)
	for name, reason := range ignored {
		logs.LogJSON("WARN", "Invalid filter ignored", map[string]interface{}{
			"filter": name,
			"error":  reason.Error(),
			"userID": viewer.ID,
		})
	}

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&Post{}).Scopes(visibleTo(viewer)).Scopes(scopes...)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	lastPage := lastPageFor(total)
	page = clampPage(page, lastPage)

	posts := make([]Post, 0, PerPage)
	if err := base().
		Preload("User").
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("likes.id") }).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(PerPage).
		Offset((page - 1) * PerPage).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	for i := range posts {
		posts[i].enrich(viewer)
	}

	return &ListResult{
		Items:      posts,
		Page:       page,
		PerPage:    PerPage,
		TotalCount: total,
		LastPage:   lastPage,
		Filters:    f,
	}, nil
}

// Get charge un post en respectant sa visibilité ; un post privé d'autrui est introuvable
func (r *Repository) Get(ctx context.Context, viewer user.User, id uint) (*Post, error) {
	var p Post
	err := r.db.WithContext(ctx).
		Scopes(visibleTo(viewer)).
		Preload("User").
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("likes.id") }).
		First(&p, "posts.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %d: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}

	p.enrich(viewer)
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, author user.User, in Input) (p *Post, err error) {
	defer func() { metrics.PostOperations.WithLabelValues("create", metrics.Outcome(err)).Inc() }()

	if !author.Verified() {
		return nil, apperr.ErrEmailNotVerified
	}

	in = in.normalized()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	newPost := Post{
		UserID:      author.ID,
		Title:       in.Title,
		Description: in.Description,
		IsPublic:    *in.IsPublic,
	}
	if err := r.db.WithContext(ctx).Create(&newPost).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	newPost.User = author
	newPost.enrich(author)
	events.Emit(ctx, r.events, events.PostCreated, newPost.ID, author.ID)
	return &newPost, nil
}

func (r *Repository) Update(ctx context.Context, actor user.User, id uint, in Input) (p *Post, err error) {
	defer func() { metrics.PostOperations.WithLabelValues("update", metrics.Outcome(err)).Inc() }()

	existing, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, existing); err != nil {
		return nil, err
	}

	in = in.normalized()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// updated_at est renseigné par gorm
	if err := r.db.WithContext(ctx).Model(existing).Updates(map[string]interface{}{
		"title":       in.Title,
		"description": in.Description,
		"is_public":   *in.IsPublic,
	}).Error; err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}

	events.Emit(ctx, r.events, events.PostUpdated, id, actor.ID)
	return r.Get(ctx, actor, id)
}

// Delete supprime le post et ses likes dans une même transaction
func (r *Repository) Delete(ctx context.Context, actor user.User, id uint) (err error) {
	defer func() { metrics.PostOperations.WithLabelValues("delete", metrics.Outcome(err)).Inc() }()

	existing, err := r.find(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, existing); err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", existing.ID).Delete(&like.Like{}).Error; err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		res := tx.Delete(&Post{}, existing.ID)
		if res.Error != nil {
			return fmt.Errorf("delete post: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post %d: %w", existing.ID, apperr.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.likes.Invalidate(ctx, existing.ID)
	events.Emit(ctx, r.events, events.PostDeleted, existing.ID, actor.ID)
	return nil
}

// find charge un post sans filtre de visibilité (contrôle d'auteur fait ensuite)
func (r *Repository) find(ctx context.Context, id uint) (*Post, error) {
	var p Post
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %d: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("find post %d: %w", id, err)
	}
	return &p, nil
}

// authorize exige un email vérifié puis la propriété du post
func authorize(actor user.User, p *Post) error {
	if !actor.Verified() {
		return apperr.ErrEmailNotVerified
	}
	if actor.ID != p.UserID {
		return apperr.ErrNotOwner
	}
	return nil
}
