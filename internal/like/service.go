package like

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MalikAqeelArshad/blog-crud/internal/apperr"
	"github.com/MalikAqeelArshad/blog-crud/internal/events"
	"github.com/MalikAqeelArshad/blog-crud/internal/metrics"
	"github.com/MalikAqeelArshad/blog-crud/internal/user"
)

type Service struct {
	db     *gorm.DB
	cache  CountCache
	events events.Publisher
}

func NewService(db *gorm.DB, cache CountCache, pub events.Publisher) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{db: db, cache: cache, events: pub}
}

// Like ajoute le like de u sur le post ; un second appel ne crée rien
func (s *Service) Like(ctx context.Context, u user.User, postID uint) (err error) {
	defer func() { metrics.LikeOperations.WithLabelValues("like", metrics.Outcome(err)).Inc() }()

	if !u.Verified() {
		return apperr.ErrEmailNotVerified
	}

	changed, err := s.write(ctx, postID, visibleTo(u), func(tx *gorm.DB) (int64, error) {
		// L'index unique (user_id, post_id) règle les appels concurrents
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Like{UserID: u.ID, PostID: postID})
		if res.Error != nil {
			return 0, fmt.Errorf("insert like: %w", res.Error)
		}
		return res.RowsAffected, nil
	})
	if err != nil {
		return err
	}

	if changed {
		events.Emit(ctx, s.events, events.PostLiked, postID, u.ID)
	}
	return nil
}

// Unlike retire le like de u ; sans like existant c'est un no-op.
// Seule l'existence du post est exigée : un like reste retirable après passage du post en privé.
func (s *Service) Unlike(ctx context.Context, u user.User, postID uint) (err error) {
	defer func() { metrics.LikeOperations.WithLabelValues("unlike", metrics.Outcome(err)).Inc() }()

	if !u.Verified() {
		return apperr.ErrEmailNotVerified
	}

	changed, err := s.write(ctx, postID, anyPost, func(tx *gorm.DB) (int64, error) {
		res := tx.Where("user_id = ? AND post_id = ?", u.ID, postID).Delete(&Like{})
		if res.Error != nil {
			return 0, fmt.Errorf("delete like: %w", res.Error)
		}
		return res.RowsAffected, nil
	})
	if err != nil {
		return err
	}

	if changed {
		events.Emit(ctx, s.events, events.PostUnliked, postID, u.ID)
	}
	return nil
}

// write verrouille la ligne du post, applique apply puis, si une ligne a changé,
// recompte les likes et écrit le compteur avant le commit. Les écritures d'un même
// post mettent donc le cache à jour dans l'ordre des commits.
func (s *Service) write(ctx context.Context, postID uint, cond scope, apply func(tx *gorm.DB) (int64, error)) (bool, error) {
	changed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Table("posts").
			Scopes(cond).
			Where("posts.id = ?", postID).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Limit(1).
			Pluck("posts.id", &ids).Error; err != nil {
			return fmt.Errorf("lock post %d: %w", postID, err)
		}
		if len(ids) == 0 {
			return fmt.Errorf("post %d: %w", postID, apperr.ErrNotFound)
		}

		affected, err := apply(tx)
		if err != nil || affected == 0 {
			return err
		}
		changed = true

		var count int64
		if err := tx.Model(&Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
			return fmt.Errorf("count likes: %w", err)
		}
		s.cache.Set(ctx, postID, count)
		return nil
	})
	if err != nil {
		if changed {
			// le compteur écrit ne correspond plus à rien après rollback
			s.cache.Invalidate(ctx, postID)
		}
		return false, err
	}
	return changed, nil
}

func (s *Service) Status(ctx context.Context, viewer user.User, postID uint) (LikeStatus, error) {
	if err := s.ensureVisible(ctx, viewer, postID); err != nil {
		return LikeStatus{}, err
	}

	count, ok := s.cache.Get(ctx, postID)
	if !ok {
		if err := s.db.WithContext(ctx).Model(&Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
			return LikeStatus{}, fmt.Errorf("count likes: %w", err)
		}
		// Fill n'écrase jamais un compteur posé entre-temps par Like ou Unlike
		s.cache.Fill(ctx, postID, count)
	}

	var mine int64
	if err := s.db.WithContext(ctx).Model(&Like{}).
		Where("user_id = ? AND post_id = ?", viewer.ID, postID).
		Count(&mine).Error; err != nil {
		return LikeStatus{}, fmt.Errorf("check like: %w", err)
	}

	return LikeStatus{PostID: postID, LikeCount: count, IsLiked: mine > 0}, nil
}

type scope = func(*gorm.DB) *gorm.DB

func visibleTo(u user.User) scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(posts.is_public = ? OR posts.user_id = ?)", true, u.ID)
	}
}

func anyPost(db *gorm.DB) *gorm.DB { return db }

// ensureVisible échoue si le post n'existe pas ou n'est pas visible par u
func (s *Service) ensureVisible(ctx context.Context, u user.User, postID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Table("posts").
		Scopes(visibleTo(u)).
		Where("posts.id = ?", postID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check post %d: %w", postID, err)
	}
	if count == 0 {
		return fmt.Errorf("post %d: %w", postID, apperr.ErrNotFound)
	}
	return nil
}
