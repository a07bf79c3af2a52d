// Package events publie les événements métier des posts (création, likes...).
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
)

const (
	PostCreated = "post.created"
	PostUpdated = "post.updated"
	PostDeleted = "post.deleted"
	PostLiked   = "post.liked"
	PostUnliked = "post.unliked"
)

type Event struct {
	Type       string    `json:"type"`
	PostID     uint      `json:"post_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, message []byte) error
}

// Emit sérialise l'événement et le publie ; un échec est loggé, jamais remonté
func Emit(ctx context.Context, pub Publisher, eventType string, postID uint, userID string) {
	if pub == nil {
		return
	}

	evt := Event{
		Type:       eventType,
		PostID:     postID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}

	if err := pub.Publish(ctx, strconv.FormatUint(uint64(postID), 10), payload); err != nil {
		logs.LogJSON("ERROR", "Event publish error", map[string]interface{}{
			"error":  err.Error(),
			"event":  eventType,
			"postID": postID,
			"userID": userID,
		})
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, string, []byte) error { return nil }

// Recorder garde les événements en mémoire (tests et développement local)
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, _ string, message []byte) error {
	var evt Event
	if err := json.Unmarshal(message, &evt); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Types() []string {
	var types []string
	for _, e := range r.Events() {
		types = append(types, e.Type)
	}
	return types
}
