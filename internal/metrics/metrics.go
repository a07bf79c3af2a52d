// Package metrics expose les compteurs Prometheus de l'application.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MalikAqeelArshad/blog-crud/internal/apperr"
)

var (
	PostOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blog",
		Name:      "post_operations_total",
		Help:      "Post operations by operation and outcome.",
	}, []string{"operation", "result"})

	LikeOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blog",
		Name:      "like_operations_total",
		Help:      "Like and unlike calls by outcome.",
	}, []string{"operation", "result"})

	LikeCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blog",
		Name:      "like_cache_lookups_total",
		Help:      "Like count cache lookups by hit or miss.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(PostOperations, LikeOperations, LikeCacheLookups)
}

// Outcome réduit une erreur à une étiquette de faible cardinalité
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrAuthorization):
		return "forbidden"
	}
	if _, ok := apperr.IsValidation(err); ok {
		return "invalid"
	}
	return "error"
}
