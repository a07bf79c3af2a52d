package post

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/MalikAqeelArshad/blog-crud/internal/user"
)

// DateLayout est le format attendu pour le filtre par date
const DateLayout = "2006-01-02"

type scope = func(*gorm.DB) *gorm.DB

// filter construit un prédicat à partir d'une valeur de filtre non vide.
// Une valeur inexploitable renvoie une erreur : le filtre est alors ignoré.
type filter struct {
	name  string
	value func(Filters) string
	build func(value string, loc *time.Location) (scope, error)
}

var filters = []filter{
	{name: "search", value: func(f Filters) string { return f.Search }, build: searchScope},
	{name: "author", value: func(f Filters) string { return f.Author }, build: authorScope},
	{name: "date", value: func(f Filters) string { return f.Date }, build: dateScope},
}

func (f Filters) normalized() Filters {
	return Filters{
		Search: strings.TrimSpace(f.Search),
		Author: strings.TrimSpace(f.Author),
		Date:   strings.TrimSpace(f.Date),
	}
}

// scopes renvoie les prédicats actifs et les noms des filtres ignorés
func (f Filters) scopes(loc *time.Location) ([]scope, map[string]error) {
	var active []scope
	ignored := map[string]error{}

	for _, flt := range filters {
		v := flt.value(f)
		if v == "" {
			continue
		}
		s, err := flt.build(v, loc)
		if err != nil {
			ignored[flt.name] = err
			continue
		}
		active = append(active, s)
	}
	return active, ignored
}

func visibleTo(viewer user.User) scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(posts.is_public = ? OR posts.user_id = ?)", true, viewer.ID)
	}
}

func searchScope(value string, _ *time.Location) (scope, error) {
	pattern := containsPattern(value)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(`(LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}, nil
}

func authorScope(value string, _ *time.Location) (scope, error) {
	pattern := containsPattern(value)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(`EXISTS (SELECT 1 FROM users WHERE users.id = posts.user_id AND LOWER(users.name) LIKE ? ESCAPE '\')`, pattern)
	}, nil
}

// dateScope couvre le jour calendaire entier dans le fuseau de l'application
func dateScope(value string, loc *time.Location) (scope, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", value, err)
	}
	start := day.UTC()
	end := day.AddDate(0, 0, 1).UTC()
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.created_at >= ? AND posts.created_at < ?", start, end)
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern échappe les jokers LIKE pour une recherche littérale
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"
}

func clampPage(page, lastPage int) int {
	if lastPage < 1 {
		lastPage = 1
	}
	if page < 1 {
		return 1
	}
	if page > lastPage {
		return lastPage
	}
	return page
}

func lastPageFor(total int64) int {
	if total <= 0 {
		return 1
	}
	return int((total + PerPage - 1) / PerPage)
}
