package user

import "time"

// User est la projection locale du compte géré par le fournisseur d'authentification
type User struct {
	ID              string     `json:"id" gorm:"primaryKey"` // UUID venant du fournisseur d'auth
	CreatedAt       time.Time  `json:"created_at"`
	Name            string     `json:"name" gorm:"not null"`
	Email           string     `json:"email" gorm:"uniqueIndex;not null"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
}

func (u User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// Summary ne garde que les champs publics de l'auteur
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name}
}
