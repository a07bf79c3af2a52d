package post

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MalikAqeelArshad/blog-crud/internal/apperr"
)

// Input regroupe les champs modifiables d'un post (création et mise à jour)
type Input struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required,min=10"`
	IsPublic    *bool  `json:"is_public" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Les erreurs sont remontées sous le nom JSON du champ
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (in Input) normalized() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

// Validate compte les longueurs en caractères (runes), pas en octets
func (in Input) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &apperr.ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Ce champ est obligatoire"
	case "max":
		return "Ce champ ne doit pas dépasser " + fe.Param() + " caractères"
	case "min":
		return "Ce champ doit contenir au moins " + fe.Param() + " caractères"
	default:
		return "Valeur invalide"
	}
}
