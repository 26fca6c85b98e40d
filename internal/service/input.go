package service

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"fsanano/item-catalog/internal/model"
)

// NoCategory is the form value of the "none selected" option.
const NoCategory = "None"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// ItemInput is the add/edit form as submitted.
type ItemInput struct {
	Name        string `form:"name" validate:"required,max=80"`
	Description string `form:"description" validate:"required"`
	Category    string `form:"category"`
}

// ItemFields is an ItemInput that passed validation.
type ItemFields struct {
	Name        string
	Description string
	CategoryID  int64
}

// Validate trims the input and checks it. A missing category is reported
// separately from missing text fields.
func (in ItemInput) Validate() (ItemFields, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)

	if in.Category == "" || in.Category == NoCategory {
		return ItemFields{}, model.NewValidationError("category", "Please select a category")
	}

	if !utf8.ValidString(in.Name) {
		return ItemFields{}, model.NewValidationError("name", "Invalid values")
	}
	if !utf8.ValidString(in.Description) {
		return ItemFields{}, model.NewValidationError("description", "Invalid values")
	}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return ItemFields{}, model.NewValidationError(verrs[0].Field(), "Invalid values")
		}
		return ItemFields{}, err
	}

	categoryID, err := strconv.ParseInt(in.Category, 10, 64)
	if err != nil || categoryID <= 0 {
		return ItemFields{}, model.NewValidationError("category", "Unknown category")
	}

	return ItemFields{
		Name:        in.Name,
		Description: in.Description,
		CategoryID:  categoryID,
	}, nil
}
