package catalog

import (
	"strconv"

	"github.com/go-playground/validator/v10"

	"FoodMart/pkg/kit"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := kit.NewValidator()
	_ = v.RegisterValidation("product_rating", validRating)
	_ = v.RegisterValidation("product_tag", validTag)
	return v
}

// validRating accepts decimal text in [0,5].
func validRating(fl validator.FieldLevel) bool {
	f, err := strconv.ParseFloat(fl.Field().String(), 64)
	return err == nil && f >= 0 && f <= 5
}

func validTag(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "organic", "new", "sale":
		return true
	}
	return false
}
