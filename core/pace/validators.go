package pace

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	scoreTag  = "score"
	scoreText = "not a valid score (use a decimal, a percent or a fraction like 18/20)"
)

// InitValidators registers the pace validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(scoreTag, scoreValidation)
	core.RegisterCustomTranslation(validate, translator, scoreTag, scoreText)
}

// scoreValidation accepts any string ParseScore can normalize.
func scoreValidation(fl validator.FieldLevel) bool {
	_, err := ParseScore(fl.Field().String())
	return err == nil
}
