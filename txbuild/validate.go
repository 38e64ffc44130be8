package txbuild

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/stellar/go/strkey"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/types"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func initValidator() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	rules := map[string]validator.Func{
		"stellar_address": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || strkey.IsValidEd25519PublicKey(s)
		},
		"asset_code": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || asset.ValidCode(s)
		},
		"amount7": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true
			}
			m, err := types.ParseMoney(s, types.UnitNative)
			return err == nil && m.IsPositive()
		},
	}
	for tag, fn := range rules {
		if err := vld.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("txbuild: register %s: %w", tag, err)
		}
	}
	return vld, nil
}

// validateStruct runs the descriptor's tags and reports the first failure
// as a types.ValidationError.
func validateStruct(d any) error {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	if errValidate != nil {
		return errValidate
	}

	if err := validate.Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return types.ValidationError{Field: toSnake(fe.Field()), Message: describe(fe)}
		}
		return types.ValidationError{Field: "descriptor", Message: err.Error()}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "stellar_address":
		return fmt.Sprintf("%q is not a valid account address", fe.Value())
	case "asset_code":
		return fmt.Sprintf("%q is not a valid asset code", fe.Value())
	case "amount7":
		return fmt.Sprintf("%q is not a positive amount with at most 7 decimals", fe.Value())
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && unicode.IsLower(runes[i-1]) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
