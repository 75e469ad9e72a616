package dto

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var assetCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{2,12}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func isAssetCode(fl validator.FieldLevel) bool {
	return assetCodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

// RegisterValidators installs the custom tags on gin's binding engine.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return v.RegisterValidation("assetcode", isAssetCode)
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")
		_ = validate.RegisterValidation("assetcode", isAssetCode)
	})
	return validate
}

// Validate checks a request struct outside of gin binding, e.g. for requests that
// arrive from the reconciliation poller or the notification queue.
func Validate(req any) error {
	if err := validatorInstance().Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return apperrors.NewValidationError(strings.Join(parts, "; "))
		}
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}
