package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the wager tags registered:
// timecontrol, variant, currency and wagercolor.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("timecontrol", func(fl validator.FieldLevel) bool {
			_, err := wager.ParseTimeControl(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("variant", func(fl validator.FieldLevel) bool {
			return wager.Variant(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			return user.Currency(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("wagercolor", func(fl validator.FieldLevel) bool {
			return wager.Color(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

func validateInput(ctx context.Context, input any) error {
	if err := Validator().StructCtx(ctx, input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
