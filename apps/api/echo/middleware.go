package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradeledger/core/ledger"
)

const contextKeyKey = "ledgerKey"

// ledgerKeyMiddleware stores the key of the token's ledger in the context.
func ledgerKeyMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			key, err := getContextKey(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			ctx.Set(contextKeyKey, key)
			return next(ctx)
		}
	}
}

func ledgerKey(ctx echo.Context) ledger.ID {
	key, _ := ctx.Get(contextKeyKey).(ledger.ID)
	return key
}
