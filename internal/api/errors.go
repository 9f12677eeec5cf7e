package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"trading-core/internal/apperr"
	"trading-core/internal/dex"
	"trading-core/internal/executor"
	"trading-core/internal/gateway"
	"trading-core/pkg/db"
)

// writeError maps err onto an HTTP status via the typed error kind,
// replacing the substring-sniffing the gateway's error strings used to
// require at the transport edge.
func writeError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(kindOf(err)), gin.H{
		"code":  string(kindOf(err)),
		"error": err.Error(),
	})
}

func kindOf(err error) apperr.Kind {
	switch {
	case errors.Is(err, gateway.ErrRateLimited):
		return apperr.KindRateLimited
	case errors.Is(err, gateway.ErrPoolNotFound), errors.Is(err, gateway.ErrUnsupportedVenue),
		errors.Is(err, gateway.ErrOrderNotFound), errors.Is(err, db.ErrNotFound):
		return apperr.KindNotFound
	case errors.Is(err, gateway.ErrNotOrderOwner):
		return apperr.KindForbidden
	case errors.Is(err, gateway.ErrUnknownService), errors.Is(err, gateway.ErrUnknownAction),
		errors.Is(err, gateway.ErrMissingParam), errors.Is(err, gateway.ErrKeysRequired),
		errors.Is(err, db.ErrUserIDRequired), errors.Is(err, dex.ErrUnknownToken):
		return apperr.KindBadInput
	case errors.Is(err, db.ErrInsufficientFunds):
		return apperr.KindInsufficientBalance
	case errors.Is(err, dex.ErrZeroOutput):
		return apperr.KindZeroOutput
	case errors.Is(err, dex.ErrInsufficientLP):
		return apperr.KindInsufficientLiq
	case errors.Is(err, executor.ErrDailyCapReached), errors.Is(err, executor.ErrConsecutiveLossCapReached),
		errors.Is(err, executor.ErrPositionTooLarge):
		return apperr.KindSafetyBlocked
	case errors.Is(err, executor.ErrNoKeys), errors.Is(err, executor.ErrUnsupportedVenue):
		return apperr.KindBadInput
	default:
		return apperr.KindOf(err)
	}
}
