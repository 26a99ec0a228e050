package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drivelous-store/internal/domain"
)

// writeError maps domain failures onto HTTP statuses. Unknown errors become
// an opaque 500 so internals never leak to clients.
func (a *api) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, domain.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "item is out of stock"})
	case errors.Is(err, domain.ErrStockChanged):
		c.JSON(http.StatusConflict, gin.H{"error": "stock changed, review your updated cart"})
	case errors.Is(err, domain.ErrMissingShippingAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no shipping address specified"})
	case errors.Is(err, domain.ErrMissingPaymentMethod):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no payment information entered"})
	case errors.Is(err, domain.ErrCardDeclined), errors.Is(err, domain.ErrChargeDeclined):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "card declined"})
	case errors.Is(err, domain.ErrOrderCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "order already completed"})
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
	default:
		a.logger.Printf("http: internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
