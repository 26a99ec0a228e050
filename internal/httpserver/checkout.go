package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drivelous-store/internal/domain"
)

// currentOrder resolves the requester's active cart and returns the open
// order tied to it, creating the order on first call.
func (a *api) currentOrder(c *gin.Context) (*domain.Order, bool) {
	cart, ok := a.resolveCart(c)
	if !ok {
		return nil, false
	}
	ord, err := a.deps.Orders.CreateOrGet(c.Request.Context(), profile(c), cart)
	if err != nil {
		a.writeError(c, err)
		return nil, false
	}
	return ord, true
}

func (a *api) beginCheckout(c *gin.Context) {
	ord, ok := a.currentOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": ord})
}

type chooseShippingRequest struct {
	AddressID string                `json:"addressId"`
	Address   *createAddressRequest `json:"address"`
}

// chooseShipping attaches a shipping address to the open order, either an
// existing one by id or a new one created inline.
func (a *api) chooseShipping(c *gin.Context) {
	var req chooseShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.AddressID == "" && req.Address == nil) {
		badRequest(c, "addressId or address is required")
		return
	}
	p := profile(c)
	addressID := req.AddressID
	if addressID == "" {
		addr, err := a.deps.Addresses.Create(c.Request.Context(), p.ID, req.Address.toInput())
		if err != nil {
			a.writeError(c, err)
			return
		}
		addressID = addr.ID
	}
	ord, ok := a.currentOrder(c)
	if !ok {
		return
	}
	if err := a.deps.Orders.UseShippingAddress(c.Request.Context(), p.ID, ord, addressID); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": ord})
}

type chooseBillingRequest struct {
	CardID string `json:"cardId" binding:"required"`
}

func (a *api) chooseBilling(c *gin.Context) {
	var req chooseBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "cardId is required")
		return
	}
	p := profile(c)
	snap, err := a.deps.Payments.BillingSnapshot(c.Request.Context(), p, req.CardID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	ord, ok := a.currentOrder(c)
	if !ok {
		return
	}
	if err := a.deps.Orders.UseBilling(c.Request.Context(), ord, snap); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": ord})
}

type finalizeRequest struct {
	Email string `json:"email"`
}

func (a *api) finalizeCheckout(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "invalid request body")
		return
	}
	ord, ok := a.currentOrder(c)
	if !ok {
		return
	}
	done, err := a.deps.Orders.Finalize(c.Request.Context(), profile(c), ord, req.Email)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": done})
}

func (a *api) listOrders(c *gin.Context) {
	p := profile(c)
	orders, err := a.deps.Orders.History(c.Request.Context(), p.ID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (a *api) getOrder(c *gin.Context) {
	p := profile(c)
	ord, err := a.deps.Orders.Lookup(c.Request.Context(), p.ID, c.Param("orderID"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": ord})
}
