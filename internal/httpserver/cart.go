package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drivelous-store/internal/domain"
	cartsvc "drivelous-store/internal/service/cart"
)

type cartResponse struct {
	Cart       *domain.Cart        `json:"cart"`
	Adjustment *cartsvc.Adjustment `json:"adjustment,omitempty"`
}

// resolveCart returns the requester's active cart, creating one when needed.
func (a *api) resolveCart(c *gin.Context) (*domain.Cart, bool) {
	id := identity(c)
	owner := cartsvc.Owner{AnonymousID: id.AnonymousID}
	if id.Profile != nil {
		owner.ProfileID = id.Profile.ID
		owner.AnonymousID = ""
	}
	cart, err := a.deps.Carts.Resolve(c.Request.Context(), owner)
	if err != nil {
		a.writeError(c, err)
		return nil, false
	}
	return cart, true
}

func (a *api) getCart(c *gin.Context) {
	cart, ok := a.resolveCart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: cart})
}

type addItemRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Size     string `json:"size" binding:"required"`
	Quantity int    `json:"quantity"`
}

func (a *api) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "sku and size are required")
		return
	}
	cart, ok := a.resolveCart(c)
	if !ok {
		return
	}
	cart, adj, err := a.deps.Carts.AddItem(c.Request.Context(), cart, req.SKU, req.Size, req.Quantity)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: cart, Adjustment: adj})
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (a *api) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity is required")
		return
	}
	cart, ok := a.resolveCart(c)
	if !ok {
		return
	}
	cart, adj, err := a.deps.Carts.UpdateItemQuantity(c.Request.Context(), cart, c.Param("lineID"), req.Quantity)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: cart, Adjustment: adj})
}

func (a *api) removeCartItem(c *gin.Context) {
	cart, ok := a.resolveCart(c)
	if !ok {
		return
	}
	cart, err := a.deps.Carts.RemoveItem(c.Request.Context(), cart, c.Param("lineID"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: cart})
}
