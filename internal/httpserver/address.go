package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	addresssvc "drivelous-store/internal/service/address"
)

func (a *api) listAddresses(c *gin.Context) {
	p := profile(c)
	addrs, err := a.deps.Addresses.List(c.Request.Context(), p.ID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addrs})
}

type createAddressRequest struct {
	Nickname  string `json:"nickname"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Address1  string `json:"address1" binding:"required"`
	Address2  string `json:"address2"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	ZipCode   string `json:"zip" binding:"required"`
	Country   string `json:"country" binding:"required"`
	Phone     string `json:"phone"`
	Default   bool   `json:"default"`
}

func (r createAddressRequest) toInput() addresssvc.CreateInput {
	return addresssvc.CreateInput{
		Nickname:  r.Nickname,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Address1:  r.Address1,
		Address2:  r.Address2,
		City:      r.City,
		State:     r.State,
		ZipCode:   r.ZipCode,
		Country:   r.Country,
		Phone:     r.Phone,
		Default:   r.Default,
	}
}

func (a *api) createAddress(c *gin.Context) {
	var req createAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "missing required address fields")
		return
	}
	p := profile(c)
	addr, err := a.deps.Addresses.Create(c.Request.Context(), p.ID, req.toInput())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": addr})
}

func (a *api) makeDefaultAddress(c *gin.Context) {
	p := profile(c)
	if err := a.deps.Addresses.MakeDefault(c.Request.Context(), p.ID, c.Param("addressID")); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) deleteAddress(c *gin.Context) {
	p := profile(c)
	if err := a.deps.Addresses.Delete(c.Request.Context(), p.ID, c.Param("addressID")); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
