package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	paymentsvc "drivelous-store/internal/service/payment"
	"drivelous-store/internal/stripe"
)

func (a *api) listCards(c *gin.Context) {
	p := profile(c)
	methods, err := a.deps.Payments.ListMethods(c.Request.Context(), p)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": methods})
}

type cardBillingRequest struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

type addCardRequest struct {
	Token       string              `json:"token" binding:"required"`
	MakeDefault bool                `json:"makeDefault"`
	AddressID   string              `json:"addressId"`
	Billing     *cardBillingRequest `json:"billing"`
}

// addCard stores a tokenized card. Billing details come either from a saved
// shipping address (addressId) or from the billing block on the request.
func (a *api) addCard(c *gin.Context) {
	var req addCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "token is required")
		return
	}
	p := profile(c)

	in := paymentsvc.AddCardInput{TokenID: req.Token, MakeDefault: req.MakeDefault}
	switch {
	case req.AddressID != "":
		addr, err := a.deps.Addresses.Get(c.Request.Context(), p.ID, req.AddressID)
		if err != nil {
			a.writeError(c, err)
			return
		}
		in.Details = paymentsvc.DetailsFromAddress(addr)
	case req.Billing != nil:
		in.Details = stripe.CardDetails{
			Name:     req.Billing.Name,
			Address1: req.Billing.Address1,
			Address2: req.Billing.Address2,
			City:     req.Billing.City,
			State:    req.Billing.State,
			Zip:      req.Billing.Zip,
			Country:  req.Billing.Country,
		}
	}

	method, duplicate, err := a.deps.Payments.AddCard(c.Request.Context(), p, in)
	if err != nil {
		a.writeError(c, err)
		return
	}
	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"card": method, "duplicate": duplicate})
}

func (a *api) makeDefaultCard(c *gin.Context) {
	p := profile(c)
	if err := a.deps.Payments.MakeDefault(c.Request.Context(), p, c.Param("cardID")); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) deleteCard(c *gin.Context) {
	p := profile(c)
	if err := a.deps.Payments.DeleteCard(c.Request.Context(), p, c.Param("cardID")); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
