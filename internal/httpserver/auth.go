package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"drivelous-store/internal/domain"
	accountsvc "drivelous-store/internal/service/account"
	cartsvc "drivelous-store/internal/service/cart"
)

const identityKey = "identity"

// bearerToken extracts the bearer credential, empty when absent.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authRequired resolves the bearer token into an identity, anonymous or
// profile, and aborts with 401 otherwise.
func (a *api) authRequired(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	identity, err := a.deps.Accounts.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	c.Set(identityKey, identity)
	c.Next()
}

// profileRequired rejects anonymous sessions.
func (a *api) profileRequired(c *gin.Context) {
	if identity(c).Profile == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account required"})
		return
	}
	c.Next()
}

func identity(c *gin.Context) *accountsvc.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(*accountsvc.Identity)
	if id == nil {
		return &accountsvc.Identity{}
	}
	return id
}

func profile(c *gin.Context) *domain.Profile {
	return identity(c).Profile
}

type signupRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token   string          `json:"token"`
	Profile *domain.Profile `json:"profile,omitempty"`
}

func (a *api) beginAnonymous(c *gin.Context) {
	_, token, err := a.deps.Accounts.BeginAnonymous(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Token: token})
}

func (a *api) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	prof, token, err := a.deps.Accounts.Signup(c.Request.Context(), accountsvc.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.carryOverCart(c, prof)
	c.JSON(http.StatusCreated, sessionResponse{Token: token, Profile: prof})
}

func (a *api) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	prof, token, err := a.deps.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.carryOverCart(c, prof)
	c.JSON(http.StatusOK, sessionResponse{Token: token, Profile: prof})
}

// carryOverCart adopts the request's anonymous-session cart into the profile
// when signup or login happens mid-shopping. Failures only log; a session is
// never rejected because its old cart could not be merged.
func (a *api) carryOverCart(c *gin.Context, prof *domain.Profile) {
	token := bearerToken(c)
	if token == "" {
		return
	}
	id, err := a.deps.Accounts.Authenticate(c.Request.Context(), token)
	if err != nil || id.AnonymousID == "" {
		return
	}
	if _, err := a.deps.Carts.Resolve(c.Request.Context(), cartsvc.Owner{
		ProfileID:   prof.ID,
		AnonymousID: id.AnonymousID,
		CarryOver:   true,
	}); err != nil {
		a.logger.Printf("http: cart carry-over for profile_id=%s failed: %v", prof.ID, err)
	}
}

func (a *api) logout(c *gin.Context) {
	if err := a.deps.Accounts.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
