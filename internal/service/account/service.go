package account

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"drivelous-store/internal/domain"
	tokenrepo "drivelous-store/internal/repository/token"
)

// Token kinds. Profile tokens authenticate accounts; anonymous tokens
// identify guest sessions so their carts survive login.
const (
	TokenKindProfile   = "profile"
	TokenKindAnonymous = "anonymous"
)

const tokenTTL = 30 * 24 * time.Hour

// Service handles signup, login, and session tokens for both registered
// accounts and anonymous shoppers.
type Service struct {
	profiles profileRepo
	tokens   tokenRepo
	logger   *log.Logger
}

type profileRepo interface {
	Create(ctx context.Context, p domain.Profile) (*domain.Profile, error)
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
}

type tokenRepo interface {
	Create(ctx context.Context, t tokenrepo.Token) error
	Get(ctx context.Context, token string) (*tokenrepo.Token, error)
	Delete(ctx context.Context, token string) error
}

func New(profiles profileRepo, tokens tokenRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{profiles: profiles, tokens: tokens, logger: logger}
}

// SignupInput carries the registration form fields.
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Signup registers a profile and returns it with a fresh session token.
// Emails are stored lowercased; a taken email surfaces as ErrAlreadyExists.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Profile, string, error) {
	email := normalizeEmail(in.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	profile, err := s.profiles.Create(ctx, domain.Profile{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	})
	if err != nil {
		return nil, "", err
	}
	token, err := s.issueToken(ctx, TokenKindProfile, &profile.ID, nil)
	if err != nil {
		return nil, "", err
	}
	s.logger.Printf("account: registered profile_id=%s", profile.ID)
	return profile, token, nil
}

// Login verifies credentials and returns the profile with a fresh session
// token. A wrong password and an unknown email fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Profile, string, error) {
	profile, err := s.profiles.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)) != nil {
		return nil, "", domain.ErrInvalidCredentials
	}
	token, err := s.issueToken(ctx, TokenKindProfile, &profile.ID, nil)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

// BeginAnonymous starts a guest session, returning its id and bearer token.
func (s *Service) BeginAnonymous(ctx context.Context) (string, string, error) {
	anonymousID := uuid.NewString()
	token, err := s.issueToken(ctx, TokenKindAnonymous, nil, &anonymousID)
	if err != nil {
		return "", "", err
	}
	return anonymousID, token, nil
}

// Identity is the resolved owner of a bearer token. Exactly one of Profile
// and AnonymousID is set.
type Identity struct {
	Profile     *domain.Profile
	AnonymousID string
}

// Authenticate resolves a bearer token. Expired and unknown tokens both
// return ErrNotFound; expired ones are removed on the way out.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	t, err := s.tokens.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if time.Now().After(t.ExpiresAt) {
		if derr := s.tokens.Delete(ctx, token); derr != nil {
			s.logger.Printf("account: deleting expired token failed: %v", derr)
		}
		return nil, domain.ErrNotFound
	}
	if t.AnonymousID != nil {
		return &Identity{AnonymousID: *t.AnonymousID}, nil
	}
	profile, err := s.profiles.GetByID(ctx, *t.ProfileID)
	if err != nil {
		return nil, err
	}
	return &Identity{Profile: profile}, nil
}

// Logout revokes a session token. Revoking an unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.tokens.Delete(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) issueToken(ctx context.Context, kind string, profileID, anonymousID *string) (string, error) {
	t := tokenrepo.Token{
		Token:       uuid.NewString(),
		ProfileID:   profileID,
		AnonymousID: anonymousID,
		Kind:        kind,
		ExpiresAt:   time.Now().Add(tokenTTL),
	}
	if err := s.tokens.Create(ctx, t); err != nil {
		return "", err
	}
	return t.Token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
