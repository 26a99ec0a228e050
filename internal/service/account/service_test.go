package account

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"drivelous-store/internal/domain"
	tokenrepo "drivelous-store/internal/repository/token"
)

type stubProfileRepo struct {
	profiles map[string]*domain.Profile
}

func newStubProfileRepo() *stubProfileRepo {
	return &stubProfileRepo{profiles: make(map[string]*domain.Profile)}
}

func (s *stubProfileRepo) Create(_ context.Context, p domain.Profile) (*domain.Profile, error) {
	for _, existing := range s.profiles {
		if existing.Email == p.Email {
			return nil, domain.ErrAlreadyExists
		}
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("prof-%d", len(s.profiles)+1)
	}
	p.CreatedAt = time.Now()
	s.profiles[p.ID] = &p
	out := p
	return &out, nil
}

func (s *stubProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *stubProfileRepo) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	for _, p := range s.profiles {
		if p.Email == email {
			out := *p
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubTokenRepo struct {
	tokens map[string]tokenrepo.Token
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{tokens: make(map[string]tokenrepo.Token)}
}

func (s *stubTokenRepo) Create(_ context.Context, t tokenrepo.Token) error {
	s.tokens[t.Token] = t
	return nil
}

func (s *stubTokenRepo) Get(_ context.Context, token string) (*tokenrepo.Token, error) {
	t, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := t
	return &out, nil
}

func (s *stubTokenRepo) Delete(_ context.Context, token string) error {
	if _, ok := s.tokens[token]; !ok {
		return domain.ErrNotFound
	}
	delete(s.tokens, token)
	return nil
}

func newTestService() (*Service, *stubProfileRepo, *stubTokenRepo) {
	profiles := newStubProfileRepo()
	tokens := newStubTokenRepo()
	return New(profiles, tokens, nil), profiles, tokens
}

func TestSignupAndAuthenticate(t *testing.T) {
	svc, _, _ := newTestService()

	profile, token, err := svc.Signup(context.Background(), SignupInput{
		Email:    "  Ada@Example.com ",
		Password: "s3cret pass",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", profile.Email)
	}
	if profile.PasswordHash == "s3cret pass" || profile.PasswordHash == "" {
		t.Fatal("expected password hashed")
	}

	identity, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Profile == nil || identity.Profile.ID != profile.ID {
		t.Fatalf("expected token to resolve to profile, got %+v", identity)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()

	if _, _, err := svc.Signup(context.Background(), SignupInput{Email: "ada@example.com", Password: "pw"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, err := svc.Signup(context.Background(), SignupInput{Email: "ADA@example.com", Password: "pw"})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService()

	if _, _, err := svc.Signup(context.Background(), SignupInput{Email: "ada@example.com", Password: "s3cret pass"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profile, token, err := svc.Login(context.Background(), "Ada@example.com", "s3cret pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Email != "ada@example.com" || token == "" {
		t.Fatalf("expected profile and token, got %+v %q", profile, token)
	}

	if _, _, err := svc.Login(context.Background(), "ada@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "s3cret pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestBeginAnonymous(t *testing.T) {
	svc, _, _ := newTestService()

	anonymousID, token, err := svc.BeginAnonymous(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	identity, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Profile != nil || identity.AnonymousID != anonymousID {
		t.Fatalf("expected anonymous identity %q, got %+v", anonymousID, identity)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	svc, _, tokens := newTestService()

	profileID := "prof-1"
	tokens.tokens["stale"] = tokenrepo.Token{
		Token:     "stale",
		ProfileID: &profileID,
		Kind:      TokenKindProfile,
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	if _, err := svc.Authenticate(context.Background(), "stale"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok := tokens.tokens["stale"]; ok {
		t.Fatal("expected expired token removed")
	}
}

func TestLogout(t *testing.T) {
	svc, _, _ := newTestService()

	_, token, err := svc.Signup(context.Background(), SignupInput{Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after logout, got %v", err)
	}
	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("expected idempotent logout, got %v", err)
	}
}
