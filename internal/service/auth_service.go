package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/repository"
	"github.com/d60-Lab/pronia/pkg/auth"
)

// Session 登录结果
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	// Authenticate 校验 token，返回用户 ID
	Authenticate(token string) (string, error)
}

type authService struct {
	users repository.UserRepository
	jwt   *auth.JWTManager
	cost  int
}

func NewAuthService(users repository.UserRepository, jwt *auth.JWTManager) AuthService {
	return &authService{users: users, jwt: jwt, cost: bcrypt.DefaultCost}
}

func (s *authService) Register(ctx context.Context, username, email, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &model.User{
		ID:          uuid.New().String(),
		Username:    strings.TrimSpace(username),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Password:    string(hash),
		DisplayName: strings.TrimSpace(username),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.issue(u)
}

func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *authService) Authenticate(token string) (string, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *authService) issue(u *model.User) (*Session, error) {
	token, exp, err := s.jwt.Generate(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}
