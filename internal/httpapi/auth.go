package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"vendafacil/backend/internal/domain"
	"vendafacil/backend/internal/store"
)

// AuthManager issues and validates operator tokens. Credentials live in the
// operator store; nothing is cached here, so an account disabled in the store
// stops logging in immediately.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	store    OperatorStore
}

type OperatorStore interface {
	GetOperator(ctx context.Context, username string) (*domain.OperatorAccount, error)
	CreateOperator(ctx context.Context, account domain.OperatorAccount) error
}

type registerClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, operatorStore OperatorStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		store:    operatorStore,
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || strings.TrimSpace(req.Password) == "" {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	account, err := a.store.GetOperator(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, errors.New("invalid credentials")
		}
		return domain.LoginResponse{}, err
	}
	if !verifyPassword(account.Password, req.Password) {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}
	if !account.Active {
		return domain.LoginResponse{}, errors.New("account is inactive")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, account.Role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        account.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &registerClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := registerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "vendafacil",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// CreateOperator registers a new operator account with a bcrypt-hashed
// password. Usernames are normalized to lower case.
func (a *AuthManager) CreateOperator(ctx context.Context, username, password, role string) (domain.OperatorAccount, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || len(username) < 4 {
		return domain.OperatorAccount{}, errors.New("username must be at least 4 characters")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return domain.OperatorAccount{}, errors.New("username must not contain spaces")
	}
	if strings.TrimSpace(password) == "" || len(password) < 6 {
		return domain.OperatorAccount{}, errors.New("password must be at least 6 characters")
	}
	if role != "admin" && role != "operator" {
		role = "operator"
	}

	hash, err := HashPassword(password)
	if err != nil {
		return domain.OperatorAccount{}, errors.New("failed to hash password")
	}

	account := domain.OperatorAccount{
		Username:  username,
		Password:  hash,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateOperator(ctx, account); err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return domain.OperatorAccount{}, errors.New("username already exists")
		}
		return domain.OperatorAccount{}, err
	}

	account.Password = ""
	return account, nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
