package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
	"golang.org/x/crypto/bcrypt"

	"github.com/reservadesk/reservadesk/internal/model"
	"github.com/reservadesk/reservadesk/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// DefaultTokenTTL is the session lifetime used when none is configured.
const DefaultTokenTTL = time.Hour

const tokenIssuer = "reservadesk"

// dummyHash is compared against when the username is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("reservadesk-dummy-password"), bcrypt.DefaultCost)

// Claims is the verified content of a session token.
type Claims struct {
	UserID  string
	IsAdmin bool
}

// LoginResult is returned by a successful Authenticate call.
type LoginResult struct {
	Token string
	User  model.UserSummary
}

type AuthService struct {
	users     store.UserStore
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthService(users store.UserStore, jwtSecret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Authenticate checks username and password and issues a session token.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user.Summary()}, nil
}

// IssueToken creates a signed HS256 token for user.
func (s *AuthService) IssueToken(user *model.User) (string, error) {
	now := s.now()
	claims := jwtClaims{
		UserID:  user.ID,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature, expiry and issuer of tokenStr. Every
// failure is reported as ErrInvalidToken.
func (s *AuthService) VerifyToken(tokenStr string) (*Claims, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: claims.UserID, IsAdmin: claims.IsAdmin}, nil
}

// MinPasswordLength is enforced for accounts created through CreateUser.
const MinPasswordLength = 8

// CreateUser hashes password and stores a new account. A taken username
// returns store.ErrDuplicate.
func (s *AuthService) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*model.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:           xid.New().String(),
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user %q: %w", username, err)
	}
	return u, nil
}

// EnsureAdmin creates an admin account when the user collection is empty.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("list users: %w", err)
	}
	if len(users) > 0 {
		return false, nil
	}
	if password == "" {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, username, password, true); err != nil {
		return false, err
	}
	return true, nil
}

// HashPassword returns the bcrypt hash of plain at the default cost.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

type jwtClaims struct {
	UserID  string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}
