package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/ferag-backend/internal/data/repos"
	types "github.com/yungbote/ferag-backend/internal/domain"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/apierr"
	"github.com/yungbote/ferag-backend/internal/platform/ctxutil"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

const minPasswordLen = 6

var errInvalidCredentials = apierr.New(http.StatusUnauthorized, "invalid_credentials", errors.New("incorrect email or password"))

type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (*types.User, string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context) (*types.User, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	log          *logger.Logger
	users        repos.UserRepo
	jwtSecretKey []byte
	accessTTL    time.Duration
}

func NewAuthService(log *logger.Logger, users repos.UserRepo, jwtSecretKey string, accessTTL time.Duration) (AuthService, error) {
	if strings.TrimSpace(jwtSecretKey) == "" {
		return nil, fmt.Errorf("auth: JWT_SECRET_KEY is empty")
	}
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		users:        users,
		jwtSecretKey: []byte(jwtSecretKey),
		accessTTL:    accessTTL,
	}, nil
}

func (as *authService) Register(ctx context.Context, email, password string) (*types.User, string, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", apierr.BadRequest("invalid_email", fmt.Errorf("invalid email address"))
	}
	if len(password) < minPasswordLen {
		return nil, "", apierr.BadRequest("weak_password", fmt.Errorf("password must have at least %d characters", minPasswordLen))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	user := &types.User{Email: email, PasswordHash: string(hash)}
	if err := as.users.Create(dbctx.Context{Ctx: ctx}, user); err != nil {
		if errors.Is(err, repos.ErrConflict) {
			return nil, "", apierr.Conflict("email_taken", errors.New("email already registered"))
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}
	token, err := as.generateAccessToken(user)
	if err != nil {
		return nil, "", err
	}
	as.log.Info("User registered", "user_id", user.ID)
	return user, token, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := as.users.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if errors.Is(err, repos.ErrNotFound) {
		return "", errInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", errInvalidCredentials
	}
	return as.generateAccessToken(user)
}

func (as *authService) Me(ctx context.Context) (*types.User, error) {
	userID := ctxutil.UserID(ctx)
	if userID == 0 {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
	}
	user, err := as.users.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, apierr.NotFound("user_not_found", "user not found")
	}
	return user, err
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(as.jwtSecretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// SetContextFromToken validates tokenString and attaches the caller to ctx.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, fmt.Errorf("missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.jwtSecretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return ctx, fmt.Errorf("invalid user id in token")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      uint(id),
	}), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
