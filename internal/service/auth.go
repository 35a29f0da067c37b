package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/avdeenkov/cardbank/internal/models"
	"github.com/avdeenkov/cardbank/internal/repository"
)

// AuthService handles registration and login. The rest of the engine never
// authenticates anything itself; it consumes the Identity the middleware
// extracts from the tokens issued here.
type AuthService struct {
	store     Store
	jwtSecret string
	log       *logrus.Logger
}

// NewAuthService initializes a new auth service
func NewAuthService(store Store, jwtSecret string, log *logrus.Logger) *AuthService {
	return &AuthService{store: store, jwtSecret: jwtSecret, log: log}
}

// Register creates a new user with hashed password
func (s *AuthService) Register(ctx context.Context, email, firstName, lastName, password string, role models.Role) (*models.User, error) {
	if role == "" {
		role = models.RoleUser
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email %s", ErrAlreadyExists, email)
	} else if !errors.Is(err, repository.ErrNoRows) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		PasswordHash: string(hashedPassword),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token carrying the user id and
// role claims.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%w: invalid credentials", ErrAccessDenied)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("%w: invalid credentials", ErrAccessDenied)
	}

	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", user.ID),
		"role": string(user.Role),
		"exp":  jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}
