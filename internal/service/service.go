package service

import (
	"errors"
	"fmt"

	"github.com/meowlab/cat-emotion-service/internal/config"
	"github.com/meowlab/cat-emotion-service/internal/models"
	"github.com/meowlab/cat-emotion-service/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("incorrect email or password")

// WelcomeMailer delivers a greeting to freshly registered users.
type WelcomeMailer interface {
	SendWelcome(to, username string) error
}

// Service handles business logic
type Service struct {
	repo   *repository.Repository
	log    *logrus.Logger
	config *config.Config
	mailer WelcomeMailer
}

// NewService initializes a new service. mailer may be nil when SMTP is not
// configured.
func NewService(repo *repository.Repository, log *logrus.Logger, cfg *config.Config, mailer WelcomeMailer) *Service {
	return &Service{repo: repo, log: log, config: cfg, mailer: mailer}
}

// Register creates a new user with hashed password
func (s *Service) Register(email, username, password string) (*models.User, error) {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:          email,
		Username:       username,
		HashedPassword: hashedPassword,
	}

	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}

	if s.mailer != nil {
		go func() {
			if err := s.mailer.SendWelcome(user.Email, user.Username); err != nil {
				s.log.Warnf("Failed to send welcome email to %s: %v", user.Email, err)
			}
		}()
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a signed session token
func (s *Service) Login(email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !VerifyPassword(password, user.HashedPassword) {
		return "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return token, nil
}

// GetUser resolves a user id to its record
func (s *Service) GetUser(id int64) (*models.User, error) {
	return s.repo.FindUserByID(id)
}

// HashPassword produces a salted one-way hash of the password
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches the stored hash
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
