package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
	notifService "kaamkhoj.in/hireease/internal/modules/notification/service"
	"kaamkhoj.in/hireease/internal/modules/user/dto"
	"kaamkhoj.in/hireease/internal/modules/user/repository"
	"kaamkhoj.in/hireease/pkg/apperror"
)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	GoogleLogin() string
	GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error)
}

type authService struct {
	repo          repository.UserRepository
	notifications notifService.NotificationService
	secret        string
	tokenTTL      time.Duration
	defaultRole   string
	googleConfig  *oauth2.Config
}

func NewAuthService(repo repository.UserRepository, notifications notifService.NotificationService) AuthService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change-me"
	}

	ttl := time.Hour
	if ttlStr := os.Getenv("JWT_TTL_MINUTES"); ttlStr != "" {
		if minutes, err := strconv.Atoi(ttlStr); err == nil {
			ttl = time.Duration(minutes) * time.Minute
		}
	}

	defaultRole := os.Getenv("DEFAULT_ROLE")
	if defaultRole == "" {
		defaultRole = entity.RoleWorker
	}

	googleConfig := &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return &authService{
		repo:          repo,
		notifications: notifications,
		secret:        secret,
		tokenTTL:      ttl,
		defaultRole:   defaultRole,
		googleConfig:  googleConfig,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", apperror.ErrDuplicate)
	}
	if _, err := s.repo.FindByUsername(ctx, input.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", apperror.ErrDuplicate)
	}

	role, err := s.repo.FindRoleByName(ctx, input.Role)
	if err != nil {
		return nil, fmt.Errorf("unknown role %q: %w", input.Role, apperror.ErrInvalidInput)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashed),
		RoleID:       &role.ID,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	profile := &entity.Profile{
		UserID:   user.ID,
		FullName: input.FullName,
	}
	if input.Phone != "" {
		profile.Phone = &input.Phone
	}
	if input.City != "" {
		profile.City = &input.City
	}
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	user.Role = *role
	user.Profile = profile

	// Welcome notification, best-effort.
	if s.notifications != nil {
		go func() {
			n := &entity.Notification{
				UserID:   user.ID,
				Message:  fmt.Sprintf("Welcome to HireEase, %s! Complete your profile to get started.", input.FullName),
				Type:     entity.TypeProfileCreated,
				Category: "system",
				Priority: entity.PriorityLow,
			}
			_ = s.notifications.Create(context.Background(), n)
		}()
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	return s.buildAuthResponse(user)
}

func (s *authService) GoogleLogin() string {
	return s.googleConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

func (s *authService) GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, errors.New("failed to exchange token: " + err.Error())
	}

	client := s.googleConfig.Client(ctx, token)
	userInfoResp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, errors.New("failed to get user info: " + err.Error())
	}
	defer userInfoResp.Body.Close()

	var googleUser struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(userInfoResp.Body).Decode(&googleUser); err != nil {
		return nil, errors.New("failed to decode user info: " + err.Error())
	}

	if user, err := s.repo.FindByGoogleID(ctx, googleUser.ID); err == nil {
		return s.buildAuthResponse(user)
	}

	// Link by email if the account already exists.
	if user, err := s.repo.FindByEmail(ctx, googleUser.Email); err == nil {
		user.GoogleID = &googleUser.ID
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, err
		}
		return s.buildAuthResponse(user)
	}

	role, err := s.repo.FindRoleByName(ctx, s.defaultRole)
	if err != nil {
		return nil, err
	}

	username := strings.Split(googleUser.Email, "@")[0]
	user := &entity.User{
		Username: username,
		Email:    googleUser.Email,
		GoogleID: &googleUser.ID,
		RoleID:   &role.ID,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	profile := &entity.Profile{UserID: user.ID, FullName: googleUser.Name}
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	user.Role = *role
	user.Profile = profile
	return s.buildAuthResponse(user)
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
		User:        user,
		Role:        &user.Role,
		Profile:     user.Profile,
	}, nil
}
