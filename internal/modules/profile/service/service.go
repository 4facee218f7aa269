package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"kaamkhoj.in/hireease/internal/entity"
	profileDto "kaamkhoj.in/hireease/internal/modules/profile/dto"
	userRepo "kaamkhoj.in/hireease/internal/modules/user/repository"
	"kaamkhoj.in/hireease/pkg/apperror"
	"kaamkhoj.in/hireease/pkg/sanitize"
	"kaamkhoj.in/hireease/pkg/storage"
)

const avatarFolder = "avatars"

type Service interface {
	// Me returns the caller's own profile including email.
	Me(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error)
	// ByUsername returns the public view of another user's profile.
	ByUsername(ctx context.Context, username string) (*profileDto.ProfileResponse, error)
	Update(ctx context.Context, userID uuid.UUID, req profileDto.UpdateProfileRequest) (*profileDto.ProfileResponse, error)
	// UploadAvatar replaces the avatar image. The previous image is removed
	// from storage in the background.
	UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, fileName string) (*profileDto.ProfileResponse, error)
}

type service struct {
	userRepo userRepo.UserRepository
	storage  storage.ImageStorage
}

func NewService(users userRepo.UserRepository, imageStorage storage.ImageStorage) Service {
	return &service{
		userRepo: users,
		storage:  imageStorage,
	}
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toResponse(user, true), nil
}

func (s *service) ByUsername(ctx context.Context, username string) (*profileDto.ProfileResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return toResponse(user, false), nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, req profileDto.UpdateProfileRequest) (*profileDto.ProfileResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := user.Profile
	if profile == nil {
		profile = &entity.Profile{UserID: user.ID}
	}

	if req.FullName != nil {
		profile.FullName = sanitize.Plain(*req.FullName)
	}
	if req.Phone != nil {
		phone := sanitize.Plain(*req.Phone)
		profile.Phone = &phone
	}
	if req.City != nil {
		city := sanitize.Plain(*req.City)
		profile.City = &city
	}
	if req.Bio != nil {
		bio := sanitize.Plain(*req.Bio)
		profile.Bio = &bio
	}

	if err := s.userRepo.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	user.Profile = profile

	return toResponse(user, true), nil
}

func (s *service) UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, fileName string) (*profileDto.ProfileResponse, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("image storage not configured: %w", apperror.ErrInternal)
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.UploadImage(ctx, r, avatarFolder, fileName)
	if err != nil {
		return nil, fmt.Errorf("avatar upload: %w", err)
	}

	oldURL := user.AvatarURL
	user.AvatarURL = &url
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if oldURL != nil && *oldURL != "" {
		go func(old string) {
			if err := s.storage.DeleteImage(context.Background(), old); err != nil {
				log.Printf("failed to delete old avatar %s: %v", old, err)
			}
		}(*oldURL)
	}

	return toResponse(user, true), nil
}

func (s *service) findUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func toResponse(user *entity.User, includeEmail bool) *profileDto.ProfileResponse {
	resp := &profileDto.ProfileResponse{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role.Name,
		AvatarURL: user.AvatarURL,
	}
	if includeEmail {
		resp.Email = user.Email
	}
	if user.Profile != nil {
		resp.FullName = user.Profile.FullName
		resp.Phone = user.Profile.Phone
		resp.City = user.Profile.City
		resp.Bio = user.Profile.Bio
	}
	return resp
}
