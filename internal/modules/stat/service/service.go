package stat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"kaamkhoj.in/hireease/internal/entity"
	appRepo "kaamkhoj.in/hireease/internal/modules/application/repository"
	jobRepo "kaamkhoj.in/hireease/internal/modules/job/repository"
	userRepo "kaamkhoj.in/hireease/internal/modules/user/repository"
)

const (
	cacheKey = "stats:platform"
	cacheTTL = 5 * time.Minute
)

// PlatformStats is the public landing-page counter set.
type PlatformStats struct {
	TotalUsers     int64 `json:"total_users"`
	OpenJobs       int64 `json:"open_jobs"`
	CompletedHires int64 `json:"completed_hires"`
}

type Service interface {
	Platform(ctx context.Context) (*PlatformStats, error)
}

type service struct {
	userRepo    userRepo.UserRepository
	jobRepo     jobRepo.JobRepository
	appRepo     appRepo.ApplicationRepository
	redisClient *redis.Client
}

func NewService(users userRepo.UserRepository, jobs jobRepo.JobRepository, applications appRepo.ApplicationRepository, redisClient *redis.Client) Service {
	return &service{
		userRepo:    users,
		jobRepo:     jobs,
		appRepo:     applications,
		redisClient: redisClient,
	}
}

func (s *service) Platform(ctx context.Context) (*PlatformStats, error) {
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var stats PlatformStats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	users, err := s.userRepo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	openJobs, err := s.jobRepo.CountOpen(ctx)
	if err != nil {
		return nil, err
	}
	hires, err := s.appRepo.CountByStatus(ctx, entity.StatusCompleted)
	if err != nil {
		return nil, err
	}

	stats := &PlatformStats{
		TotalUsers:     users,
		OpenJobs:       openJobs,
		CompletedHires: hires,
	}

	if s.redisClient != nil {
		if payload, err := json.Marshal(stats); err == nil {
			s.redisClient.SetEx(ctx, cacheKey, payload, cacheTTL)
		}
	}

	return stats, nil
}
