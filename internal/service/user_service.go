package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdeskpro/helpdesk-service/internal/domain"
	"github.com/helpdeskpro/helpdesk-service/internal/repository"
	apperrors "github.com/helpdeskpro/helpdesk-service/pkg/util"
)

const (
	agentRosterCacheKey = "helpdesk:agents"
	agentRosterCacheTTL = 60 * time.Second
)

// AgentSummary is what the assignment dropdown needs.
type AgentSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// UserService exposes user directory reads. The agent roster is cached
// in Redis since the assignment UI polls it; cache trouble degrades to
// a store read.
type UserService struct {
	users  repository.UserRepository
	cache  *redis.Client
	logger *zap.Logger
}

// NewUserService constructs the service. Cache may be nil.
func NewUserService(users repository.UserRepository, cache *redis.Client, logger *zap.Logger) *UserService {
	return &UserService{users: users, cache: cache, logger: logger}
}

// ListAgents returns every agent account.
func (s *UserService) ListAgents(ctx context.Context) ([]AgentSummary, error) {
	if cached := s.readCache(ctx); cached != nil {
		return cached, nil
	}

	agents, err := s.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summaries := make([]AgentSummary, 0, len(agents))
	for _, agent := range agents {
		summaries = append(summaries, AgentSummary{
			ID:       agent.ID,
			Username: agent.Username,
			Name:     agent.Name,
			Email:    agent.Email,
		})
	}

	s.writeCache(ctx, summaries)
	return summaries, nil
}

func (s *UserService) readCache(ctx context.Context) []AgentSummary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, agentRosterCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("agent roster cache read failed", zap.Error(err))
		}
		return nil
	}
	var summaries []AgentSummary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		s.logger.Debug("agent roster cache decode failed", zap.Error(err))
		return nil
	}
	return summaries
}

func (s *UserService) writeCache(ctx context.Context, summaries []AgentSummary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summaries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, agentRosterCacheKey, raw, agentRosterCacheTTL).Err(); err != nil {
		s.logger.Debug("agent roster cache write failed", zap.Error(err))
	}
}
