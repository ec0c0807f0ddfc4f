package subusers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/utils"
	"github.com/eventvote/backend/pkg/validation"
)

// Store is the sub-user persistence used by the service.
type Store interface {
	Create(ctx context.Context, s *models.SubUser) (*models.SubUser, error)
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.SubUser, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.SubUser, error)
	Update(ctx context.Context, s *models.SubUser) (*models.SubUser, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

// CreateInput is a new sub-user. Role defaults to "user".
type CreateInput struct {
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=6"`
	Role        string   `json:"role" binding:"omitempty,oneof=user admin moderator"`
	Permissions []string `json:"permissions" binding:"max=64,dive,max=64"`
}

// UpdateInput changes a sub-user. Empty fields keep their value.
type UpdateInput struct {
	Email       string   `json:"email" binding:"omitempty,email"`
	Password    string   `json:"password" binding:"omitempty,min=6"`
	Role        string   `json:"role" binding:"omitempty,oneof=user admin moderator"`
	Permissions []string `json:"permissions" binding:"omitempty,max=64,dive,max=64"`
}

// Service manages the sub-users of an account.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a sub-user service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Create adds a sub-user to ownerID's account. Role defaults to "user".
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.SubUser, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.SubUserRoleUser
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	sub, err := s.store.Create(ctx, &models.SubUser{
		OwnerID:     ownerID,
		Email:       strings.ToLower(in.Email),
		Password:    hash,
		Role:        in.Role,
		Permissions: cleanPermissions(in.Permissions),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("sub-user created", zap.String("owner_id", ownerID.String()), zap.String("sub_user_id", sub.ID.String()))
	return sub, nil
}

// List returns ownerID's sub-users.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]models.SubUser, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Update changes an owned sub-user. Permissions are replaced when present in the request.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, in UpdateInput) (*models.SubUser, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	cur, err := s.store.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	next := *cur
	if in.Email != "" {
		next.Email = strings.ToLower(in.Email)
	}
	if in.Role != "" {
		next.Role = in.Role
	}
	if in.Permissions != nil {
		next.Permissions = cleanPermissions(in.Permissions)
	}
	if in.Password != "" {
		if next.Password, err = utils.HashPassword(in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}
	return s.store.Update(ctx, &next)
}

// Delete removes an owned sub-user.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info("sub-user deleted", zap.String("owner_id", ownerID.String()), zap.String("sub_user_id", id.String()))
	return nil
}

func cleanPermissions(in []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
