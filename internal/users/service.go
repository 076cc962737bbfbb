package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	"gorm.io/gorm"
)

var (
	// ErrInvalidEmail indicates the login did not carry a usable address.
	ErrInvalidEmail = errors.New("users: invalid email")
	// ErrAccountNotFound indicates no admin account matches.
	ErrAccountNotFound = errors.New("users: account not found")
)

// ServiceConfig describes the dependencies required for admin account tracking.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider ids.Provider
	Clock      func() time.Time
}

// Service records admin logins and resolves stable account ids.
type Service struct {
	db         *gorm.DB
	idProvider ids.Provider
	now        func() time.Time
	cache      sync.Map
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	provider := cfg.IDProvider
	if provider == nil {
		provider = ids.NewUUIDProvider()
	}
	return &Service{
		db:         cfg.Database,
		idProvider: provider,
		now:        clock,
	}, nil
}

// RecordLogin upserts the account for email, bumps its login counters and
// returns it. The email to id mapping is cached for the life of the process.
func (s *Service) RecordLogin(ctx context.Context, email string) (AdminAccount, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return AdminAccount{}, ErrInvalidEmail
	}
	now := s.now().UTC()

	var account AdminAccount
	query := s.db.WithContext(ctx)
	if cachedID, ok := s.cache.Load(normalized); ok {
		query = query.Where("id = ?", cachedID)
	} else {
		query = query.Where("email = ?", normalized)
	}
	err := query.Take(&account).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		id, idErr := s.idProvider.NewID()
		if idErr != nil {
			return AdminAccount{}, idErr
		}
		account = AdminAccount{
			ID:          id,
			Email:       normalized,
			DisplayName: displayNameFor(normalized),
			LoginCount:  1,
			LastLoginAt: now,
		}
		if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
			return AdminAccount{}, err
		}
	case err != nil:
		return AdminAccount{}, err
	default:
		account.LoginCount++
		account.LastLoginAt = now
		if err := s.db.WithContext(ctx).Model(&AdminAccount{}).
			Where("id = ?", account.ID).
			Updates(map[string]interface{}{
				"login_count":   account.LoginCount,
				"last_login_at": account.LastLoginAt,
			}).Error; err != nil {
			return AdminAccount{}, err
		}
	}

	s.cache.Store(normalized, account.ID)
	return account, nil
}

// Get returns the account with id.
func (s *Service) Get(ctx context.Context, id string) (AdminAccount, error) {
	var account AdminAccount
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AdminAccount{}, ErrAccountNotFound
	}
	return account, err
}
