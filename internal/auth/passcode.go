package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/mail"
	"github.com/MarcoPoloResearchLab/portfolio/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	passcodeDigits           = 6
	defaultPasscodeTTL       = 10 * time.Minute
	defaultMaxAttempts       = 5
	defaultRequestInterval   = time.Minute
	defaultRequestBurst      = 3
	operationPasscodeRequest = "auth.passcode.request"
	operationPasscodeVerify  = "auth.passcode.verify"
)

var (
	ErrInvalidEmail      = errors.New("passcode: invalid email")
	ErrRateLimited       = errors.New("passcode: too many requests")
	ErrInvalidPasscode   = errors.New("passcode: invalid code")
	ErrPasscodeExpired   = errors.New("passcode: code expired")
	ErrTooManyAttempts   = errors.New("passcode: too many attempts")
	errMissingDatabase   = errors.New("passcode: database required")
	errMissingMailer     = errors.New("passcode: mailer required")
	errNoAllowedAccounts = errors.New("passcode: at least one admin email required")
)

// PasscodeChallenge is the outstanding one-time passcode for an email address.
// Only the bcrypt hash of the code is stored.
type PasscodeChallenge struct {
	Email     string    `gorm:"column:email;primaryKey;size:320;not null"`
	CodeHash  string    `gorm:"column:code_hash;size:120;not null"`
	Attempts  int       `gorm:"column:attempts;not null;default:0"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (PasscodeChallenge) TableName() string {
	return "passcode_challenges"
}

// PasscodeConfig configures a PasscodeService.
type PasscodeConfig struct {
	Database        *gorm.DB
	Mailer          mail.Mailer
	AllowedEmails   []string
	TTL             time.Duration
	MaxAttempts     int
	RequestInterval time.Duration
	RequestBurst    int
	HashCost        int
	CodeGenerator   func() (string, error)
	Clock           func() time.Time
	Logger          *zap.Logger
}

// PasscodeService runs the email one-time passcode exchange for admin login.
type PasscodeService struct {
	db          *gorm.DB
	mailer      mail.Mailer
	allowed     map[string]struct{}
	ttl         time.Duration
	maxAttempts int
	interval    time.Duration
	burst       int
	hashCost    int
	generate    func() (string, error)
	clock       func() time.Time
	logger      *zap.Logger

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// NewPasscodeService validates cfg and applies defaults.
func NewPasscodeService(cfg PasscodeConfig) (*PasscodeService, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Mailer == nil {
		return nil, errMissingMailer
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedEmails))
	for _, email := range cfg.AllowedEmails {
		if normalized := normalizeEmail(email); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return nil, errNoAllowedAccounts
	}
	service := &PasscodeService{
		db:          cfg.Database,
		mailer:      cfg.Mailer,
		allowed:     allowed,
		ttl:         cfg.TTL,
		maxAttempts: cfg.MaxAttempts,
		interval:    cfg.RequestInterval,
		burst:       cfg.RequestBurst,
		hashCost:    cfg.HashCost,
		generate:    cfg.CodeGenerator,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		limiters:    map[string]*rate.Limiter{},
	}
	if service.ttl <= 0 {
		service.ttl = defaultPasscodeTTL
	}
	if service.maxAttempts <= 0 {
		service.maxAttempts = defaultMaxAttempts
	}
	if service.interval <= 0 {
		service.interval = defaultRequestInterval
	}
	if service.burst <= 0 {
		service.burst = defaultRequestBurst
	}
	if service.hashCost == 0 {
		service.hashCost = bcrypt.DefaultCost
	}
	if service.generate == nil {
		service.generate = randomPasscode
	}
	if service.clock == nil {
		service.clock = time.Now
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service, nil
}

// Request issues and mails a passcode. Addresses that are not admin accounts get
// the same successful response without a mail so admin addresses cannot be enumerated.
func (s *PasscodeService) Request(ctx context.Context, email string) error {
	normalized := normalizeEmail(email)
	if !validation.IsEmail(normalized) {
		return ErrInvalidEmail
	}
	if !s.allow(normalized) {
		return ErrRateLimited
	}
	if _, ok := s.allowed[normalized]; !ok {
		s.logger.Info("passcode requested for unknown account", zap.String("operation", operationPasscodeRequest))
		return nil
	}

	code, err := s.generate()
	if err != nil {
		s.logError(operationPasscodeRequest, "generate_failed", err)
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		s.logError(operationPasscodeRequest, "hash_failed", err)
		return err
	}
	now := s.clock().UTC()
	challenge := PasscodeChallenge{
		Email:     normalized,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "attempts", "expires_at", "created_at"}),
	}).Create(&challenge).Error
	if err != nil {
		s.logError(operationPasscodeRequest, "store_failed", err)
		return err
	}

	message := mail.Message{
		To:      normalized,
		Subject: "Your portfolio admin sign-in code",
		Body:    fmt.Sprintf("Your sign-in code is %s. It expires in %d minutes.\n", code, int(s.ttl.Minutes())),
	}
	if err := s.mailer.Send(ctx, message); err != nil {
		s.logError(operationPasscodeRequest, "mail_failed", err)
		return err
	}
	return nil
}

// Verify checks code against the outstanding challenge for email and consumes it
// on success. It returns the normalized email.
func (s *PasscodeService) Verify(ctx context.Context, email, code string) (string, error) {
	normalized := normalizeEmail(email)
	code = strings.TrimSpace(code)
	if normalized == "" || code == "" {
		return "", ErrInvalidPasscode
	}

	var challenge PasscodeChallenge
	err := s.db.WithContext(ctx).Where("email = ?", normalized).Take(&challenge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidPasscode
	}
	if err != nil {
		s.logError(operationPasscodeVerify, "query_failed", err)
		return "", err
	}

	if !s.clock().UTC().Before(challenge.ExpiresAt) {
		s.consume(ctx, normalized)
		return "", ErrPasscodeExpired
	}
	if challenge.Attempts >= s.maxAttempts {
		s.consume(ctx, normalized)
		return "", ErrTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)) != nil {
		attempts := challenge.Attempts + 1
		if attempts >= s.maxAttempts {
			s.consume(ctx, normalized)
			return "", ErrTooManyAttempts
		}
		if err := s.db.WithContext(ctx).Model(&PasscodeChallenge{}).
			Where("email = ?", normalized).
			Update("attempts", attempts).Error; err != nil {
			s.logError(operationPasscodeVerify, "attempt_update_failed", err)
		}
		return "", ErrInvalidPasscode
	}

	s.consume(ctx, normalized)
	return normalized, nil
}

func (s *PasscodeService) consume(ctx context.Context, email string) {
	if err := s.db.WithContext(ctx).Where("email = ?", email).Delete(&PasscodeChallenge{}).Error; err != nil {
		s.logError(operationPasscodeVerify, "consume_failed", err)
	}
}

func (s *PasscodeService) allow(email string) bool {
	s.limitersMu.Lock()
	limiter, ok := s.limiters[email]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(s.interval), s.burst)
		s.limiters[email] = limiter
	}
	s.limitersMu.Unlock()
	return limiter.AllowN(s.clock(), 1)
}

func (s *PasscodeService) logError(operation, reason string, err error) {
	s.logger.Error("passcode service error",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomPasscode() (string, error) {
	limit := big.NewInt(1_000_000)
	value, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", passcodeDigits, value.Int64()), nil
}
