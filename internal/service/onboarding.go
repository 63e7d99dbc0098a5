package service

import (
	"context"
	"strings"
	"time"

	"cargomatch/internal/broker"
	"cargomatch/internal/models"
	"cargomatch/internal/redisclient"
	"cargomatch/internal/status"
	"cargomatch/internal/store"
	"cargomatch/internal/util"

	"go.uber.org/zap"
)

// defaultAccountCacheTTL bounds how long a stale activation flag can
// survive in the cache if an invalidation is lost.
const defaultAccountCacheTTL = 5 * time.Minute

// OnboardingService governs User and LSP-profile activation. An LSP
// account and its profile always flip together: the engine exposes no
// independent field setters.
type OnboardingService struct {
	store    store.Store
	redis    *redisclient.Client
	events   *broker.EventPublisher
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewOnboardingService creates the onboarding engine. redis and events
// may be nil in tests; the engine then skips cache invalidation and
// event publishing. cacheTTL <= 0 falls back to the default.
func NewOnboardingService(st store.Store, redis *redisclient.Client, events *broker.EventPublisher, cacheTTL time.Duration) *OnboardingService {
	if cacheTTL <= 0 {
		cacheTTL = defaultAccountCacheTTL
	}
	return &OnboardingService{
		store:    st,
		redis:    redis,
		events:   events,
		logger:   util.GetLogger(),
		cacheTTL: cacheTTL,
	}
}

// RegisterLSPRequest carries an LSP registration.
type RegisterLSPRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Name        string `json:"name" binding:"required"`
	CompanyName string `json:"company_name" binding:"required"`
	LicenseNo   string `json:"license_no" binding:"required"`
}

// RegisterLSP creates the inactive User and its pending LSPProfile as
// one atomic unit.
func (s *OnboardingService) RegisterLSP(ctx context.Context, req *RegisterLSPRequest) (*models.LSPProfile, *models.User, error) {
	const op = "OnboardingService.RegisterLSP"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.CompanyName == "" {
		return nil, nil, validation(op, "email and company name are required")
	}

	user := &models.User{
		Email:              email,
		Name:               req.Name,
		Role:               status.RoleLSP,
		VerificationStatus: status.VerificationPending,
	}
	profile := &models.LSPProfile{
		CompanyName:        req.CompanyName,
		LicenseNo:          req.LicenseNo,
		VerificationStatus: status.VerificationPending,
	}

	if err := s.store.CreateAccount(ctx, user, profile); err != nil {
		if err == store.ErrDuplicate {
			return nil, nil, conflict(op, "email already registered")
		}
		return nil, nil, transient(op, err)
	}

	s.logger.Info("LSP registered",
		zap.Int64("lsp_id", profile.ID),
		zap.Int64("user_id", user.ID))

	s.publish(ctx, models.EventTypeLSPRegistered, profile, user, 0, "")
	return profile, user, nil
}

// RegisterTraderRequest carries a trader registration.
type RegisterTraderRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

// RegisterTrader creates an immediately-active trader account. Traders
// need no profile verification.
func (s *OnboardingService) RegisterTrader(ctx context.Context, req *RegisterTraderRequest) (*models.User, error) {
	const op = "OnboardingService.RegisterTrader"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, validation(op, "email is required")
	}

	user := &models.User{
		Email:              email,
		Name:               req.Name,
		Role:               status.RoleTrader,
		VerificationStatus: status.VerificationApproved,
	}
	if err := s.store.CreateAccount(ctx, user, nil); err != nil {
		if err == store.ErrDuplicate {
			return nil, conflict(op, "email already registered")
		}
		return nil, transient(op, err)
	}

	s.logger.Info("trader registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// ApproveLSP activates an LSP: profile verification and the owning
// user's activation commit in the same transaction, so no read ever
// observes a partially-applied pair.
func (s *OnboardingService) ApproveLSP(ctx context.Context, lspID int64, actor Actor) (*models.LSPProfile, error) {
	return s.decide(ctx, "OnboardingService.ApproveLSP", lspID, status.VerificationApproved, "", actor)
}

// RejectLSP records a rejection with its reason. A decided profile may
// be flipped by a later admin call but never regresses to pending.
func (s *OnboardingService) RejectLSP(ctx context.Context, lspID int64, reason string, actor Actor) (*models.LSPProfile, error) {
	const op = "OnboardingService.RejectLSP"
	if strings.TrimSpace(reason) == "" {
		return nil, validation(op, "rejection reason is required")
	}
	return s.decide(ctx, op, lspID, status.VerificationRejected, reason, actor)
}

func (s *OnboardingService) decide(ctx context.Context, op string, lspID int64, to status.VerificationStatus, reason string, actor Actor) (*models.LSPProfile, error) {
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if !actor.IsAdmin() {
		util.TransitionsRejectedTotal.WithLabelValues("lsp_profile", string(KindForbidden)).Inc()
		return nil, forbidden(op, "only admins decide onboarding")
	}

	profile, err := s.store.GetLSPProfile(ctx, lspID)
	if err != nil {
		return nil, storeErr(op, err, "concurrent decision in flight")
	}

	from := profile.VerificationStatus
	if from == to {
		util.TransitionsRejectedTotal.WithLabelValues("lsp_profile", string(KindInvalidState)).Inc()
		return nil, invalidState(op, "profile is already %s", to)
	}
	if err := status.ValidateTransition(status.EntityLSPProfile, string(from), string(to)); err != nil {
		util.TransitionsRejectedTotal.WithLabelValues("lsp_profile", string(KindInvalidState)).Inc()
		return nil, invalidState(op, "%v", err)
	}

	// Drop the cached flag before the write as well as after: a login
	// racing the commit may refill the cache with the old value, and
	// the second delete removes that refill.
	if s.redis != nil {
		if err := s.redis.InvalidateAccount(ctx, profile.UserID); err != nil {
			s.logger.Error("failed to invalidate account cache",
				zap.Int64("user_id", profile.UserID), zap.Error(err))
		}
	}

	profile, user, err := s.store.DecideLSP(ctx, lspID, from, to, reason)
	if err != nil {
		return nil, storeErr(op, err, "concurrent decision won")
	}

	if s.redis != nil {
		if err := s.redis.InvalidateAccount(ctx, user.ID); err != nil {
			s.logger.Error("failed to invalidate account cache",
				zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	util.LSPDecisionsTotal.WithLabelValues(string(to)).Inc()
	s.logger.Info("LSP onboarding decided",
		zap.Int64("lsp_id", profile.ID),
		zap.Int64("user_id", user.ID),
		zap.String("decision", string(to)),
		zap.Bool("active", user.Active()))

	eventType := models.EventTypeLSPApproved
	if to == status.VerificationRejected {
		eventType = models.EventTypeLSPRejected
	}
	s.publish(ctx, eventType, profile, user, actor.ID, reason)
	return profile, nil
}

// GetLSP returns the current profile state.
func (s *OnboardingService) GetLSP(ctx context.Context, lspID int64) (*models.LSPProfile, error) {
	const op = "OnboardingService.GetLSP"
	profile, err := s.store.GetLSPProfile(ctx, lspID)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	return profile, nil
}

// CanLogin evaluates the activation state consulted by the login path,
// reading through the cache with the store as authority.
func (s *OnboardingService) CanLogin(ctx context.Context, userID int64) (bool, error) {
	const op = "OnboardingService.CanLogin"

	if s.redis != nil {
		active, found, err := s.redis.GetAccountActive(ctx, userID)
		if err == nil && found {
			return active, nil
		}
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, storeErr(op, err, "")
	}
	active := user.Active()

	if s.redis != nil {
		if err := s.redis.CacheAccountActive(ctx, userID, active, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache account state", zap.Error(err))
		}
	}
	return active, nil
}

// LookupAccount resolves the account a login attempt presents. Email
// comparison is case-insensitive, matching registration.
func (s *OnboardingService) LookupAccount(ctx context.Context, email string) (*models.User, error) {
	const op = "OnboardingService.LookupAccount"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, validation(op, "email is required")
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	return user, nil
}

func (s *OnboardingService) publish(ctx context.Context, eventType string, profile *models.LSPProfile, user *models.User, actorID int64, reason string) {
	if s.events == nil {
		return
	}
	event := &models.OnboardingEvent{
		BaseEvent: broker.NewBase(eventType),
		LSPID:     profile.ID,
		UserID:    user.ID,
		ActorID:   actorID,
		Reason:    reason,
	}
	if err := s.events.PublishOnboarding(ctx, event); err != nil {
		s.logger.Error("failed to publish onboarding event", zap.Error(err))
	}
}
