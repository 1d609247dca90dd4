package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
)

const tracerName = "github.com/dtroode/starter-api/internal/service"

// Session drives every flow that ends with a freshly minted token pair.
type Session struct {
	credentials *Credentials
	issuer      model.TokenIssuer
	refresh     *RefreshTokens
	users       model.UserStore
	logger      *logger.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

func NewSession(
	credentials *Credentials,
	issuer model.TokenIssuer,
	refresh *RefreshTokens,
	users model.UserStore,
	logger *logger.Logger,
) *Session {
	return &Session{
		credentials: credentials,
		issuer:      issuer,
		refresh:     refresh,
		users:       users,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
	}
}

func (s *Session) Register(ctx context.Context, params RegisterParams, meta model.ClientMeta) (model.Session, error) {
	ctx, span := s.tracer.Start(ctx, "Session.Register")
	defer span.End()

	user, err := s.credentials.Register(ctx, params)
	if err != nil {
		return model.Session{}, spanError(span, err)
	}

	session, err := s.issueSession(ctx, user, meta)
	return session, spanError(span, err)
}

func (s *Session) Login(ctx context.Context, email, password string, meta model.ClientMeta) (model.Session, error) {
	ctx, span := s.tracer.Start(ctx, "Session.Login")
	defer span.End()

	user, err := s.credentials.Login(ctx, email, password)
	if err != nil {
		return model.Session{}, spanError(span, err)
	}

	session, err := s.issueSession(ctx, user, meta)
	if err == nil {
		s.logger.Info("Session: user logged in", "user_id", user.ID)
	}
	return session, spanError(span, err)
}

// Refresh rotates refreshToken. The presented token is unusable afterwards
// even when the rest of the flow fails.
func (s *Session) Refresh(ctx context.Context, userID uuid.UUID, refreshToken string, meta model.ClientMeta) (model.Session, error) {
	ctx, span := s.tracer.Start(ctx, "Session.Refresh", trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	if refreshToken == "" {
		return model.Session{}, spanError(span, apierror.NewErrMissingRefreshToken())
	}

	if _, err := s.refresh.Redeem(ctx, userID, refreshToken); err != nil {
		return model.Session{}, spanError(span, err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Session{}, spanError(span, apierror.NewErrUserNotFoundOrInactive())
	}
	if err != nil {
		return model.Session{}, spanError(span, fmt.Errorf("failed to get user by id: %w", err))
	}
	if !user.IsActive {
		s.logger.Info("Session: refresh for deactivated account", "user_id", userID)
		return model.Session{}, spanError(span, apierror.NewErrUserNotFoundOrInactive())
	}

	session, err := s.issueSession(ctx, user, meta)
	return session, spanError(span, err)
}

// Logout revokes refreshToken. It succeeds when no record exists.
func (s *Session) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	ctx, span := s.tracer.Start(ctx, "Session.Logout")
	defer span.End()

	if refreshToken == "" {
		return nil
	}
	if err := s.refresh.Revoke(ctx, userID, refreshToken); err != nil {
		return spanError(span, err)
	}

	s.logger.Info("Session: user logged out", "user_id", userID)
	return nil
}

// OAuthLogin signs in the owner of a provider profile, creating the
// account on first login. An email already registered under another
// provider is rejected rather than linked.
func (s *Session) OAuthLogin(ctx context.Context, provider model.Provider, profile model.OAuthProfile, meta model.ClientMeta) (model.Session, error) {
	ctx, span := s.tracer.Start(ctx, "Session.OAuthLogin", trace.WithAttributes(attribute.String("oauth.provider", string(provider))))
	defer span.End()

	email := model.NormalizeEmail(profile.Email)
	if email == "" {
		return model.Session{}, spanError(span, apierror.NewErrOAuthEmailMissing(string(provider)))
	}
	if profile.ExternalID == "" {
		return model.Session{}, spanError(span, apierror.NewErrOAuthFailed(errors.New("profile id is empty")))
	}

	user, err := s.findOrCreateOAuthUser(ctx, provider, email, profile)
	if err != nil {
		return model.Session{}, spanError(span, err)
	}
	if !user.IsActive {
		return model.Session{}, spanError(span, apierror.NewErrAccountDeactivated())
	}

	session, err := s.issueSession(ctx, user, meta)
	if err == nil {
		s.logger.Info("Session: oauth login", "user_id", user.ID, "provider", provider)
	}
	return session, spanError(span, err)
}

func (s *Session) findOrCreateOAuthUser(ctx context.Context, provider model.Provider, email string, profile model.OAuthProfile) (model.User, error) {
	user, err := s.users.GetByProvider(ctx, provider, profile.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by provider: %w", err)
	}

	user, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		if user.Provider != provider {
			s.logger.Info("Session: email registered with another provider",
				"email", email,
				"provider", provider,
				"existing_provider", user.Provider)
			return model.User{}, apierror.NewErrProviderConflict(string(user.Provider))
		}
		s.logger.Info("Session: email registered with another account of the provider",
			"email", email,
			"provider", provider)
		return model.User{}, apierror.NewErrProviderAccountConflict(string(provider))
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	now := s.now()
	externalID := profile.ExternalID
	created, err := s.users.Create(ctx, model.User{
		ID:         uuid.New(),
		Email:      email,
		Provider:   provider,
		ProviderID: &externalID,
		Roles:      []model.Role{model.RoleUser},
		IsActive:   true,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
		AvatarURL:  profile.AvatarURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		// Lost a race with a concurrent first login.
		if existing, lookupErr := s.users.GetByProvider(ctx, provider, externalID); lookupErr == nil {
			return existing, nil
		}
		return model.User{}, apierror.NewErrEmailIsTaken()
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Session: oauth user created", "user_id", created.ID, "provider", provider)
	return created, nil
}

// issueSession mints a token pair for user and records the refresh token.
// Nothing is returned unless the record was stored.
func (s *Session) issueSession(ctx context.Context, user model.User, meta model.ClientMeta) (model.Session, error) {
	claims := model.ClaimsFor(user)

	access, err := s.issuer.Issue(claims, model.PurposeAccess)
	if err != nil {
		return model.Session{}, apierror.NewErrInternalServerError(fmt.Errorf("issue access: %w", err))
	}

	refresh, err := s.issuer.Issue(claims, model.PurposeRefresh)
	if err != nil {
		return model.Session{}, apierror.NewErrInternalServerError(fmt.Errorf("issue refresh: %w", err))
	}

	if err := s.refresh.Put(ctx, user.ID, refresh.Value, refresh.ExpiresAt, meta); err != nil {
		s.logger.Error("Session: failed to store refresh token",
			"user_id", user.ID,
			"error", err.Error())
		return model.Session{}, apierror.NewErrInternalServerError(err)
	}

	return model.Session{
		AccessToken:      access.Value,
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.ExpiresAt,
		User:             user,
	}, nil
}

func spanError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
