package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/altari/auth-service/application/port/inbound"
	"github.com/altari/auth-service/application/port/outbound"
	"github.com/altari/auth-service/domain/apperror"
	"github.com/altari/auth-service/domain/entity"
	"github.com/altari/auth-service/infrastructure/service/logger"
)

type AuthUseCase struct {
	userRepository  outbound.UserRepository
	tokenService    outbound.TokenService
	passwordService outbound.PasswordService
	logger          logger.Logger
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewAuthUseCase(
	userRepo outbound.UserRepository,
	tokenService outbound.TokenService,
	passwordService outbound.PasswordService,
	logger logger.Logger,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
) inbound.AuthUseCase {
	return &AuthUseCase{
		userRepository:  userRepo,
		tokenService:    tokenService,
		passwordService: passwordService,
		logger:          logger,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

func (uc *AuthUseCase) Register(ctx context.Context, req inbound.RegisterRequest) (*inbound.AuthResult, error) {
	ip := inbound.ClientIPFromContext(ctx)

	existing, err := uc.userRepository.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, outbound.ErrUserNotFound) {
		uc.logger.Error(ctx, "Failed to look up email", err, map[string]interface{}{
			"email": req.Email,
		})
		return nil, apperror.ErrDatabase("find user by email", err)
	}
	if existing != nil {
		logger.LogAuthEvent(ctx, uc.logger, "register_email_taken", "", ip, false, map[string]interface{}{
			"email": req.Email,
		})
		return nil, apperror.ErrEmailTaken
	}

	hash, err := uc.passwordService.HashPassword(req.Password)
	if err != nil {
		uc.logger.Error(ctx, "Failed to hash password", err, nil)
		return nil, apperror.ErrInternal("password hashing failed", err)
	}

	user := entity.NewUser(uuid.New().String(), req.Email, hash)

	if err := uc.userRepository.Create(ctx, user); err != nil {
		// Two concurrent registrations can both pass the lookup above;
		// the store's unique index decides the winner.
		if errors.Is(err, outbound.ErrEmailTaken) {
			logger.LogAuthEvent(ctx, uc.logger, "register_email_taken", "", ip, false, map[string]interface{}{
				"email": req.Email,
			})
			return nil, apperror.ErrEmailTaken
		}
		uc.logger.Error(ctx, "Failed to create user", err, map[string]interface{}{
			"email": req.Email,
		})
		return nil, apperror.ErrDatabase("create user", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "register_successful", user.ID, ip, true, map[string]interface{}{
		"email": req.Email,
	})

	return uc.issue(ctx, user)
}

func (uc *AuthUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.AuthResult, error) {
	ip := inbound.ClientIPFromContext(ctx)

	user, err := uc.userRepository.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			// Burn a hash comparison so this path costs the same as a
			// wrong password, then fail with the same error value.
			uc.passwordService.DummyVerify(req.Password)
			logger.LogAuthEvent(ctx, uc.logger, "login_failed_user_not_found", "", ip, false, map[string]interface{}{
				"email": req.Email,
			})
			return nil, apperror.ErrInvalidCredentials
		}
		uc.logger.Error(ctx, "Failed to find user", err, map[string]interface{}{
			"email": req.Email,
		})
		return nil, apperror.ErrDatabase("find user by email", err)
	}

	valid, err := uc.passwordService.VerifyPassword(req.Password, user.Password)
	if err != nil {
		uc.logger.Error(ctx, "Password verification error", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, apperror.ErrInternal("password verification failed", err)
	}
	if !valid {
		logger.LogAuthEvent(ctx, uc.logger, "login_failed_invalid_password", user.ID, ip, false, map[string]interface{}{
			"email": req.Email,
		})
		return nil, apperror.ErrInvalidCredentials
	}

	logger.LogAuthEvent(ctx, uc.logger, "login_successful", user.ID, ip, true, map[string]interface{}{
		"email": req.Email,
	})

	return uc.issue(ctx, user)
}

// Refresh rotates the pair for claims the guard already verified from a
// refresh-typed token. The user is re-fetched so a deleted account
// stops refreshing; the failure surfaces exactly like an invalid token.
func (uc *AuthUseCase) Refresh(ctx context.Context, claims *outbound.TokenClaims) (*inbound.AuthResult, error) {
	if claims == nil || claims.UserID == "" {
		return nil, apperror.ErrUnauthorized
	}

	user, err := uc.userRepository.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			logger.LogSecurityEvent(ctx, uc.logger, "refresh_user_not_found", "HIGH", map[string]interface{}{
				"user_id": claims.UserID,
			})
			return nil, apperror.ErrUserNotFound
		}
		uc.logger.Error(ctx, "Failed to find user", err, map[string]interface{}{
			"user_id": claims.UserID,
		})
		return nil, apperror.ErrDatabase("find user by id", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "token_refresh_successful", user.ID, inbound.ClientIPFromContext(ctx), true, nil)

	return uc.issue(ctx, user)
}

func (uc *AuthUseCase) Me(ctx context.Context, userID string) (*inbound.MeResponse, error) {
	if userID == "" {
		return nil, apperror.ErrUnauthorized
	}

	user, err := uc.userRepository.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		uc.logger.Error(ctx, "Failed to find user", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, apperror.ErrDatabase("find user by id", err)
	}

	return &inbound.MeResponse{
		ID:    user.ID,
		Email: user.Email,
	}, nil
}

func (uc *AuthUseCase) issue(ctx context.Context, user *entity.User) (*inbound.AuthResult, error) {
	pair, err := uc.tokenService.IssuePair(user.ID, user.Email)
	if err != nil {
		uc.logger.Error(ctx, "Failed to issue token pair", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, apperror.ErrInternal("token issuance failed", err)
	}

	return &inbound.AuthResult{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresIn:        int(uc.accessTokenTTL.Seconds()),
		RefreshExpiresIn: int(uc.refreshTokenTTL.Seconds()),
	}, nil
}
