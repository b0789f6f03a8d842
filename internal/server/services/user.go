// Package services contains server-side business logic. This file implements
// UserService, which handles login, issuing/refreshing JWTs plus
// server-stored refresh tokens, and the profile operations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/cryptox"
	"github.com/dmitrijs2005/stavros/internal/dbx"
	"github.com/dmitrijs2005/stavros/internal/server/auth"
	"github.com/dmitrijs2005/stavros/internal/server/config"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserService handles login sessions and account profiles.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	dummyHash                    string
	now                          func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		dummyHash:                    cryptox.HashPassword(common.GenerateRandByteArray(16), cryptox.DefaultParams),
		now:                          time.Now,
	}
}

// Login checks email and password and returns a new TokenPair. Unknown
// addresses and wrong passwords both yield common.ErrorUnauthorized; a
// correct password on an unverified account yields common.ErrEmailUnverified.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email, ok := NormalizeEmail(email)
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// same work as a real check so timing does not reveal the miss
			_, _ = cryptox.CheckPassword(s.dummyHash, []byte(password))
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	match, err := cryptox.CheckPassword(user.PasswordHash, []byte(password))
	if err != nil || !match {
		return nil, common.ErrorUnauthorized
	}
	if !user.IsVerified() {
		return nil, common.ErrEmailUnverified
	}
	return s.generateTokenPair(ctx, user, s.db)
}

// RefreshToken exchanges refreshToken for a new TokenPair. The old token is
// consumed in the same transaction that stores its replacement, so a token
// can be redeemed once. Unknown or already used tokens yield
// common.ErrorUnauthorized; expired ones ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrorUnauthorized
	}
	digest := cryptox.HashToken(refreshToken)

	var (
		pair    *TokenPair
		expired bool
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, digest)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		// the stale row is deleted either way
		if !token.Expires.After(s.now()) {
			expired = true
			return nil
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error loading account: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		if err != nil {
			return fmt.Errorf("error generating token pair: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, common.ErrRefreshTokenExpired
	}
	return pair, nil
}

// Logout revokes refreshToken. Unknown tokens are not an error.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.db).Revoke(ctx, cryptox.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// UpdateName changes the display name of userID and returns the account.
func (s *UserService) UpdateName(ctx context.Context, userID, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxNameLength {
		verr := common.NewValidationError()
		verr.Add("name", "name is too long")
		return nil, verr
	}
	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateName(ctx, userID, name); err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, userID)
}

// Profile returns what other users may see of userID.
func (s *UserService) Profile(ctx context.Context, userID string) (models.PublicProfile, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return models.PublicProfile{}, err
	}
	return user.Public(), nil
}

// List pages through every account, newest first.
func (s *UserService) List(ctx context.Context, page models.Page) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx, page)
}

// --- helpers below ---

func (s *UserService) generateAccessToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.ID, user.IsSuperuser, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	expires := s.now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, cryptox.HashToken(refresh), expires); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
