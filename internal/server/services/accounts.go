package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/cryptox"
	"github.com/dmitrijs2005/stavros/internal/dbx"
	"github.com/dmitrijs2005/stavros/internal/logging"
	"github.com/dmitrijs2005/stavros/internal/server/config"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/dmitrijs2005/stavros/internal/server/notify"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/repomanager"
)

// VerifyOutcome tells a successful verification apart from a replay.
type VerifyOutcome string

const (
	OutcomeVerified        VerifyOutcome = "verified"
	OutcomeAlreadyVerified VerifyOutcome = "already_verified"
)

// AccountService registers accounts and runs the email verification
// lifecycle: issuing single-use links, consuming them and the welcome mail.
type AccountService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	notifier        notify.Notifier
	logger          logging.Logger
	baseURL         string
	verificationTTL time.Duration
	passwordParams  cryptox.Params
	now             func() time.Time
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, n notify.Notifier,
	logger logging.Logger, cfg *config.Config) *AccountService {
	return &AccountService{
		db:              db,
		repomanager:     m,
		notifier:        n,
		logger:          logger.With("service", "accounts"),
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		verificationTTL: cfg.VerificationTokenValidityDuration,
		passwordParams:  cryptox.DefaultParams,
		now:             time.Now,
	}
}

// VerificationLink is the URL mailed to the account owner.
func (s *AccountService) VerificationLink(token string) string {
	return s.baseURL + "/verify/" + token
}

// Signup validates in, then creates the unverified account together with its
// verification token in one transaction. The link is mailed after commit, so
// a rejected signup never sends anything.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		Name:         in.Name,
		Role:         in.Role,
		PasswordHash: cryptox.HashPassword([]byte(in.Password), s.passwordParams),
	}

	var token string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created
		token, err = s.issueToken(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	s.logger.Info(ctx, "account created", "user_id", user.ID, "role", user.Role)
	s.sendVerification(ctx, user, token)
	return user, nil
}

// ResendVerification mails a fresh link when email belongs to an unverified
// account and silently does nothing otherwise, so callers cannot learn which
// addresses are registered.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	email, ok := NormalizeEmail(email)
	if !ok {
		return nil
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error searching account: %w", err)
	}
	if user.IsVerified() {
		return nil
	}

	var token string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		token, err = s.issueToken(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("error issuing verification token: %w", err)
	}

	s.sendVerification(ctx, user, token)
	return nil
}

// Verify consumes a verification token. The first consumption marks the
// account verified and sends the welcome mail. Replaying a consumed link of a
// verified account reports OutcomeAlreadyVerified without side effects. Every
// other failure is common.ErrInvalidToken.
func (s *AccountService) Verify(ctx context.Context, token string) (*models.User, VerifyOutcome, error) {
	token = strings.TrimSpace(token)
	if !wellFormedToken(token) {
		return nil, "", common.ErrInvalidToken
	}
	digest := cryptox.HashToken(token)
	now := s.now()

	var (
		userID    string
		consumed  bool
		firstTime bool
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		id, err := s.repomanager.VerificationTokens(tx).Consume(ctx, digest, now)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		consumed, userID = true, id
		firstTime, err = s.repomanager.Users(tx).MarkVerified(ctx, id, now)
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("error consuming verification token: %w", err)
	}

	if !consumed {
		return s.replayed(ctx, digest)
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("error loading account: %w", err)
	}

	if !firstTime {
		return user, OutcomeAlreadyVerified, nil
	}

	s.logger.Info(ctx, "account verified", "user_id", user.ID)
	if err := s.notifier.SendWelcome(ctx, recipient(user)); err != nil {
		s.logger.Error(ctx, "welcome email failed", "user_id", user.ID, "error", err)
	}
	return user, OutcomeVerified, nil
}

// replayed resolves a token that could not be consumed. Only a consumed token
// whose account is verified counts as a harmless replay.
func (s *AccountService) replayed(ctx context.Context, digest string) (*models.User, VerifyOutcome, error) {
	stored, err := s.repomanager.VerificationTokens(s.db).FindByHash(ctx, digest)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrInvalidToken
		}
		return nil, "", fmt.Errorf("error searching verification token: %w", err)
	}
	if stored.ConsumedAt == nil {
		return nil, "", common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrInvalidToken
		}
		return nil, "", fmt.Errorf("error loading account: %w", err)
	}
	if !user.IsVerified() {
		return nil, "", common.ErrInvalidToken
	}
	return user, OutcomeAlreadyVerified, nil
}

// CreateSuperuser provisions a verified administrator account. Superusers
// are recorded with the teacher role.
func (s *AccountService) CreateSuperuser(ctx context.Context, email, name, password string) (*models.User, error) {
	in, err := SignupInput{Email: email, Name: name, Password: password, Role: models.RoleTeacher}.normalize()
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		Email:        in.Email,
		Name:         in.Name,
		Role:         in.Role,
		PasswordHash: cryptox.HashPassword([]byte(in.Password), s.passwordParams),
		IsSuperuser:  true,
		VerifiedAt:   &now,
	}
	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating superuser: %w", err)
	}
	s.logger.Info(ctx, "superuser created", "user_id", user.ID)
	return user, nil
}

// issueToken invalidates userID's pending links and stores a new one,
// returning the raw token for the email.
func (s *AccountService) issueToken(ctx context.Context, tx dbx.DBTX, userID string) (string, error) {
	repo := s.repomanager.VerificationTokens(tx)
	if _, err := repo.DeletePending(ctx, userID); err != nil {
		return "", err
	}
	token, digest, err := cryptox.NewToken()
	if err != nil {
		return "", err
	}
	if err := repo.Create(ctx, userID, digest, s.now().Add(s.verificationTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// sendVerification mails the link. A delivery failure is logged rather than
// returned: the account exists and the user can ask for another link.
func (s *AccountService) sendVerification(ctx context.Context, user *models.User, token string) {
	if err := s.notifier.SendVerification(ctx, recipient(user), s.VerificationLink(token)); err != nil {
		s.logger.Error(ctx, "verification email failed", "user_id", user.ID, "error", err)
	}
}

func recipient(u *models.User) notify.Recipient {
	return notify.Recipient{Email: u.Email, Name: u.Name}
}

func wellFormedToken(token string) bool {
	if len(token) != hex.EncodedLen(cryptox.TokenBytes) {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
