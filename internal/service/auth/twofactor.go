package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/levywanke/Tracking-System/internal/domain"
	"github.com/levywanke/Tracking-System/internal/repository"
	"github.com/levywanke/Tracking-System/pkg/totp"
)

var (
	// ErrInvalidCode indicates the submitted code did not verify. The
	// challenge stays pending and may be retried.
	ErrInvalidCode = errors.New("auth: invalid verification code")
	// ErrChallengeExpired indicates the challenge is no longer usable,
	// whether by timeout, attempt exhaustion, or prior consumption.
	ErrChallengeExpired = errors.New("auth: challenge expired")
	// ErrNotEnrolled indicates the account has no confirmed TOTP secret.
	ErrNotEnrolled = errors.New("auth: two-factor not enrolled")
	// ErrAlreadyEnrolled indicates the account already has 2FA enabled.
	ErrAlreadyEnrolled = errors.New("auth: two-factor already enabled")
)

// Enrollment carries the provisioning material returned when a user starts
// two-factor enrollment.
type Enrollment struct {
	Secret  string `json:"secret"`
	URL     string `json:"url"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

func (s Service) createChallenge(ctx context.Context, userID, returnTo string) (*domain.TwoFactorChallenge, error) {
	now := time.Now().UTC()
	ttl := s.cfg.ChallengeTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	challenge := &domain.TwoFactorChallenge{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    domain.ChallengePending,
		ReturnTo:  returnTo,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.challenges.CreateChallenge(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// VerifyCode finalizes a pending challenge. A valid TOTP code for the
// challenged user's secret establishes the session; an invalid code leaves
// the challenge pending until attempts run out or it times out.
func (s Service) VerifyCode(ctx context.Context, challengeID, code string) (LoginResult, error) {
	challenge, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrChallengeExpired
		}
		return LoginResult{}, err
	}
	now := time.Now().UTC()
	if challenge.Status != domain.ChallengePending || challenge.Expired(now) {
		if challenge.Status == domain.ChallengePending {
			_ = s.challenges.MarkChallengeExpired(ctx, challengeID)
		}
		return LoginResult{}, ErrChallengeExpired
	}
	user, err := s.users.GetUserByID(ctx, challenge.UserID)
	if err != nil {
		return LoginResult{}, err
	}
	if user.TwoFactorSecret == "" {
		return LoginResult{}, ErrNotEnrolled
	}
	if !totp.Validate(user.TwoFactorSecret, code, now) {
		attempts, err := s.challenges.IncrementChallengeAttempts(ctx, challengeID)
		if err != nil {
			return LoginResult{}, err
		}
		maxAttempts := s.cfg.ChallengeAttempts
		if maxAttempts <= 0 {
			maxAttempts = 5
		}
		if attempts >= maxAttempts {
			_ = s.challenges.MarkChallengeExpired(ctx, challengeID)
			s.logger.Warn("challenge attempts exhausted", "challenge_id", challengeID, "user_id", user.ID)
			return LoginResult{}, ErrChallengeExpired
		}
		return LoginResult{}, ErrInvalidCode
	}
	if err := s.challenges.MarkChallengeVerified(ctx, challengeID, now); err != nil {
		// Lost the race to another submission; the challenge is single-use.
		return LoginResult{}, ErrChallengeExpired
	}
	sessionToken, err := s.issueToken(user, s.cfg.SessionTTL)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Info("second factor verified", "user_id", user.ID, "challenge_id", challengeID)
	return LoginResult{User: user, Token: sessionToken, ExpiresIn: s.cfg.SessionTTL, ReturnTo: challenge.ReturnTo}, nil
}

// ChallengeStatus re-reads a pending challenge, used by the resend endpoint
// after its cooldown clears.
func (s Service) ChallengeStatus(ctx context.Context, challengeID string) (*domain.TwoFactorChallenge, error) {
	challenge, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeExpired
		}
		return nil, err
	}
	if challenge.Status != domain.ChallengePending || challenge.Expired(time.Now().UTC()) {
		return nil, ErrChallengeExpired
	}
	return challenge, nil
}

// EnrollTwoFactor generates a fresh secret for the user and returns the
// provisioning material. The account's flag stays off until ConfirmTwoFactor
// sees one valid code, so a half-finished enrollment never locks anyone out.
func (s Service) EnrollTwoFactor(ctx context.Context, userID string) (*Enrollment, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, ErrAlreadyEnrolled
	}
	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateTwoFactor(ctx, userID, secret, false); err != nil {
		return nil, err
	}
	s.logger.Info("two-factor enrollment started", "user_id", userID)
	return &Enrollment{
		Secret:  secret,
		URL:     totp.ProvisioningURL(s.cfg.TOTPIssuer, user.Email, secret),
		Issuer:  s.cfg.TOTPIssuer,
		Account: user.Email,
	}, nil
}

// ConfirmTwoFactor enables the second factor after the user proves they hold
// the enrolled secret.
func (s Service) ConfirmTwoFactor(ctx context.Context, userID, code string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorSecret == "" {
		return ErrNotEnrolled
	}
	if user.TwoFactorEnabled {
		return ErrAlreadyEnrolled
	}
	if !totp.Validate(user.TwoFactorSecret, code, time.Now().UTC()) {
		return ErrInvalidCode
	}
	if err := s.users.UpdateTwoFactor(ctx, userID, user.TwoFactorSecret, true); err != nil {
		return err
	}
	s.logger.Info("two-factor enabled", "user_id", userID)
	return nil
}
