package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Link purposes for signed email tokens.
const (
	PurposePasswordReset = "password_reset"
	PurposeVerifyEmail   = "verify_email"
)

// AuthConfig holds token lifetimes and the JWT signing secret.
type AuthConfig struct {
	JWTSecret       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	LinkTTL         time.Duration
	ShowOTPFallback bool
}

// AuthService handles registration, OTP gated login and token issuance.
type AuthService struct {
	userRepo  repositories.UserRepository
	otp       *OTPService
	notifier  *Notifier
	jwtSecret []byte
	cfg       AuthConfig
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, otp *OTPService, notifier *Notifier, cfg AuthConfig) *AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 72 * time.Hour
	}
	return &AuthService{
		userRepo:  userRepo,
		otp:       otp,
		notifier:  notifier,
		jwtSecret: []byte(cfg.JWTSecret),
		cfg:       cfg,
		now:       time.Now,
	}
}

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Name        string `json:"name" validate:"required,max=200"`
	FirstName   string `json:"first_name" validate:"max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
	PhoneNumber string `json:"phone_number" validate:"max=15"`
	Password    string `json:"password" validate:"required"`
	Password2   string `json:"password2" validate:"required"`
	Terms       bool   `json:"tc"`
}

// ChallengeOutcome describes a code that was just issued.
type ChallengeOutcome struct {
	Kind      models.ChallengeKind `json:"kind"`
	Email     string               `json:"email"`
	ExpiresAt time.Time            `json:"expires_at"`
	Delivered bool                 `json:"delivered"`
	// Hint carries the code when delivery failed and the UI fallback is enabled.
	Hint    string `json:"otp_hint,omitempty"`
	Message string `json:"message"`
}

// TokenPair is an access and refresh JWT.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func checkPassword(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Register creates an unverified account and starts a registration challenge.
// Re-registering an unverified email issues a fresh code instead.
func (s *AuthService) Register(sessionID string, req RegisterRequest) (*ChallengeOutcome, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := checkPassword(req.Password, req.Password2); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(email)
	switch {
	case err == nil && existing.IsEmailVerified:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, email)
	case err == nil:
		outcome, err := s.startChallenge(sessionID, models.ChallengeRegistration, existing, "")
		if err != nil {
			return nil, err
		}
		outcome.Message = "This email is awaiting verification. We have sent a new code."
		return outcome, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to look up %s: %w", email, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Email:         email,
		Name:          strings.TrimSpace(req.Name),
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		PhoneNumber:   strings.TrimSpace(req.PhoneNumber),
		Password:      string(hashed),
		TermsAccepted: req.Terms,
		IsActive:      true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	log.WithField("user_id", user.ID).Info("User registered")

	if token, err := s.signLink(user, PurposeVerifyEmail); err == nil {
		s.notifier.emitBestEffort(RoutingEmailVerify, LinkEvent{
			Purpose: PurposeVerifyEmail, UserID: user.ID, Email: user.Email, Name: user.Name, Token: token,
		})
	} else {
		log.Warnf("Verification link not issued: %v", err)
	}

	outcome, err := s.startChallenge(sessionID, models.ChallengeRegistration, user, "")
	if err != nil {
		return nil, err
	}
	outcome.Message = "Registration successful. Enter the code we emailed you."
	return outcome, nil
}

// LoginOutcome tells the caller which challenge the session must complete.
type LoginOutcome struct {
	ChallengeOutcome
	// Verified is false when the account still needs registration verification.
	Verified bool `json:"verified"`
}

// Login checks credentials and issues a login code, or a registration code for unverified accounts.
func (s *AuthService) Login(sessionID, email, password, next string) (*LoginOutcome, error) {
	user, err := s.authenticate(email, password)
	if err != nil {
		return nil, err
	}

	if !user.IsEmailVerified {
		outcome, err := s.startChallenge(sessionID, models.ChallengeRegistration, user, "")
		if err != nil {
			return nil, err
		}
		outcome.Message = "Please verify your email first. We have sent you a code."
		return &LoginOutcome{ChallengeOutcome: *outcome}, nil
	}

	outcome, err := s.startChallenge(sessionID, models.ChallengeLogin, user, next)
	if err != nil {
		return nil, err
	}
	outcome.Message = "Enter the login code we emailed you."
	return &LoginOutcome{ChallengeOutcome: *outcome, Verified: true}, nil
}

func (s *AuthService) authenticate(email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) startChallenge(sessionID string, kind models.ChallengeKind, user *models.User, next string) (*ChallengeOutcome, error) {
	ch, err := s.otp.Issue(sessionID, kind, user, next)
	if err != nil {
		return nil, err
	}
	return s.deliver(ch, user.Name), nil
}

// deliver hands the code to the mailer and degrades to a hint when that fails.
func (s *AuthService) deliver(ch *models.OTPChallenge, name string) *ChallengeOutcome {
	outcome := &ChallengeOutcome{Kind: ch.Kind, Email: ch.Email, ExpiresAt: ch.ExpiresAt, Delivered: true}

	err := s.notifier.Emit(RoutingOTPIssued, OTPEvent{
		Kind: string(ch.Kind), Email: ch.Email, Name: name, Code: ch.Code, ExpiresAt: ch.ExpiresAt,
	})
	if err == nil {
		return outcome
	}

	log.WithFields(log.Fields{"kind": ch.Kind, "email": ch.Email}).Warnf("OTP not delivered: %v", err)
	outcome.Delivered = false
	if ferr := s.otp.MarkDeliveryFailed(ch); ferr != nil {
		log.Warn(ferr)
	}
	if s.cfg.ShowOTPFallback {
		outcome.Hint = ch.Code
	}
	return outcome
}

// ChallengeStatus reports the pending challenge for the OTP entry screen.
func (s *AuthService) ChallengeStatus(sessionID string, kind models.ChallengeKind) (*ChallengeOutcome, error) {
	ch, err := s.otp.Pending(sessionID, kind)
	if err != nil {
		return nil, err
	}
	outcome := &ChallengeOutcome{Kind: ch.Kind, Email: ch.Email, ExpiresAt: ch.ExpiresAt, Delivered: !ch.DeliveryFailed}
	if ch.DeliveryFailed && s.cfg.ShowOTPFallback {
		outcome.Hint = ch.Code
	}
	if ch.Expired(s.now()) {
		outcome.Message = "Your code has expired. Request a new one."
	}
	return outcome, nil
}

// VerifyRegistration marks the account verified when the session code matches.
func (s *AuthService) VerifyRegistration(sessionID, code string) (*models.User, error) {
	ch, err := s.otp.Verify(sessionID, models.ChallengeRegistration, code)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ch.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for verification: %w", err)
	}
	if !strings.EqualFold(user.Email, ch.Email) {
		return nil, ErrInvalidCode
	}
	user.IsEmailVerified = true
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to verify user %d: %w", user.ID, err)
	}
	log.WithField("user_id", user.ID).Info("Email verified")
	return user, nil
}

// LoginResult is the outcome of a verified login.
type LoginResult struct {
	User   *models.User
	Tokens *TokenPair
	Next   string
}

// VerifyLogin completes a login challenge and issues tokens.
func (s *AuthService) VerifyLogin(sessionID, code string) (*LoginResult, error) {
	ch, err := s.otp.Verify(sessionID, models.ChallengeLogin, code)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ch.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for login: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	next := ch.Next
	if next == "" {
		next = "/"
	}
	return &LoginResult{User: user, Tokens: tokens, Next: next}, nil
}

// Resend issues a new code for a pending challenge of kind.
func (s *AuthService) Resend(sessionID string, kind models.ChallengeKind) (*ChallengeOutcome, error) {
	ch, err := s.otp.Resend(sessionID, kind)
	if err != nil {
		return nil, err
	}
	name := ""
	if user, err := s.userRepo.GetByID(ch.UserID); err == nil {
		name = user.Name
	}
	outcome := s.deliver(ch, name)
	outcome.Message = "A new code has been sent."
	return outcome, nil
}

// ObtainToken exchanges credentials for a token pair without an OTP step.
func (s *AuthService) ObtainToken(email, password string) (*TokenPair, *models.User, error) {
	user, err := s.authenticate(email, password)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsEmailVerified {
		return nil, nil, ErrEmailNotVerified
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return tokens, user, nil
}

func (s *AuthService) issueTokens(user *models.User) (*TokenPair, error) {
	access, err := s.signAccess(user)
	if err != nil {
		return nil, err
	}
	now := s.now()
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    user.ID,
		"token_type": "refresh",
		"exp":        now.Add(s.cfg.RefreshTTL).Unix(),
		"iat":        now.Unix(),
	}).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) signAccess(user *models.User) (string, error) {
	now := s.now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    user.ID,
		"email":      user.Email,
		"is_admin":   user.IsAdmin,
		"token_type": "access",
		"exp":        now.Add(s.cfg.AccessTTL).Unix(),
		"iat":        now.Unix(),
	}).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

func (s *AuthService) parse(tokenString string, key []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) parseTyped(tokenString, tokenType string) (jwt.MapClaims, error) {
	claims, err := s.parse(tokenString, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if t, _ := claims["token_type"].(string); t != tokenType {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, tokenType)
	}
	return claims, nil
}

// ValidateToken parses an access token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	return s.parseTyped(tokenString, "access")
}

// RefreshToken issues a new access token for a valid refresh token.
func (s *AuthService) RefreshToken(refresh string) (string, error) {
	claims, err := s.parseTyped(refresh, "refresh")
	if err != nil {
		return "", err
	}
	id, ok := ClaimUserID(claims)
	if !ok {
		return "", ErrInvalidToken
	}
	user, err := s.userRepo.GetByID(id)
	if err != nil || !user.IsActive {
		return "", ErrInvalidToken
	}
	return s.signAccess(user)
}

// VerifyToken accepts either an access or a refresh token.
func (s *AuthService) VerifyToken(tokenString string) error {
	_, err := s.parse(tokenString, s.jwtSecret)
	return err
}

// ClaimUserID reads the numeric user_id claim.
func ClaimUserID(claims jwt.MapClaims) (uint, bool) {
	switch v := claims["user_id"].(type) {
	case float64:
		return uint(v), v > 0
	case uint:
		return v, v > 0
	}
	return 0, false
}

// linkKey binds a link token to the user's current password and verification state,
// so a reset link dies once used and a verify link once the email is verified.
func (s *AuthService) linkKey(user *models.User, purpose string) []byte {
	return []byte(strings.Join([]string{
		string(s.jwtSecret), purpose, user.Password, strconv.FormatBool(user.IsEmailVerified),
	}, ":"))
}

func (s *AuthService) signLink(user *models.User, purpose string) (string, error) {
	now := s.now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"purpose": purpose,
		"exp":     now.Add(s.cfg.LinkTTL).Unix(),
	}).SignedString(s.linkKey(user, purpose))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s link: %w", purpose, err)
	}
	return token, nil
}

func (s *AuthService) checkLink(uid, token, purpose string) (*models.User, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(uid), 10, 64)
	if err != nil || id == 0 {
		return nil, ErrInvalidToken
	}
	user, err := s.userRepo.GetByID(uint(id))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, err := s.parse(token, s.linkKey(user, purpose))
	if err != nil {
		return nil, err
	}
	if p, _ := claims["purpose"].(string); p != purpose {
		return nil, ErrInvalidToken
	}
	if claimID, ok := ClaimUserID(claims); !ok || claimID != user.ID {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// VerifyEmailLink marks the account verified from an emailed link.
func (s *AuthService) VerifyEmailLink(uid, token string) (*models.User, error) {
	user, err := s.checkLink(uid, token, PurposeVerifyEmail)
	if err != nil {
		return nil, err
	}
	user.IsEmailVerified = true
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to verify user %d: %w", user.ID, err)
	}
	return user, nil
}

// RequestPasswordReset publishes a reset link. It reports whether the mailer accepted it.
func (s *AuthService) RequestPasswordReset(email string) (bool, error) {
	user, token, err := s.PasswordResetLink(email)
	if err != nil {
		return false, err
	}
	err = s.notifier.Emit(RoutingPasswordReset, LinkEvent{
		Purpose: PurposePasswordReset, UserID: user.ID, Email: user.Email, Name: user.Name, Token: token,
	})
	if err != nil {
		log.WithField("user_id", user.ID).Warnf("Password reset link not delivered: %v", err)
		return false, nil
	}
	return true, nil
}

// ResetPassword sets a new password from a reset link.
func (s *AuthService) ResetPassword(uid, token, password, confirm string) error {
	if err := checkPassword(password, confirm); err != nil {
		return err
	}
	user, err := s.checkLink(uid, token, PurposePasswordReset)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to reset password for user %d: %w", user.ID, err)
	}
	return nil
}

// PasswordResetLink looks the account up by email and signs a reset token for it.
func (s *AuthService) PasswordResetLink(email string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(strings.TrimSpace(email))
	if err != nil {
		return nil, "", err
	}
	token, err := s.signLink(user, PurposePasswordReset)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// EmailVerifyToken signs an email verification link for user.
func (s *AuthService) EmailVerifyToken(user *models.User) (string, error) {
	return s.signLink(user, PurposeVerifyEmail)
}
