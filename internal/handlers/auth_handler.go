package handlers

import (
	"errors"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for registration, OTP login and tokens.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)

	otp := authRoutes.Group("/otp")
	otp.Get("/registration", h.challengeStatus(models.ChallengeRegistration))
	otp.Get("/login", h.challengeStatus(models.ChallengeLogin))
	otp.Post("/registration/verify", h.HandleVerifyRegistration)
	otp.Post("/login/verify", h.HandleVerifyLogin)
	otp.Post("/registration/resend", h.resend(models.ChallengeRegistration))
	otp.Post("/login/resend", h.resend(models.ChallengeLogin))

	authRoutes.Get("/verify-email", h.HandleVerifyEmail)
	authRoutes.Post("/password-reset", h.HandlePasswordReset)
	authRoutes.Post("/password-reset/confirm", h.HandlePasswordResetConfirm)

	authRoutes.Post("/token", h.HandleObtainToken)
	authRoutes.Post("/token/refresh", h.HandleRefreshToken)
	authRoutes.Post("/token/verify", h.HandleVerifyToken)
}

func challengeResponse(outcome *services.ChallengeOutcome) fiber.Map {
	body := fiber.Map{
		"message":    outcome.Message,
		"kind":       outcome.Kind,
		"email":      outcome.Email,
		"expires_at": outcome.ExpiresAt,
	}
	if !outcome.Delivered {
		body["warning"] = "We could not send the verification email. Please try resending the code."
	}
	if outcome.Hint != "" {
		body["otp_hint"] = outcome.Hint
	}
	return body
}

// otpError maps challenge failures to HTTP responses.
func otpError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNoChallenge):
		return fail(c, fiber.StatusNotFound, "No verification in progress. Please start again.", nil)
	case errors.Is(err, services.ErrCodeRequired):
		return fail(c, fiber.StatusBadRequest, "Please enter the verification code.", nil)
	case errors.Is(err, services.ErrChallengeExpired):
		return fail(c, fiber.StatusGone, "Your code has expired. Request a new one.", nil)
	case errors.Is(err, services.ErrInvalidCode):
		return fail(c, fiber.StatusBadRequest, "Invalid code. Please try again.", nil)
	case errors.Is(err, services.ErrResendTooSoon):
		return fail(c, fiber.StatusTooManyRequests, "Please wait a minute before requesting a new code.", nil)
	case errors.Is(err, services.ErrAccountInactive):
		return fail(c, fiber.StatusForbidden, "This account is inactive.", nil)
	}
	log.Errorf("OTP request failed: %v", err)
	return fail(c, fiber.StatusInternalServerError, "Could not process verification", err)
}

// HandleRegister creates an unverified account and sends a registration code.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	outcome, err := h.authService.Register(middleware.SessionID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyRegistered):
			return fail(c, fiber.StatusConflict, "Registration failed", err)
		case errors.Is(err, services.ErrPasswordMismatch), errors.Is(err, services.ErrPasswordTooShort):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"errors":  map[string]string{"Password2": err.Error()},
			})
		}
		log.Errorf("Error registering user: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not register user", err)
	}
	return c.Status(fiber.StatusCreated).JSON(challengeResponse(outcome))
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Next     string `json:"next"`
}

// HandleLogin checks credentials and sends a login code.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	outcome, err := h.authService.Login(middleware.SessionID(c), req.Email, req.Password, req.Next)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return fail(c, fiber.StatusUnauthorized, "Authentication failed", err)
		}
		log.Errorf("Error during login: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not log in", err)
	}
	body := challengeResponse(&outcome.ChallengeOutcome)
	body["verified"] = outcome.Verified
	return c.Status(fiber.StatusAccepted).JSON(body)
}

func (h *AuthHandler) challengeStatus(kind models.ChallengeKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		outcome, err := h.authService.ChallengeStatus(middleware.SessionID(c), kind)
		if err != nil {
			return otpError(c, err)
		}
		return c.JSON(challengeResponse(outcome))
	}
}

type codeRequest struct {
	Code string `json:"otp" validate:"required"`
}

// HandleVerifyRegistration marks the account verified.
func (h *AuthHandler) HandleVerifyRegistration(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	user, err := h.authService.VerifyRegistration(middleware.SessionID(c), req.Code)
	if err != nil {
		return otpError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Your email has been verified. You can now log in.",
		"user":    user,
	})
}

// HandleVerifyLogin completes login and returns a token pair.
func (h *AuthHandler) HandleVerifyLogin(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	result, err := h.authService.VerifyLogin(middleware.SessionID(c), req.Code)
	if err != nil {
		return otpError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"access":  result.Tokens.Access,
		"refresh": result.Tokens.Refresh,
		"next":    result.Next,
		"user":    result.User,
	})
}

func (h *AuthHandler) resend(kind models.ChallengeKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		outcome, err := h.authService.Resend(middleware.SessionID(c), kind)
		if err != nil {
			return otpError(c, err)
		}
		return c.JSON(challengeResponse(outcome))
	}
}

// HandleVerifyEmail accepts the emailed verification link.
func (h *AuthHandler) HandleVerifyEmail(c *fiber.Ctx) error {
	user, err := h.authService.VerifyEmailLink(c.Query("uid"), c.Query("token"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return fail(c, fiber.StatusBadRequest, "The verification link is invalid or has expired.", nil)
		}
		return fail(c, fiber.StatusInternalServerError, "Could not verify email", err)
	}
	return c.JSON(fiber.Map{"message": "Your email has been verified.", "user": user})
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandlePasswordReset emails a reset link.
func (h *AuthHandler) HandlePasswordReset(c *fiber.Ctx) error {
	var req passwordResetRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	delivered, err := h.authService.RequestPasswordReset(req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "No account is registered with this email.", nil)
		}
		return fail(c, fiber.StatusInternalServerError, "Could not start password reset", err)
	}
	body := fiber.Map{"message": "Password reset instructions have been sent."}
	if !delivered {
		body["warning"] = "We could not send the reset email. Please try again later."
	}
	return c.JSON(body)
}

type passwordResetConfirm struct {
	UID       string `json:"uid" validate:"required"`
	Token     string `json:"token" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required"`
}

// HandlePasswordResetConfirm sets the new password.
func (h *AuthHandler) HandlePasswordResetConfirm(c *fiber.Ctx) error {
	var req passwordResetConfirm
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	err := h.authService.ResetPassword(req.UID, req.Token, req.Password, req.Password2)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "Your password has been reset."})
	case errors.Is(err, services.ErrInvalidToken):
		return fail(c, fiber.StatusBadRequest, "The reset link is invalid or has expired.", nil)
	case errors.Is(err, services.ErrPasswordMismatch), errors.Is(err, services.ErrPasswordTooShort):
		return fail(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	return fail(c, fiber.StatusInternalServerError, "Could not reset password", err)
}

type tokenRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleObtainToken issues a token pair for verified accounts.
func (h *AuthHandler) HandleObtainToken(c *fiber.Ctx) error {
	var req tokenRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	tokens, _, err := h.authService.ObtainToken(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrEmailNotVerified) {
			return fail(c, fiber.StatusUnauthorized, "No active account found with the given credentials", err)
		}
		return fail(c, fiber.StatusInternalServerError, "Could not issue token", err)
	}
	return c.JSON(tokens)
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// HandleRefreshToken exchanges a refresh token for a new access token.
func (h *AuthHandler) HandleRefreshToken(c *fiber.Ctx) error {
	var req refreshRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	access, err := h.authService.RefreshToken(req.Refresh)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Token is invalid or expired", nil)
	}
	return c.JSON(fiber.Map{"access": access})
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// HandleVerifyToken reports whether a token is valid.
func (h *AuthHandler) HandleVerifyToken(c *fiber.Ctx) error {
	var req verifyRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	if err := h.authService.VerifyToken(req.Token); err != nil {
		return fail(c, fiber.StatusUnauthorized, "Token is invalid or expired", nil)
	}
	return c.JSON(fiber.Map{})
}
