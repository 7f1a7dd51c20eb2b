package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/geocoder89/ratingportal/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) bool
	VerifyDummy(ctx context.Context, plain string) bool
}

type TokenIssuer interface {
	Issue(u user.User) (string, error)
}

// LoginRecorder counts login outcomes. Optional.
type LoginRecorder interface {
	LoginAttempt(ok bool)
}

type AuthHandler struct {
	users    UserStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	recorder LoginRecorder
}

func NewAuthHandler(users UserStore, hasher PasswordHasher, tokens TokenIssuer, recorder LoginRecorder) *AuthHandler {
	return &AuthHandler{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
	}
}

const invalidCredentials = "Invalid credentials"

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=20,max=60"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,password_policy"`
	Address  string `json:"address" binding:"max=400"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required,max=72"`
	NewPassword     string `json:"newPassword" binding:"required,password_policy"`
}

// Register creates an end-user identity. The role is always user.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	u, ok := createIdentity(ctx, cctx, h.users, h.hasher, user.NewUser{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		Role:    user.RoleUser,
	}, req.Password)
	if !ok {
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"userId":  u.ID,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, user.NormalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			RespondInternal(ctx, "Could not log in", err)
			return
		}
		// same bcrypt cost as a wrong password
		h.hasher.VerifyDummy(cctx, req.Password)
		h.record(false)
		RespondUnAuthorized(ctx, "invalid_credentials", invalidCredentials)
		return
	}

	if !h.hasher.Verify(cctx, req.Password, found.PasswordHash) {
		h.record(false)
		RespondUnAuthorized(ctx, "invalid_credentials", invalidCredentials)
		return
	}

	token, err := h.tokens.Issue(found)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token", err)
		return
	}

	h.record(true)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    found.Profile(),
	})
}

// ChangePassword re-hashes the caller's password. Tokens issued before the
// change stay valid until they expire.
func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	me, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req ChangePasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	if !h.hasher.Verify(cctx, req.CurrentPassword, me.PasswordHash) {
		RespondUnAuthorized(ctx, "invalid_credentials", "Current password is incorrect")
		return
	}

	hash, err := h.hasher.Hash(cctx, req.NewPassword)
	if err != nil {
		RespondInternal(ctx, "Could not update password", err)
		return
	}

	if err := h.users.UpdatePassword(cctx, me.ID, hash); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "unauthorized", "Invalid or expired access token")
			return
		}
		RespondInternal(ctx, "Could not update password", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h *AuthHandler) record(ok bool) {
	if h.recorder != nil {
		h.recorder.LoginAttempt(ok)
	}
}

type identityCreator interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
}

// createIdentity is shared by self-registration and admin user creation.
// It writes the error response itself and reports whether to continue.
func createIdentity(ctx *gin.Context, cctx context.Context, users identityCreator, hasher PasswordHasher, nu user.NewUser, password string) (user.User, bool) {
	nu.Email = user.NormalizeEmail(nu.Email)

	_, err := users.GetByEmail(cctx, nu.Email)
	if err == nil {
		respondEmailTaken(ctx)
		return user.User{}, false
	}
	if !errors.Is(err, user.ErrNotFound) {
		RespondInternal(ctx, "Could not create user", err)
		return user.User{}, false
	}

	hash, err := hasher.Hash(cctx, password)
	if err != nil {
		RespondInternal(ctx, "Could not create user", err)
		return user.User{}, false
	}
	nu.PasswordHash = hash

	u, err := users.Create(cctx, nu)
	if err != nil {
		// lost a race with a concurrent signup
		if errors.Is(err, user.ErrEmailTaken) {
			respondEmailTaken(ctx)
			return user.User{}, false
		}
		RespondInternal(ctx, "Could not create user", err)
		return user.User{}, false
	}

	return u, true
}

func respondEmailTaken(ctx *gin.Context) {
	RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already in use", nil)
}
