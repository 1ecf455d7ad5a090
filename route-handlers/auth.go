package routehandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreybb/scribe/auth"
	"github.com/coreybb/scribe/models"
	"github.com/coreybb/scribe/webutil"
)

// CredentialService is what the auth endpoints need from the auth package.
type CredentialService interface {
	Register(ctx context.Context, name, email, rawPassword string) (*models.User, error)
	Authenticate(ctx context.Context, email, rawPassword string) (*auth.Session, error)
}

type AuthHandler struct {
	Credentials CredentialService
}

func NewAuthHandler(credentials CredentialService) *AuthHandler {
	return &AuthHandler{Credentials: credentials}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	_, err := h.Credentials.Register(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrPasswordTooLong):
		return webutil.ErrBadRequest(fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordBytes))
	case errors.Is(err, auth.ErrValidation):
		return webutil.ErrBadRequest("Name, email and password are required")
	case errors.Is(err, auth.ErrAlreadyExists):
		return webutil.ErrBadRequest("User already exists")
	default:
		return webutil.ErrInternalServerWrap("Error in registration", err)
	}

	webutil.RespondWithMessage(w, http.StatusCreated, "User registered successfully", nil)
	return nil
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	session, err := h.Credentials.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return webutil.ErrBadRequest("Invalid credentials")
		}
		return webutil.ErrInternalServerWrap("Error in login", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, session)
	return nil
}

// HandleProtected echoes the caller's decoded token claims.
func (h *AuthHandler) HandleProtected(w http.ResponseWriter, r *http.Request) error {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return fmt.Errorf("protected route reached without claims in context")
	}
	webutil.RespondWithMessage(w, http.StatusOK, "This is a protected route", map[string]any{"user": claims})
	return nil
}
