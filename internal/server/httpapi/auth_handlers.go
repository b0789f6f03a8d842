package httpapi

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/stavros/internal/server/httpapi/response"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/dmitrijs2005/stavros/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type signupResponse struct {
	User    *models.User `json:"user"`
	Message string       `json:"message"`
}

type verifyResponse struct {
	Outcome services.VerifyOutcome `json:"outcome"`
	UserID  string                 `json:"user_id"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *HTTPServer) signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := s.accounts.Signup(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "user_id", user.ID)
	response.JSON(w, r, http.StatusCreated, signupResponse{
		User:    user,
		Message: "check your inbox for a verification link",
	})
}

func (s *HTTPServer) resendVerification(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	// The reply is the same whether or not the address is registered.
	if err := s.accounts.ResendVerification(r.Context(), in.Email); err != nil {
		s.logger.Error(r.Context(), "resend verification failed", "error", err)
	}
	response.JSON(w, r, http.StatusAccepted, map[string]string{
		"message": "if the address belongs to an unverified account, a new link has been sent",
	})
}

// verifyLink handles the link mailed to the user.
func (s *HTTPServer) verifyLink(w http.ResponseWriter, r *http.Request) {
	s.consumeToken(w, r, chi.URLParam(r, "token"))
}

func (s *HTTPServer) verify(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	s.consumeToken(w, r, in.Token)
}

func (s *HTTPServer) consumeToken(w http.ResponseWriter, r *http.Request, token string) {
	user, outcome, err := s.accounts.Verify(r.Context(), token)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, verifyResponse{Outcome: outcome, UserID: user.ID})
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decodeJSON(w, r, &in) {
		return
	}

	tokens, err := s.users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, tokens)
}

func (s *HTTPServer) refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.RefreshToken) == "" {
		response.Error(w, r, http.StatusBadRequest, response.CodeBadRequest, "refresh_token is required", nil)
		return
	}

	tokens, err := s.users.RefreshToken(r.Context(), in.RefreshToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, tokens)
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := s.users.Logout(r.Context(), in.RefreshToken); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
