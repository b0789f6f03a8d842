package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/server/httpapi/response"
)

// invalidLinkMessage is the only text a client sees for a bad verification
// token, whatever the cause.
const invalidLinkMessage = "verification link is invalid or has expired"

// writeServiceError maps service errors onto HTTP statuses. Unknown errors
// are logged and reported as 500 without detail.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *common.ValidationError

	switch {
	case errors.As(err, &verr):
		response.Error(w, r, http.StatusBadRequest, response.CodeValidation, "validation failed", verr.Fields)
	case errors.Is(err, common.ErrEmailTaken):
		response.Error(w, r, http.StatusConflict, response.CodeConflict, "email already registered",
			map[string]string{"email": "an account with this email already exists"})
	case errors.Is(err, common.ErrInvalidToken):
		response.Error(w, r, http.StatusBadRequest, response.CodeInvalidToken, invalidLinkMessage, nil)
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "invalid credentials", nil)
	case errors.Is(err, common.ErrEmailUnverified):
		response.Error(w, r, http.StatusForbidden, response.CodeUnverified, "email address has not been verified", nil)
	case errors.Is(err, common.ErrorForbidden):
		response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "forbidden", nil)
	case errors.Is(err, common.ErrorNotFound):
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "not found", nil)
	case errors.Is(err, common.ErrConflict):
		response.Error(w, r, http.StatusConflict, response.CodeConflict, "already exists", nil)
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
	}
}
