package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/stavros/internal/server/httpapi/response"
)

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Me(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (s *HTTPServer) updateMe(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := s.users.UpdateName(r.Context(), userID(r), in.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (s *HTTPServer) profile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	p, err := s.users.Profile(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, p)
}

func (s *HTTPServer) listUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := readPage(w, r)
	if !ok {
		return
	}
	users, err := s.users.List(r.Context(), p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, users)
}
