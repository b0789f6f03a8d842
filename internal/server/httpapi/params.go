package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/stavros/internal/server/httpapi/response"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
// On failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil && dec.More() {
		err = errors.New("body must contain a single JSON object")
	}
	if err != nil {
		msg := "malformed JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		response.Error(w, r, http.StatusBadRequest, response.CodeBadRequest, msg, nil)
		return false
	}
	return true
}

// pageFromQuery reads limit and offset, applying the default and maximum
// page size.
func pageFromQuery(r *http.Request) (models.Page, error) {
	var p models.Page
	q := r.URL.Query()

	for _, f := range []struct {
		name string
		dst  *int
	}{{"limit", &p.Limit}, {"offset", &p.Offset}} {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, fmt.Errorf("%s must be a non-negative integer", f.name)
		}
		*f.dst = n
	}
	return p.Normalize(), nil
}

// readPage is pageFromQuery that answers 400 on bad input.
func readPage(w http.ResponseWriter, r *http.Request) (models.Page, bool) {
	p, err := pageFromQuery(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, response.CodeBadRequest, err.Error(), nil)
		return p, false
	}
	return p, true
}

// idParam reads the named URL parameter as a UUID. Anything else cannot
// address a row, so it answers 404 without reaching the service.
func idParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "not found", nil)
		return "", false
	}
	return id.String(), true
}
