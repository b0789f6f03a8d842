package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/stavros/internal/server/httpapi/response"
	"github.com/dmitrijs2005/stavros/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// create decodes an In body, runs fn and answers 201 with the result.
func create[In, Out any](s *HTTPServer, w http.ResponseWriter, r *http.Request, fn func(context.Context, In) (Out, error)) {
	var in In
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := fn(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, out)
}

func (s *HTTPServer) createTag(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	tag, err := s.content.CreateTag(r.Context(), in.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, tag)
}

func (s *HTTPServer) createOrganization(w http.ResponseWriter, r *http.Request) {
	create[services.OrganizationInput](s, w, r, s.content.CreateOrganization)
}

func (s *HTTPServer) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	create[services.AnnouncementInput](s, w, r, s.content.CreateAnnouncement)
}

func (s *HTTPServer) createEvent(w http.ResponseWriter, r *http.Request) {
	create[services.EventInput](s, w, r, s.content.CreateEvent)
}

func (s *HTTPServer) createResource(w http.ResponseWriter, r *http.Request) {
	create[services.ResourceInput](s, w, r, s.content.CreateResource)
}

func (s *HTTPServer) createContact(w http.ResponseWriter, r *http.Request) {
	create[services.ContactInput](s, w, r, s.content.CreateContact)
}

// link runs fn for the {id} organization and the named target parameter,
// answering 204.
func (s *HTTPServer) link(w http.ResponseWriter, r *http.Request, target string, fn func(ctx context.Context, orgID, id string) error) {
	orgID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	id, ok := idParam(w, r, target)
	if !ok {
		return
	}
	if err := fn(r.Context(), orgID, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) attachContact(w http.ResponseWriter, r *http.Request) {
	s.link(w, r, "contactID", s.content.AttachContact)
}

func (s *HTTPServer) detachContact(w http.ResponseWriter, r *http.Request) {
	s.link(w, r, "contactID", s.content.DetachContact)
}

func (s *HTTPServer) attachResource(w http.ResponseWriter, r *http.Request) {
	s.link(w, r, "resourceID", s.content.AttachResource)
}

func (s *HTTPServer) detachResource(w http.ResponseWriter, r *http.Request) {
	s.link(w, r, "resourceID", s.content.DetachResource)
}

// deleteContent removes any content item addressed as /admin/{kind}/{id}.
func (s *HTTPServer) deleteContent(w http.ResponseWriter, r *http.Request) {
	deleters := map[string]func(context.Context, string) error{
		"tags":          s.content.DeleteTag,
		"organizations": s.content.DeleteOrganization,
		"announcements": s.content.DeleteAnnouncement,
		"events":        s.content.DeleteEvent,
		"resources":     s.content.DeleteResource,
		"contacts":      s.content.DeleteContact,
	}

	kind := chi.URLParam(r, "kind")
	del, ok := deleters[kind]
	if !ok {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "unknown content kind", nil)
		return
	}

	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := del(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "content deleted", "kind", kind, "id", id, "by", userID(r))
	w.WriteHeader(http.StatusNoContent)
}

type uploadResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
	Method    string `json:"method"`
}

// uploadAttachment hands the administrator a presigned PUT URL for the
// resource's file.
func (s *HTTPServer) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	key, url, err := s.storage.PresignUpload(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, uploadResponse{Key: key, UploadURL: url, Method: http.MethodPut})
}
