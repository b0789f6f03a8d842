package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/stavros/internal/server/httpapi/response"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/go-chi/chi/v5"
)

// list runs a paginated query and writes its result.
func list[T any](s *HTTPServer, w http.ResponseWriter, r *http.Request, fn func(context.Context, models.Page) (T, error)) {
	p, ok := readPage(w, r)
	if !ok {
		return
	}
	items, err := fn(r.Context(), p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, items)
}

// get loads one item by key and writes it.
func get[T any](s *HTTPServer, w http.ResponseWriter, r *http.Request, key string, fn func(context.Context, string) (T, error)) {
	item, err := fn(r.Context(), key)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, item)
}

// change runs fn for the caller and the {id} parameter, answering 204.
func (s *HTTPServer) change(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, id string) error) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := fn(r.Context(), userID(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.content.ListTags(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, tags)
}

func (s *HTTPServer) listOrganizations(w http.ResponseWriter, r *http.Request) {
	list(s, w, r, s.content.ListOrganizations)
}

func (s *HTTPServer) getOrganization(w http.ResponseWriter, r *http.Request) {
	get(s, w, r, chi.URLParam(r, "slug"), s.content.GetOrganization)
}

func (s *HTTPServer) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	list(s, w, r, s.content.ListAnnouncements)
}

func (s *HTTPServer) getAnnouncement(w http.ResponseWriter, r *http.Request) {
	get(s, w, r, chi.URLParam(r, "slug"), s.content.GetAnnouncement)
}

func (s *HTTPServer) listEvents(w http.ResponseWriter, r *http.Request) {
	list(s, w, r, s.content.ListEvents)
}

func (s *HTTPServer) getEvent(w http.ResponseWriter, r *http.Request) {
	if id, ok := idParam(w, r, "id"); ok {
		get(s, w, r, id, s.content.GetEvent)
	}
}

func (s *HTTPServer) mapEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.content.MapEvents(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, events)
}

func (s *HTTPServer) joinEvent(w http.ResponseWriter, r *http.Request) {
	s.change(w, r, func(ctx context.Context, uid, id string) error {
		return s.content.JoinEvent(ctx, id, uid)
	})
}

func (s *HTTPServer) leaveEvent(w http.ResponseWriter, r *http.Request) {
	s.change(w, r, func(ctx context.Context, uid, id string) error {
		return s.content.LeaveEvent(ctx, id, uid)
	})
}

func (s *HTTPServer) listResources(w http.ResponseWriter, r *http.Request) {
	list(s, w, r, s.content.ListResources)
}

func (s *HTTPServer) getResource(w http.ResponseWriter, r *http.Request) {
	if id, ok := idParam(w, r, "id"); ok {
		get(s, w, r, id, s.content.GetResource)
	}
}

func (s *HTTPServer) listContacts(w http.ResponseWriter, r *http.Request) {
	list(s, w, r, s.content.ListContacts)
}

func (s *HTTPServer) getContact(w http.ResponseWriter, r *http.Request) {
	if id, ok := idParam(w, r, "id"); ok {
		get(s, w, r, id, s.content.GetContact)
	}
}

// downloadAttachment redirects to a short-lived presigned GET URL.
func (s *HTTPServer) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	url, err := s.storage.PresignDownload(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *HTTPServer) dashboard(w http.ResponseWriter, r *http.Request) {
	list(s, w, r, func(ctx context.Context, p models.Page) ([]*models.Announcement, error) {
		return s.content.Dashboard(ctx, userID(r), p)
	})
}

func (s *HTTPServer) subscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.content.Subscriptions(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, subs)
}

func (s *HTTPServer) followTag(w http.ResponseWriter, r *http.Request) {
	s.change(w, r, s.content.FollowTag)
}

func (s *HTTPServer) unfollowTag(w http.ResponseWriter, r *http.Request) {
	s.change(w, r, s.content.UnfollowTag)
}

func (s *HTTPServer) followOrganization(w http.ResponseWriter, r *http.Request) {
	s.change(w, r, s.content.FollowOrganization)
}

func (s *HTTPServer) unfollowOrganization(w http.ResponseWriter, r *http.Request) {
	s.change(w, r, s.content.UnfollowOrganization)
}
