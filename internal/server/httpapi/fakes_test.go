package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/stavros/internal/logging"
	"github.com/dmitrijs2005/stavros/internal/server/auth"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/dmitrijs2005/stavros/internal/server/services"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// Path ids are parsed as UUIDs before any service call.
const (
	userID2    = "0c8f8a2e-3b4d-4f6a-9c1e-2d3b4a5c6d7e"
	eventID    = "5a1d3c7e-9b2f-4e8a-b6c4-d2e0f8a6b4c2"
	resourceID = "9e7c5a3b-1d2f-4a6b-8c0e-f2d4b6a8c0e1"
	tagID      = "3f5b7d9e-1a2c-4e6f-a8b0-c2d4e6f8a0b2"
	orgID      = "7b9d1f3a-5c7e-4a2b-9d4f-6e8a0c2e4a6b"
	contactID  = "1e3a5c7d-9f1b-4d3e-8a5c-7e9b1d3f5a7c"
)

// ---- fakes ----

type fakeAccounts struct {
	signupIn   services.SignupInput
	signupResp *models.User
	signupErr  error

	resendEmail string
	resendErr   error

	verifyToken   string
	verifyUser    *models.User
	verifyOutcome services.VerifyOutcome
	verifyErr     error
}

func (f *fakeAccounts) Signup(_ context.Context, in services.SignupInput) (*models.User, error) {
	f.signupIn = in
	return f.signupResp, f.signupErr
}

func (f *fakeAccounts) ResendVerification(_ context.Context, email string) error {
	f.resendEmail = email
	return f.resendErr
}

func (f *fakeAccounts) Verify(_ context.Context, token string) (*models.User, services.VerifyOutcome, error) {
	f.verifyToken = token
	return f.verifyUser, f.verifyOutcome, f.verifyErr
}

type fakeUsers struct {
	loginResp *services.TokenPair
	loginErr  error

	refreshResp *services.TokenPair
	refreshErr  error

	logoutToken string
	logoutErr   error

	user    *models.User
	userErr error

	profileID string

	updatedName string

	listPage models.Page
	listResp []*models.User
}

func (f *fakeUsers) Login(_ context.Context, _, _ string) (*services.TokenPair, error) {
	return f.loginResp, f.loginErr
}
func (f *fakeUsers) RefreshToken(_ context.Context, _ string) (*services.TokenPair, error) {
	return f.refreshResp, f.refreshErr
}
func (f *fakeUsers) Logout(_ context.Context, token string) error {
	f.logoutToken = token
	return f.logoutErr
}
func (f *fakeUsers) Me(_ context.Context, _ string) (*models.User, error) {
	return f.user, f.userErr
}
func (f *fakeUsers) UpdateName(_ context.Context, _, name string) (*models.User, error) {
	f.updatedName = name
	if f.userErr != nil {
		return nil, f.userErr
	}
	u := *f.user
	u.Name = name
	return &u, nil
}
func (f *fakeUsers) Profile(_ context.Context, id string) (models.PublicProfile, error) {
	f.profileID = id
	if f.userErr != nil {
		return models.PublicProfile{}, f.userErr
	}
	return f.user.Public(), nil
}
func (f *fakeUsers) List(_ context.Context, p models.Page) ([]*models.User, error) {
	f.listPage = p
	return f.listResp, nil
}

// fakeContent records the last call and returns err for every method.
type fakeContent struct {
	err   error
	calls []string
	args  [][]string
	page  models.Page

	org   *models.Organization
	event *models.Event
	orgIn services.OrganizationInput
}

func (f *fakeContent) record(name string, args ...string) {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
}

func (f *fakeContent) CreateTag(_ context.Context, name string) (*models.Tag, error) {
	f.record("CreateTag", name)
	return &models.Tag{ID: "t1", Name: name}, f.err
}
func (f *fakeContent) ListTags(context.Context) ([]models.Tag, error) {
	f.record("ListTags")
	return []models.Tag{{ID: "t1", Name: "chess"}}, f.err
}
func (f *fakeContent) DeleteTag(_ context.Context, id string) error {
	f.record("DeleteTag", id)
	return f.err
}
func (f *fakeContent) CreateOrganization(_ context.Context, in services.OrganizationInput) (*models.Organization, error) {
	f.record("CreateOrganization")
	f.orgIn = in
	return f.org, f.err
}
func (f *fakeContent) GetOrganization(_ context.Context, slug string) (*models.Organization, error) {
	f.record("GetOrganization", slug)
	return f.org, f.err
}
func (f *fakeContent) ListOrganizations(_ context.Context, p models.Page) ([]*models.Organization, error) {
	f.record("ListOrganizations")
	f.page = p
	return []*models.Organization{}, f.err
}
func (f *fakeContent) DeleteOrganization(_ context.Context, id string) error {
	f.record("DeleteOrganization", id)
	return f.err
}
func (f *fakeContent) AttachContact(_ context.Context, orgID, contactID string) error {
	f.record("AttachContact", orgID, contactID)
	return f.err
}
func (f *fakeContent) DetachContact(_ context.Context, orgID, contactID string) error {
	f.record("DetachContact", orgID, contactID)
	return f.err
}
func (f *fakeContent) AttachResource(_ context.Context, orgID, resourceID string) error {
	f.record("AttachResource", orgID, resourceID)
	return f.err
}
func (f *fakeContent) DetachResource(_ context.Context, orgID, resourceID string) error {
	f.record("DetachResource", orgID, resourceID)
	return f.err
}
func (f *fakeContent) CreateContact(_ context.Context, in services.ContactInput) (*models.Contact, error) {
	f.record("CreateContact", in.Name, in.PhoneNumber)
	return &models.Contact{ID: contactID, Name: in.Name}, f.err
}
func (f *fakeContent) GetContact(_ context.Context, id string) (*models.Contact, error) {
	f.record("GetContact", id)
	return &models.Contact{ID: id}, f.err
}
func (f *fakeContent) ListContacts(_ context.Context, p models.Page) ([]*models.Contact, error) {
	f.record("ListContacts")
	f.page = p
	return []*models.Contact{}, f.err
}
func (f *fakeContent) DeleteContact(_ context.Context, id string) error {
	f.record("DeleteContact", id)
	return f.err
}
func (f *fakeContent) CreateAnnouncement(_ context.Context, _ services.AnnouncementInput) (*models.Announcement, error) {
	f.record("CreateAnnouncement")
	return &models.Announcement{}, f.err
}
func (f *fakeContent) GetAnnouncement(_ context.Context, slug string) (*models.Announcement, error) {
	f.record("GetAnnouncement", slug)
	return &models.Announcement{Slug: slug}, f.err
}
func (f *fakeContent) ListAnnouncements(_ context.Context, p models.Page) ([]*models.Announcement, error) {
	f.record("ListAnnouncements")
	f.page = p
	return nil, f.err
}
func (f *fakeContent) Dashboard(_ context.Context, userID string, p models.Page) ([]*models.Announcement, error) {
	f.record("Dashboard", userID)
	f.page = p
	return []*models.Announcement{}, f.err
}
func (f *fakeContent) DeleteAnnouncement(_ context.Context, id string) error {
	f.record("DeleteAnnouncement", id)
	return f.err
}
func (f *fakeContent) CreateEvent(_ context.Context, _ services.EventInput) (*models.Event, error) {
	f.record("CreateEvent")
	return f.event, f.err
}
func (f *fakeContent) GetEvent(_ context.Context, id string) (*models.Event, error) {
	f.record("GetEvent", id)
	return f.event, f.err
}
func (f *fakeContent) ListEvents(_ context.Context, p models.Page) ([]*models.Event, error) {
	f.record("ListEvents")
	f.page = p
	return nil, f.err
}
func (f *fakeContent) MapEvents(context.Context) ([]*models.Event, error) {
	f.record("MapEvents")
	return []*models.Event{{ID: eventID, Location: "43.6532,-79.3832"}}, f.err
}
func (f *fakeContent) JoinEvent(_ context.Context, eventID, userID string) error {
	f.record("JoinEvent", eventID, userID)
	return f.err
}
func (f *fakeContent) LeaveEvent(_ context.Context, eventID, userID string) error {
	f.record("LeaveEvent", eventID, userID)
	return f.err
}
func (f *fakeContent) DeleteEvent(_ context.Context, id string) error {
	f.record("DeleteEvent", id)
	return f.err
}
func (f *fakeContent) CreateResource(_ context.Context, _ services.ResourceInput) (*models.Resource, error) {
	f.record("CreateResource")
	return &models.Resource{}, f.err
}
func (f *fakeContent) GetResource(_ context.Context, id string) (*models.Resource, error) {
	f.record("GetResource", id)
	return &models.Resource{ID: id}, f.err
}
func (f *fakeContent) ListResources(_ context.Context, p models.Page) ([]*models.Resource, error) {
	f.record("ListResources")
	f.page = p
	return nil, f.err
}
func (f *fakeContent) DeleteResource(_ context.Context, id string) error {
	f.record("DeleteResource", id)
	return f.err
}
func (f *fakeContent) FollowTag(_ context.Context, userID, tagID string) error {
	f.record("FollowTag", userID, tagID)
	return f.err
}
func (f *fakeContent) UnfollowTag(_ context.Context, userID, tagID string) error {
	f.record("UnfollowTag", userID, tagID)
	return f.err
}
func (f *fakeContent) FollowOrganization(_ context.Context, userID, orgID string) error {
	f.record("FollowOrganization", userID, orgID)
	return f.err
}
func (f *fakeContent) UnfollowOrganization(_ context.Context, userID, orgID string) error {
	f.record("UnfollowOrganization", userID, orgID)
	return f.err
}
func (f *fakeContent) Subscriptions(_ context.Context, userID string) (*services.Subscriptions, error) {
	f.record("Subscriptions", userID)
	return &services.Subscriptions{Tags: []models.Tag{}, Organizations: []string{"chess-club"}}, f.err
}

type fakeStorage struct {
	uploadKey, uploadURL string
	downloadURL          string
	err                  error
	resourceID           string
}

func (f *fakeStorage) PresignUpload(_ context.Context, id string) (string, string, error) {
	f.resourceID = id
	return f.uploadKey, f.uploadURL, f.err
}

func (f *fakeStorage) PresignDownload(_ context.Context, id string) (string, error) {
	f.resourceID = id
	return f.downloadURL, f.err
}

// ---- harness ----

type harness struct {
	accounts *fakeAccounts
	users    *fakeUsers
	content  *fakeContent
	storage  *fakeStorage
	server   *HTTPServer
	handler  http.Handler
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		accounts: &fakeAccounts{},
		users:    &fakeUsers{},
		content:  &fakeContent{},
		storage:  &fakeStorage{},
	}
	h.server = NewHTTPServer(":0", logging.Discard(), h.accounts, h.users, h.content, h.storage, testSecret, opts...)
	h.handler = h.server.Handler()
	return h
}

func accessToken(t *testing.T, userID string, superuser bool) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, superuser, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	return tok
}

// do sends method path with an optional JSON body and bearer token.
func (h *harness) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, r)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}
