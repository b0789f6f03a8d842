package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/dbx"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ContentService manages the school's published content: tags,
// organizations, announcements, events, resources and the subscriptions
// that drive each user's dashboard.
type ContentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewContentService(db *sql.DB, m repomanager.RepositoryManager) *ContentService {
	return &ContentService{db: db, repomanager: m, now: time.Now}
}

type OrganizationInput struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	EventType string   `json:"event_type"`
	TagIDs    []string `json:"tag_ids"`
}

type AnnouncementInput struct {
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	OrganizationID string   `json:"organization_id"`
	TagIDs         []string `json:"tag_ids"`
}

type EventInput struct {
	Name           string    `json:"name"`
	Info           string    `json:"info"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	City           string    `json:"city"`
	Location       string    `json:"location"`
	OrganizationID string    `json:"organization_id"`
	TagIDs         []string  `json:"tag_ids"`
}

type ContactInput struct {
	Name        string   `json:"name"`
	Position    string   `json:"position"`
	PhoneNumber string   `json:"phone_number"`
	Industry    string   `json:"industry"`
	EventType   string   `json:"event_type"`
	Notes       string   `json:"notes"`
	UserID      string   `json:"user_id"`
	TagIDs      []string `json:"tag_ids"`
}

type ResourceInput struct {
	Title          string   `json:"title"`
	AdditionalInfo string   `json:"additional_info"`
	Link           string   `json:"link"`
	TagIDs         []string `json:"tag_ids"`
}

// Subscriptions lists what a user follows.
type Subscriptions struct {
	Tags          []models.Tag `json:"tags"`
	Organizations []string     `json:"organizations"`
}

// --- tags ---

func (s *ContentService) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		verr := common.NewValidationError()
		verr.Add("name", "this field is required")
		return nil, verr
	}
	return s.repomanager.Tags(s.db).Create(ctx, name)
}

func (s *ContentService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.repomanager.Tags(s.db).List(ctx)
}

func (s *ContentService) DeleteTag(ctx context.Context, id string) error {
	return s.repomanager.Tags(s.db).Delete(ctx, id)
}

// --- organizations ---

func (s *ContentService) CreateOrganization(ctx context.Context, in OrganizationInput) (*models.Organization, error) {
	verr := common.NewValidationError()
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		verr.Add("name", "this field is required")
	}
	if !models.ValidCategory(in.Category) {
		verr.Add("category", "category must be one of: "+strings.Join(models.OrganizationCategories, ", "))
	}
	checkIDs(verr, "tag_ids", in.TagIDs...)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var org *models.Organization
	err := retrySlugConflict(func() error {
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Organizations(tx)
			base := makeSlug(in.Name)
			taken, err := repo.Slugs(ctx, base)
			if err != nil {
				return err
			}
			created, err := repo.Create(ctx, &models.Organization{
				Name:      in.Name,
				Slug:      uniqueSlug(base, taken),
				Category:  in.Category,
				EventType: strings.TrimSpace(in.EventType),
			}, in.TagIDs)
			if err != nil {
				return err
			}
			org, err = repo.GetBySlug(ctx, created.Slug)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error creating organization: %w", err)
	}
	return org, nil
}

// GetOrganization returns the organization with its contacts and
// resources.
func (s *ContentService) GetOrganization(ctx context.Context, slug string) (*models.Organization, error) {
	org, err := s.repomanager.Organizations(s.db).GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if org.Contacts, err = s.repomanager.Contacts(s.db).ListByOrganization(ctx, org.ID); err != nil {
		return nil, fmt.Errorf("error loading contacts: %w", err)
	}
	if org.Resources, err = s.repomanager.Resources(s.db).ListByOrganization(ctx, org.ID); err != nil {
		return nil, fmt.Errorf("error loading resources: %w", err)
	}
	return org, nil
}

func (s *ContentService) ListOrganizations(ctx context.Context, page models.Page) ([]*models.Organization, error) {
	return s.repomanager.Organizations(s.db).List(ctx, page)
}

func (s *ContentService) DeleteOrganization(ctx context.Context, id string) error {
	return s.repomanager.Organizations(s.db).Delete(ctx, id)
}

func (s *ContentService) AttachContact(ctx context.Context, orgID, contactID string) error {
	return s.repomanager.Organizations(s.db).AttachContact(ctx, orgID, contactID)
}

func (s *ContentService) DetachContact(ctx context.Context, orgID, contactID string) error {
	return s.repomanager.Organizations(s.db).DetachContact(ctx, orgID, contactID)
}

func (s *ContentService) AttachResource(ctx context.Context, orgID, resourceID string) error {
	return s.repomanager.Organizations(s.db).AttachResource(ctx, orgID, resourceID)
}

func (s *ContentService) DetachResource(ctx context.Context, orgID, resourceID string) error {
	return s.repomanager.Organizations(s.db).DetachResource(ctx, orgID, resourceID)
}

// --- contacts ---

// phonePattern accepts 9 to 15 digits with an optional leading "+" and
// country code 1.
var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

func (s *ContentService) CreateContact(ctx context.Context, in ContactInput) (*models.Contact, error) {
	verr := common.NewValidationError()
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		verr.Add("name", "this field is required")
	}
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if in.PhoneNumber != "" && !phonePattern.MatchString(in.PhoneNumber) {
		verr.Add("phone_number", "phone number must be entered in the format '+999999999', up to 15 digits")
	}
	if in.UserID != "" {
		checkIDs(verr, "user_id", in.UserID)
	}
	checkIDs(verr, "tag_ids", in.TagIDs...)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var c *models.Contact
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contacts(tx)
		created, err := repo.Create(ctx, &models.Contact{
			Name:        in.Name,
			Position:    strings.TrimSpace(in.Position),
			PhoneNumber: in.PhoneNumber,
			Industry:    strings.TrimSpace(in.Industry),
			EventType:   strings.TrimSpace(in.EventType),
			Notes:       in.Notes,
			UserID:      in.UserID,
		}, in.TagIDs)
		if err != nil {
			return err
		}
		c, err = repo.GetByID(ctx, created.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating contact: %w", err)
	}
	return c, nil
}

func (s *ContentService) GetContact(ctx context.Context, id string) (*models.Contact, error) {
	return s.repomanager.Contacts(s.db).GetByID(ctx, id)
}

func (s *ContentService) ListContacts(ctx context.Context, page models.Page) ([]*models.Contact, error) {
	return s.repomanager.Contacts(s.db).List(ctx, page)
}

func (s *ContentService) DeleteContact(ctx context.Context, id string) error {
	return s.repomanager.Contacts(s.db).Delete(ctx, id)
}

// --- announcements ---

func (s *ContentService) CreateAnnouncement(ctx context.Context, in AnnouncementInput) (*models.Announcement, error) {
	verr := common.NewValidationError()
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		verr.Add("title", "this field is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		verr.Add("content", "this field is required")
	}
	if in.OrganizationID == "" {
		verr.Add("organization_id", "this field is required")
	} else {
		checkIDs(verr, "organization_id", in.OrganizationID)
	}
	checkIDs(verr, "tag_ids", in.TagIDs...)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var a *models.Announcement
	err := retrySlugConflict(func() error {
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Announcements(tx)
			base := makeSlug(in.Title)
			taken, err := repo.Slugs(ctx, base)
			if err != nil {
				return err
			}
			created, err := repo.Create(ctx, &models.Announcement{
				Slug:           uniqueSlug(base, taken),
				Title:          in.Title,
				Content:        in.Content,
				OrganizationID: in.OrganizationID,
			}, in.TagIDs)
			if err != nil {
				return err
			}
			a, err = repo.GetBySlug(ctx, created.Slug)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error creating announcement: %w", err)
	}
	return a, nil
}

func (s *ContentService) GetAnnouncement(ctx context.Context, slug string) (*models.Announcement, error) {
	return s.repomanager.Announcements(s.db).GetBySlug(ctx, slug)
}

func (s *ContentService) ListAnnouncements(ctx context.Context, page models.Page) ([]*models.Announcement, error) {
	return s.repomanager.Announcements(s.db).List(ctx, page)
}

// Dashboard returns the announcements relevant to userID's subscriptions.
func (s *ContentService) Dashboard(ctx context.Context, userID string, page models.Page) ([]*models.Announcement, error) {
	return s.repomanager.Announcements(s.db).ListForUser(ctx, userID, page)
}

func (s *ContentService) DeleteAnnouncement(ctx context.Context, id string) error {
	return s.repomanager.Announcements(s.db).Delete(ctx, id)
}

// --- events ---

func (s *ContentService) CreateEvent(ctx context.Context, in EventInput) (*models.Event, error) {
	verr := common.NewValidationError()
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		verr.Add("name", "this field is required")
	}
	if in.StartsAt.IsZero() {
		verr.Add("starts_at", "this field is required")
	}
	if in.EndsAt.IsZero() {
		verr.Add("ends_at", "this field is required")
	} else if in.EndsAt.Before(in.StartsAt) {
		verr.Add("ends_at", "an event cannot end before it starts")
	}
	if in.OrganizationID == "" {
		verr.Add("organization_id", "this field is required")
	} else {
		checkIDs(verr, "organization_id", in.OrganizationID)
	}
	checkIDs(verr, "tag_ids", in.TagIDs...)
	location, ok := normalizeLocation(in.Location)
	if !ok {
		verr.Add("location", "location must be \"latitude,longitude\" in decimal degrees")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var e *models.Event
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Events(tx)
		created, err := repo.Create(ctx, &models.Event{
			Name:           in.Name,
			Info:           in.Info,
			StartsAt:       in.StartsAt,
			EndsAt:         in.EndsAt,
			City:           strings.TrimSpace(in.City),
			Location:       location,
			OrganizationID: in.OrganizationID,
		}, in.TagIDs)
		if err != nil {
			return err
		}
		e, err = repo.GetByID(ctx, created.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating event: %w", err)
	}
	return e, nil
}

func (s *ContentService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.repomanager.Events(s.db).GetByID(ctx, id)
}

// ListEvents returns events that have not finished yet, soonest first.
func (s *ContentService) ListEvents(ctx context.Context, page models.Page) ([]*models.Event, error) {
	return s.repomanager.Events(s.db).ListUpcoming(ctx, s.now(), page)
}

// MapEvents returns the upcoming events that can be pinned on a map.
func (s *ContentService) MapEvents(ctx context.Context) ([]*models.Event, error) {
	return s.repomanager.Events(s.db).ListMapped(ctx, s.now())
}

// normalizeLocation parses "lat,lng" and re-renders it without spaces.
// An empty location is valid and means the event has no pin. The range
// checks are written so that NaN fails them.
func normalizeLocation(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	latRaw, lngRaw, found := strings.Cut(raw, ",")
	if !found {
		return "", false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil || !(lat >= -90 && lat <= 90) {
		return "", false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if err != nil || !(lng >= -180 && lng <= 180) {
		return "", false
	}
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64), true
}

func (s *ContentService) JoinEvent(ctx context.Context, eventID, userID string) error {
	return s.repomanager.Events(s.db).Join(ctx, eventID, userID)
}

func (s *ContentService) LeaveEvent(ctx context.Context, eventID, userID string) error {
	return s.repomanager.Events(s.db).Leave(ctx, eventID, userID)
}

func (s *ContentService) DeleteEvent(ctx context.Context, id string) error {
	return s.repomanager.Events(s.db).Delete(ctx, id)
}

// --- resources ---

func (s *ContentService) CreateResource(ctx context.Context, in ResourceInput) (*models.Resource, error) {
	verr := common.NewValidationError()
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		verr.Add("title", "this field is required")
	}
	in.Link = strings.TrimSpace(in.Link)
	if in.Link != "" {
		if u, err := url.Parse(in.Link); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			verr.Add("link", "enter a valid http or https URL")
		}
	}
	checkIDs(verr, "tag_ids", in.TagIDs...)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var res *models.Resource
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Resources(tx)
		created, err := repo.Create(ctx, &models.Resource{
			Title:          in.Title,
			AdditionalInfo: in.AdditionalInfo,
			Link:           in.Link,
		}, in.TagIDs)
		if err != nil {
			return err
		}
		res, err = repo.GetByID(ctx, created.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating resource: %w", err)
	}
	return res, nil
}

func (s *ContentService) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	return s.repomanager.Resources(s.db).GetByID(ctx, id)
}

func (s *ContentService) ListResources(ctx context.Context, page models.Page) ([]*models.Resource, error) {
	return s.repomanager.Resources(s.db).List(ctx, page)
}

func (s *ContentService) DeleteResource(ctx context.Context, id string) error {
	return s.repomanager.Resources(s.db).Delete(ctx, id)
}

// --- subscriptions ---

func (s *ContentService) FollowTag(ctx context.Context, userID, tagID string) error {
	return s.repomanager.Subscriptions(s.db).FollowTag(ctx, userID, tagID)
}

func (s *ContentService) UnfollowTag(ctx context.Context, userID, tagID string) error {
	return s.repomanager.Subscriptions(s.db).UnfollowTag(ctx, userID, tagID)
}

func (s *ContentService) FollowOrganization(ctx context.Context, userID, orgID string) error {
	return s.repomanager.Subscriptions(s.db).FollowOrganization(ctx, userID, orgID)
}

func (s *ContentService) UnfollowOrganization(ctx context.Context, userID, orgID string) error {
	return s.repomanager.Subscriptions(s.db).UnfollowOrganization(ctx, userID, orgID)
}

func (s *ContentService) Subscriptions(ctx context.Context, userID string) (*Subscriptions, error) {
	repo := s.repomanager.Subscriptions(s.db)
	tags, err := repo.Tags(ctx, userID)
	if err != nil {
		return nil, err
	}
	orgs, err := repo.Organizations(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Subscriptions{Tags: tags, Organizations: orgs}, nil
}

// checkIDs flags field when any of ids is not a UUID.
func checkIDs(verr *common.ValidationError, field string, ids ...string) {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			verr.Add(field, "enter a valid id")
			return
		}
	}
}

// --- slugs ---

// slugAttempts bounds how often a create is replayed after a concurrent
// insert claimed the slug it picked.
const slugAttempts = 2

func retrySlugConflict(create func() error) error {
	var err error
	for i := 0; i < slugAttempts; i++ {
		if err = create(); !errors.Is(err, common.ErrConflict) {
			return err
		}
	}
	return err
}

func makeSlug(s string) string {
	if v := slug.Make(s); v != "" {
		return v
	}
	return "item"
}

// uniqueSlug returns base, or base-N with the smallest N >= 2 not in taken.
func uniqueSlug(base string, taken []string) string {
	used := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		used[t] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if _, ok := used[candidate]; !ok {
			return candidate
		}
	}
}
