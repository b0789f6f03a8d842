package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/cryptox"
	"github.com/dmitrijs2005/stavros/internal/dbx"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/dmitrijs2005/stavros/internal/server/notify"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/announcements"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/events"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/organizations"
	refreshtokensrepo "github.com/dmitrijs2005/stavros/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/resources"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/subscriptions"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/tags"
	usersrepo "github.com/dmitrijs2005/stavros/internal/server/repositories/users"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/verificationtokens"
	_ "modernc.org/sqlite"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// newSQLMockDB returns a sqlmock-backed *sql.DB for tests that assert the
// transaction boundaries.
func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// newTxDB returns a real in-memory database so that any number of
// (possibly concurrent) transactions can begin and commit.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// --- users ---

type fakeUsersRepo struct {
	mu         sync.Mutex
	byID       map[string]*models.User
	seq        int
	getErr     error
	create     error
	onVerified func()
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) clone(u *models.User) *models.User {
	c := *u
	return &c
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.create != nil {
		return nil, f.create
	}
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, common.ErrEmailTaken
		}
	}
	f.seq++
	u.ID = fmt.Sprintf("u%d", f.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	f.byID[u.ID] = f.clone(u)
	return f.clone(u), nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return f.clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return f.clone(u), nil
}

func (f *fakeUsersRepo) MarkVerified(ctx context.Context, id string, at time.Time) (bool, error) {
	if f.onVerified != nil {
		defer f.onVerified()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.VerifiedAt != nil {
		return false, nil
	}
	u.VerifiedAt = &at
	return true, nil
}

func (f *fakeUsersRepo) UpdateName(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Name = name
	return nil
}

func (f *fakeUsersRepo) List(ctx context.Context, page models.Page) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, u := range f.byID {
		out = append(out, f.clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsersRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

// --- verification tokens ---

// fakeVerificationRepo emulates the row lock PostgreSQL takes in Consume:
// a winning Consume holds rowLock until the same transaction has marked the
// account verified, so losers observe the committed outcome.
type fakeVerificationRepo struct {
	rowLock   sync.Mutex
	mu        sync.Mutex
	byHash    map[string]*models.VerificationToken
	createErr error
	purged    int64
}

func newFakeVerificationRepo() *fakeVerificationRepo {
	return &fakeVerificationRepo{byHash: map[string]*models.VerificationToken{}}
}

func (f *fakeVerificationRepo) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.byHash[tokenHash] = &models.VerificationToken{
		ID: tokenHash[:8], UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeVerificationRepo) DeletePending(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for h, t := range f.byHash {
		if t.UserID == userID && t.ConsumedAt == nil {
			delete(f.byHash, h)
			n++
		}
	}
	return n, nil
}

func (f *fakeVerificationRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	f.rowLock.Lock()
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byHash[tokenHash]
	if !ok || t.ConsumedAt != nil || !t.ExpiresAt.After(now) {
		f.rowLock.Unlock()
		return "", common.ErrorNotFound
	}
	t.ConsumedAt = &now
	return t.UserID, nil
}

func (f *fakeVerificationRepo) FindByHash(ctx context.Context, tokenHash string) (*models.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byHash[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeVerificationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return f.purged, nil
}

func (f *fakeVerificationRepo) pending(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.byHash {
		if t.UserID == userID && t.ConsumedAt == nil {
			n++
		}
	}
	return n
}

// expire moves every stored token into the past.
func (f *fakeVerificationRepo) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byHash {
		t.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

// --- refresh tokens ---

// fakeRefreshRepo keeps sessions by digest; Consume removes under the lock
// the way a single DELETE ... RETURNING does.
type fakeRefreshRepo struct {
	mu         sync.Mutex
	byHash     map[string]*models.RefreshToken
	consumeErr error
	revokeErr  error
	createErr  error
	created    []string
	revoked    []string
	purged     int64
	purgeErr   error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{byHash: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.byHash[tokenHash] = &models.RefreshToken{UserID: userID, TokenHash: tokenHash, Expires: expiresAt}
	f.created = append(f.created, tokenHash)
	return nil
}

func (f *fakeRefreshRepo) Consume(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	t, ok := f.byHash[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.byHash, tokenHash)
	return t, nil
}

func (f *fakeRefreshRepo) Revoke(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	delete(f.byHash, tokenHash)
	f.revoked = append(f.revoked, tokenHash)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return f.purged, f.purgeErr
}

// seed stores a session for the plaintext token.
func (f *fakeRefreshRepo) seed(userID, token string, expires time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := cryptox.HashToken(token)
	f.byHash[h] = &models.RefreshToken{UserID: userID, TokenHash: h, Expires: expires}
}

func (f *fakeRefreshRepo) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byHash)
}

// --- notifier ---

type fakeNotifier struct {
	mu            sync.Mutex
	verifications []string
	welcomes      []string
	err           error
}

func (n *fakeNotifier) SendVerification(ctx context.Context, to notify.Recipient, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, link)
	return n.err
}

func (n *fakeNotifier) SendWelcome(ctx context.Context, to notify.Recipient) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, to.Email)
	return n.err
}

func (n *fakeNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.verifications), len(n.welcomes)
}

func (n *fakeNotifier) lastLink() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.verifications) == 0 {
		return ""
	}
	return n.verifications[len(n.verifications)-1]
}

// --- manager ---

// fakeRepoManager returns the same repository regardless of the handle, so
// state written inside a transaction is visible afterwards.
type fakeRepoManager struct {
	u   *fakeUsersRepo
	v   *fakeVerificationRepo
	r   *fakeRefreshRepo
	t   tags.Repository
	o   organizations.Repository
	a   announcements.Repository
	e   events.Repository
	res resources.Repository
	c   contacts.Repository
	s   subscriptions.Repository
}

func newFakeRepoManager() *fakeRepoManager {
	m := &fakeRepoManager{
		u: newFakeUsersRepo(),
		v: newFakeVerificationRepo(),
		r: newFakeRefreshRepo(),
	}
	m.u.onVerified = m.v.rowLock.Unlock
	return m
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) VerificationTokens(db dbx.DBTX) verificationtokens.Repository {
	return m.v
}
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Tags(db dbx.DBTX) tags.Repository                       { return m.t }
func (m *fakeRepoManager) Organizations(db dbx.DBTX) organizations.Repository     { return m.o }
func (m *fakeRepoManager) Announcements(db dbx.DBTX) announcements.Repository     { return m.a }
func (m *fakeRepoManager) Events(db dbx.DBTX) events.Repository                   { return m.e }
func (m *fakeRepoManager) Resources(db dbx.DBTX) resources.Repository             { return m.res }
func (m *fakeRepoManager) Contacts(db dbx.DBTX) contacts.Repository               { return m.c }
func (m *fakeRepoManager) Subscriptions(db dbx.DBTX) subscriptions.Repository     { return m.s }
