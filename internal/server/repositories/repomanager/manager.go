package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/stavros/internal/dbx"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/announcements"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/events"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/organizations"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/resources"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/subscriptions"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/tags"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/users"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/verificationtokens"
)

// RepositoryManager vends repositories bound to either a *sql.DB or a
// *sql.Tx, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	VerificationTokens(db dbx.DBTX) verificationtokens.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Tags(db dbx.DBTX) tags.Repository
	Organizations(db dbx.DBTX) organizations.Repository
	Announcements(db dbx.DBTX) announcements.Repository
	Events(db dbx.DBTX) events.Repository
	Resources(db dbx.DBTX) resources.Repository
	Contacts(db dbx.DBTX) contacts.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
}
