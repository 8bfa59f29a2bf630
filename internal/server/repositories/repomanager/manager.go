package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bizdesk/internal/dbx"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/downloads"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/otps"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db *sql.DB) refreshtokens.Store
	OTPs(db dbx.DBTX) otps.Repository
	Downloads(db dbx.DBTX) downloads.Repository
}
