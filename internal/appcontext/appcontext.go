package appcontext

import (
	"github.com/kerem-kaynak/uvlhub/internal/services"
	"github.com/kerem-kaynak/uvlhub/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Context struct {
	DB     *gorm.DB
	Logger *zap.Logger

	Environment    string
	BaseURL        string
	JWTSecret      []byte
	AllowedOrigins []string

	Store   storage.Store
	Staging *storage.Staging

	Datasets *services.DatasetService
	Explore  *services.ExploreService
	Archiver *services.Archiver
	Records  *services.RecordService
	Accounts *services.AccountService
	Fakenodo *services.Fakenodo
	// Indexer is nil when quick search is not configured.
	Indexer services.Indexer
}

// New wires the services over db, store and staging. Depositions go to the
// local fakenodo service.
func New(db *gorm.DB, logger *zap.Logger, store storage.Store, staging *storage.Staging, baseURL string) *Context {
	fakenodo := services.NewFakenodo(db)

	return &Context{
		DB:      db,
		Logger:  logger,
		BaseURL: baseURL,
		Store:   store,
		Staging: staging,

		Datasets: &services.DatasetService{
			DB:        db,
			Logger:    logger,
			Store:     store,
			Staging:   staging,
			Depositor: fakenodo,
			BaseURL:   baseURL,
		},
		Explore:  services.NewExploreService(db),
		Archiver: services.NewArchiver(store, logger),
		Records:  services.NewRecordService(db),
		Accounts: services.NewAccountService(db, logger),
		Fakenodo: fakenodo,
	}
}

func (c *Context) UseIndexer(indexer services.Indexer) {
	c.Indexer = indexer
	c.Datasets.Indexer = indexer
}

func (c *Context) UseMailer(mailer services.Mailer) {
	c.Datasets.Mailer = mailer
}

func (c *Context) IsProduction() bool {
	return c.Environment == "production"
}
