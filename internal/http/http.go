package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"github.com/kerem-kaynak/uvlhub/internal/http/middleware"
)

type APIService struct {
	engine  *gin.Engine
	context *appcontext.Context
}

func NewHTTPService(ctx *appcontext.Context) *APIService {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORSMiddleware(ctx.Environment, ctx.AllowedOrigins))
	engine.Use(middleware.Authenticate(ctx.JWTSecret))

	service := &APIService{
		engine:  engine,
		context: ctx,
	}
	service.setupRoutes()
	return service
}

func (h *APIService) Engine() *gin.Engine {
	return h.engine
}

func (h *APIService) setupRoutes() {
	h.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h.setupAuthRoutes(h.engine.Group("/"))
	h.setupDatasetRoutes(h.engine.Group("/dataset"))
	h.setupDownloadRoutes(h.engine.Group("/dataset"))
	h.setupProfileRoutes(h.engine.Group("/profile"))

	h.engine.GET("/doi/*doi", GetDatasetByDOI(h.context))
	h.engine.GET("/user/:id/datasets", GetUserDatasets(h.context))
	h.engine.GET("/feature_model/:id/hierarchy", GetFeatureModelHierarchy(h.context))
	h.engine.POST("/explore", Explore(h.context))
	h.engine.GET("/search", SearchResources(h.context))
	h.engine.GET("/fakenodo/:id", GetDeposition(h.context))
}

func (h *APIService) setupAuthRoutes(group *gin.RouterGroup) {
	group.GET("/login", LoginPage(h.context))
	group.POST("/login", Login(h.context))
	group.POST("/signup", Signup(h.context))
	group.POST("/logout", Logout(h.context))
	group.POST("/reset_password", ResetPassword(h.context))
	group.GET("/me", middleware.RequireLogin(), GetUserInfo(h.context))
}

func (h *APIService) setupDatasetRoutes(group *gin.RouterGroup) {
	datasets := group.Group("")
	datasets.Use(middleware.RequireLogin())

	datasets.POST("/upload", UploadDataset(h.context))
	datasets.POST("/create_dataset_draft", UploadDataset(h.context))
	datasets.GET("/list", ListDatasets(h.context))
	datasets.GET("/edit/:id", GetEditDataset(h.context))
	datasets.POST("/edit/:id", EditDataset(h.context))
	datasets.GET("/publish/:id", PublishDataset(h.context))
	datasets.GET("/unsynchronized/:id", GetUnsynchronizedDataset(h.context))
	datasets.POST("/file/upload", UploadStagedFile(h.context))
	datasets.POST("/file/delete", DeleteStagedFile(h.context))
}

func (h *APIService) setupDownloadRoutes(group *gin.RouterGroup) {
	group.GET("/formats", ListFormats(h.context))
	group.GET("/download/:id", DownloadDataset(h.context))
	group.GET("/download/:id/:format", DownloadDataset(h.context))
	group.GET("/download_all", DownloadAllDatasets(h.context))
}

func (h *APIService) setupProfileRoutes(group *gin.RouterGroup) {
	profile := group.Group("")
	profile.Use(middleware.RequireLogin())

	profile.GET("/summary", GetProfileSummary(h.context))
	profile.POST("/answers", UpdateSecurityAnswers(h.context))
}
