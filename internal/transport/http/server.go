package http

import (
	"github.com/gin-gonic/gin"

	"docuchat/internal/bootstrap"
	"docuchat/internal/transport/http/handler"
	"docuchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(app.Config.App.CORSOrigin))

	healthHandler := handler.NewHealthHandler(app)
	uploadHandler := handler.NewUploadHandler(app.IngestService, app.Config.Ingest.MaxPDFMB)
	chatHandler := handler.NewChatHandler(app.AnswerService)
	documentsHandler := handler.NewDocumentsHandler(app.Store)

	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.Health)
	router.GET("/healthz", healthHandler.Check)
	router.StaticFile("/ui", "web/index.html")

	router.POST("/upload", uploadHandler.Upload)
	router.POST("/chat", chatHandler.Chat)
	router.GET("/documents", documentsHandler.List)

	return router
}
