package server

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"labelsweep/internal/config"
	"labelsweep/internal/handler"
	"labelsweep/internal/notifier"
	"labelsweep/internal/repository"
	"labelsweep/internal/service"
	"labelsweep/internal/signals"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	cfg    *config.Config
	bot    *notifier.Bot
	logger *zap.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, bot *notifier.Bot, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		bot:    bot,
		logger: logger,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	datasetRepo := repository.NewDatasetRepository(s.db, s.logger)
	sampleRepo := repository.NewSampleRepository(s.db, s.logger)
	detectionRepo := repository.NewDetectionRepository(s.db, s.logger)
	suggestionRepo := repository.NewSuggestionRepository(s.db, s.logger)
	feedbackRepo := repository.NewFeedbackRepository(s.db, s.logger)
	correctionRepo := repository.NewCorrectionRepository(s.db, s.logger)
	modelRepo := repository.NewModelRepository(s.db, s.logger)

	signalClient := signals.NewClient(s.cfg.SignalService.URL)

	datasetService := service.NewDatasetService(datasetRepo, sampleRepo, detectionRepo, s.cfg, s.logger)
	detectionService := service.NewDetectionService(datasetRepo, sampleRepo, detectionRepo, signalClient, s.bot, s.cfg, s.logger)
	suggestionService := service.NewSuggestionService(datasetRepo, sampleRepo, detectionRepo, suggestionRepo, s.logger)
	reviewService := service.NewReviewService(datasetRepo, sampleRepo, detectionRepo, suggestionRepo, s.logger)
	correctionService := service.NewCorrectionService(datasetRepo, detectionRepo, correctionRepo, s.bot, s.logger)
	feedbackService := service.NewFeedbackService(datasetRepo, sampleRepo, suggestionRepo, feedbackRepo, s.logger)
	modelService := service.NewModelService(datasetRepo, sampleRepo, detectionRepo, modelRepo, signalClient, s.logger)

	datasetHandler := handler.NewDatasetHandler(datasetService, s.logger)
	detectionHandler := handler.NewDetectionHandler(detectionService, s.logger)
	suggestionHandler := handler.NewSuggestionHandler(suggestionService, reviewService, s.logger)
	correctionHandler := handler.NewCorrectionHandler(correctionService, s.logger)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService, s.logger)
	modelHandler := handler.NewModelHandler(modelService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, signalClient, s.cfg.SignalService.URL, s.logger)

	s.router.GET("/health", healthHandler.Health)

	api := s.router.Group("/api/v1")
	{
		datasets := api.Group("/datasets")
		datasets.POST("", datasetHandler.Create)
		datasets.GET("", datasetHandler.List)
		datasets.GET("/:id", datasetHandler.Get)
		datasets.DELETE("/:id", datasetHandler.Delete)
		datasets.GET("/:id/samples", datasetHandler.ListSamples)
		datasets.GET("/:id/samples/:sample_id", datasetHandler.GetSample)
		datasets.GET("/:id/stats", datasetHandler.Stats)
		datasets.GET("/:id/correction-summary", datasetHandler.CorrectionSummary)
		datasets.POST("/:id/export", datasetHandler.Export)

		detection := api.Group("/detection")
		detection.POST("/run", detectionHandler.Run)
		detection.GET("", detectionHandler.List)
		detection.GET("/:id", detectionHandler.Get)
		detection.GET("/stats/:dataset_id", detectionHandler.Stats)
		detection.GET("/signal-stats/:dataset_id", detectionHandler.SignalStats)
		detection.GET("/runs/:dataset_id", detectionHandler.ListRuns)

		suggestions := api.Group("/suggestions")
		suggestions.POST("/generate", suggestionHandler.Generate)
		suggestions.GET("", suggestionHandler.List)
		suggestions.GET("/:id", suggestionHandler.Get)
		suggestions.PUT("/:id/review", suggestionHandler.Review)
		suggestions.GET("/stats/:dataset_id", suggestionHandler.Stats)

		corrections := api.Group("/corrections")
		corrections.GET("/preview/:dataset_id", correctionHandler.Preview)
		corrections.POST("/apply", correctionHandler.Apply)

		feedback := api.Group("/feedback")
		feedback.GET("", feedbackHandler.List)
		feedback.GET("/:id", feedbackHandler.Get)
		feedback.GET("/stats/:dataset_id", feedbackHandler.Stats)
		feedback.GET("/patterns/:dataset_id", feedbackHandler.Patterns)

		models := api.Group("/models")
		models.POST("/baseline", modelHandler.TrainBaseline)
		models.POST("/retrain", modelHandler.Retrain)
		models.GET("/:dataset_id", modelHandler.List)
		models.GET("/compare/:dataset_id", modelHandler.Compare)
	}
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
