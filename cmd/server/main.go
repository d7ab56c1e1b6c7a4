package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "survey-system/docs"
	"survey-system/internal/config"
	"survey-system/internal/domain/response"
	"survey-system/internal/domain/survey"
	"survey-system/internal/domain/user"
	api "survey-system/internal/http"
	"survey-system/internal/metrics"
	"survey-system/internal/platform/database"
	jwtpkg "survey-system/internal/platform/jwt"
	"survey-system/internal/repository/postgres"
	"survey-system/internal/web"
	"survey-system/internal/worker"
)

// @title           Survey System API
// @version         1.0
// @description     Survey platform with session auth, admin CRUD and response statistics
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	metrics.Register()

	db, err := database.NewPostgres(cfg.DB_DSN)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepo(db)
	surveyRepo := postgres.NewSurveyRepo(db)
	respRepo := postgres.NewResponseRepo(db)

	userSvc := user.NewService(userRepo)
	surveySvc := survey.NewService(surveyRepo)
	respSvc := response.NewService(respRepo, surveyRepo)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, "")

	subCh := make(chan worker.SubmissionEvent, 100)
	subWorker := worker.NewSubmissionWorker(subCh, logger)

	apiHandler := api.NewHandler(userSvc, surveySvc, respSvc, jwtMgr, cfg.SessionTTL, subCh, db)
	router := api.NewRouter(apiHandler)

	webHandler := web.NewHandler(userSvc, surveySvc, respSvc, jwtMgr, cfg.SessionTTL, subCh, logger)
	router.Mount("/", webHandler.Routes())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go subWorker.Run(ctx)

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown error: %v", err)
	}

	logger.Info("server stopped")
}
