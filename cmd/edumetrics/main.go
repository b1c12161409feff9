package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/edumetrics/edumetrics/internal/app"
	"github.com/edumetrics/edumetrics/internal/auth"
	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/courses"
	"github.com/edumetrics/edumetrics/internal/evaluations"
	"github.com/edumetrics/edumetrics/internal/grades"
	"github.com/edumetrics/edumetrics/internal/observability"
	"github.com/edumetrics/edumetrics/internal/platform/db"
	"github.com/edumetrics/edumetrics/internal/roles"
	"github.com/edumetrics/edumetrics/internal/schools"
	"github.com/edumetrics/edumetrics/internal/students"
	"github.com/edumetrics/edumetrics/internal/subjects"
	"github.com/edumetrics/edumetrics/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	usersRepo := users.NewRepository(dbpool)
	evaluationsRepo := evaluations.NewRepository(dbpool)
	gradesRepo := grades.NewRepository(dbpool)

	catalog := authz.NewCatalog()
	catalog.Register("evaluation", evaluationsRepo.EvaluationResource)
	catalog.Register("question", evaluationsRepo.QuestionResource)
	catalog.Register("option", evaluationsRepo.OptionResource)
	catalog.Register("application", evaluationsRepo.ApplicationResource)
	catalog.Register("grade", gradesRepo.GradeResource)
	catalog.Register("answer", gradesRepo.AnswerResource)

	gate := authz.NewGate(users.NewDirectory(usersRepo), catalog)
	authzMiddleware := authz.Middleware{Gate: gate, Logger: logger}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	denylist := auth.NewDenylist(redisClient)
	authService := auth.NewService(auth.NewRepository(dbpool), issuer, denylist)
	authHandler := auth.NewHandler(logger, authService)

	coursesRepo := courses.NewRepository(dbpool)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthMiddleware:     auth.Middleware(authService, logger),
		AuthHandler:        authHandler,
		UsersHandler:       users.NewHandler(logger, users.NewService(usersRepo, gate), authzMiddleware),
		SchoolsHandler:     schools.NewHandler(logger, schools.NewRepository(dbpool), authzMiddleware),
		RolesHandler:       roles.NewHandler(logger, roles.NewRepository(dbpool), authzMiddleware),
		CoursesHandler:     courses.NewHandler(logger, coursesRepo, authzMiddleware),
		SubjectsHandler:    subjects.NewHandler(logger, subjects.NewRepository(dbpool), coursesRepo, authzMiddleware),
		StudentsHandler:    students.NewHandler(logger, students.NewRepository(dbpool), coursesRepo, authzMiddleware),
		EvaluationsHandler: evaluations.NewHandler(logger, evaluationsRepo, authzMiddleware, asynqClient),
		GradesHandler:      grades.NewHandler(logger, gradesRepo, authzMiddleware),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
