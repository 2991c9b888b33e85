// Package server wires configuration, storage backends and the HTTP stack
// into a running permcheck API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/permcheck/audit"
	"github.com/dev-mohitbeniwal/permcheck/checker"
	"github.com/dev-mohitbeniwal/permcheck/checker/assembler"
	"github.com/dev-mohitbeniwal/permcheck/checker/oracle"
	"github.com/dev-mohitbeniwal/permcheck/config"
	"github.com/dev-mohitbeniwal/permcheck/controller"
	"github.com/dev-mohitbeniwal/permcheck/dao"
	"github.com/dev-mohitbeniwal/permcheck/db"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/router"
	"github.com/dev-mohitbeniwal/permcheck/service"
	"github.com/dev-mohitbeniwal/permcheck/util"
)

// OracleOptions reads the oracle.* settings. A remote provider without an
// api key falls back to the static oracle.
func OracleOptions() oracle.Options {
	opts := oracle.Options{
		Provider:    config.GetString("oracle.provider"),
		URL:         config.GetString("oracle.url"),
		APIKey:      config.GetString("oracle.apiKey"),
		Model:       config.GetString("oracle.model"),
		MaxTokens:   config.GetInt("oracle.maxTokens"),
		Temperature: config.GetFloat64("oracle.temperature"),
		TopP:        config.GetFloat64("oracle.topP"),
		Timeout:     config.GetDuration("oracle.timeout"),
	}
	switch strings.ToLower(opts.Provider) {
	case oracle.ProviderOpenAI, oracle.ProviderHuggingFace:
		if opts.APIKey == "" {
			logger.Warn("No oracle api key configured, using the static oracle",
				zap.String("provider", opts.Provider))
			opts.Provider = oracle.ProviderStatic
		}
	}
	return opts
}

// NewChecker builds a Checker from the checker.* and oracle.* settings.
func NewChecker() (*checker.Checker, error) {
	completeness, err := assembler.ParseCompleteness(config.GetString("checker.completeness"))
	if err != nil {
		return nil, err
	}
	strategy := config.GetString("checker.resourceStrategy")
	if strategy != checker.ResourceFromOracle && strategy != checker.ResourceFromController {
		return nil, fmt.Errorf("unknown resource strategy %q", strategy)
	}

	o, err := oracle.New(OracleOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize oracle: %w", err)
	}

	return checker.New(o, checker.Options{
		WorkDir:          config.GetString("checker.workDir"),
		ExcludeDirs:      config.GetStringSlice("checker.excludeDirs"),
		Completeness:     completeness,
		ResourceStrategy: strategy,
		KeepWorkDir:      config.GetBool("checker.keepWorkDir"),
	}), nil
}

// Server owns the backends opened by Bootstrap.
type Server struct {
	Router  *gin.Engine
	closers []func()
}

// Bootstrap connects the enabled backends and builds the router. Disabled
// backends fall back to in-process implementations.
func Bootstrap(ctx context.Context) (*Server, error) {
	s := &Server{}

	chk, err := NewChecker()
	if err != nil {
		return nil, err
	}

	redisEnabled := config.GetBool("redis.enabled")
	if redisEnabled {
		if err := db.InitRedis(); err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.CloseRedis)
	}

	var reportStore dao.ReportStore = dao.NewMemoryReportStore(config.GetInt("reports.memoryCapacity"))
	if config.GetBool("neo4j.enabled") {
		if err := db.InitNeo4j(); err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, db.CloseNeo4j)
		reportDAO := dao.NewReportDAO(db.Neo4jDriver)
		reportStore = reportDAO
	}

	var auditRepo audit.Repository = audit.NewMemoryRepository()
	if config.GetBool("elasticsearch.enabled") {
		esRepo, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"), config.GetString("elasticsearch.index"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to initialize Elasticsearch: %w", err)
		}
		auditRepo = esRepo
	}
	auditService := audit.NewService(auditRepo)

	eventBus := util.NewEventBus()
	eventBus.Start(ctx)
	util.NewNotificationService(auditService).Register(eventBus)

	services := service.InitializeServices(
		chk,
		reportStore,
		auditService,
		util.NewValidationUtil(config.GetInt64("upload.maxBytes")),
		util.NewCacheService(redisEnabled, config.GetInt("reports.memoryCapacity"), config.GetDuration("redis.defaultCacheTTL")),
		eventBus,
		config.GetDuration("redis.lockTTL"),
	)
	controllers := controller.InitializeControllers(services, config.GetInt64("upload.maxBytes"))

	opts := router.Options{}
	if config.GetBool("auth.enabled") {
		secret := config.GetString("auth.jwtSecret")
		if secret == "" {
			s.Close()
			return nil, errors.New("auth.enabled requires auth.jwtSecret")
		}
		opts.AuthSecret = []byte(secret)
		opts.RequiredGroups = config.GetStringSlice("auth.requiredGroups")
	}
	if redisEnabled {
		opts.RateLimitRequests = config.GetInt("ratelimit.requests")
		opts.RateLimitWindow = config.GetDuration("ratelimit.window")
	}

	gin.SetMode(gin.ReleaseMode)
	s.Router = router.SetupRouter(controllers, opts)
	return s, nil
}

// Close releases the backends in reverse order of opening.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exiting")
	return nil
}
