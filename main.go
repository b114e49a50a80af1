package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"primerid/api/contexts"
	pam "primerid/api/middleware"
	"primerid/api/models"
	"primerid/api/models/constants/provider"
	jobsMvc "primerid/api/mvc/jobs"
	serviceInfoMvc "primerid/api/mvc/service-info"
	tcsdrMvc "primerid/api/mvc/tcsdr"
	"primerid/api/repositories"
	esRepo "primerid/api/repositories/elasticsearch"
	"primerid/api/repositories/memory"
	"primerid/api/repositories/postgres"
	"primerid/api/services"
	"primerid/api/services/sanitation"
	"primerid/api/services/storage"
	"primerid/api/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	// a local .env is optional
	_ = godotenv.Load()

	// Gather environment variables
	var cfg models.Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	fmt.Printf("Using : \n"+

		"\tDebug : %t \n"+
		"\tProduction : %t \n\n"+

		"\tStorage Provider : %s \n"+
		"\tBuckets : %s, %s, %s \n"+
		"\tSigned URL TTL : %s \n\n"+

		"\tDatabase Provider : %s \n"+
		"\tElasticsearch Url : %s \n\n"+

		"\tValidation Url : %s \n"+
		"\tDR Params Url : %s \n\n"+

		"Running on Port : %s\n",

		cfg.Debug, cfg.Api.Production,
		cfg.Storage.Provider,
		cfg.Storage.Buckets.TCSDR, cfg.Storage.Buckets.OGV, cfg.Storage.Buckets.Splicing,
		cfg.Storage.SignedUrlTtl,
		cfg.Database.Provider, cfg.Elasticsearch.Url,
		cfg.Services.ValidationUrl, cfg.Services.DrCatalogUrl,
		cfg.Api.Port)
	// --

	// Instantiate Server
	e := echo.New()
	if cfg.Debug {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}

	// Service Connections:
	// -- Persistence
	repo, err := createJobRepository(&cfg)
	if err != nil {
		e.Logger.Fatal(err)
	}
	// -- Object storage
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	signer, err := storage.New(ctx, &cfg)
	cancel()
	if err != nil {
		e.Logger.Fatal(err)
	}

	// Service Singletons
	catalog, err := services.NewDrCatalog(&cfg, e.Logger)
	if err != nil {
		e.Logger.Fatal(err)
	}
	validator := services.NewFileNameValidator(&cfg, e.Logger)
	js := services.NewJobService(repo, signer, catalog, &cfg, e.Logger)

	ss := sanitation.NewSanitationService(js, &cfg, e.Logger)
	defer ss.Stop()

	// Configure Server
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.PATCH, echo.DELETE},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, pam.ApiKeyHeader},
	}))

	// -- Override handlers with "custom Portal" context
	//		to be able to provide variables and global singletons
	e.Use(func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &contexts.PortalContext{
				Context:   c,
				Config:    &cfg,
				Jobs:      js,
				Catalog:   catalog,
				Validator: validator,
			}
			return h(cc)
		}
	})

	registerRoutes(e)

	// Run
	e.Logger.Fatal(e.Start(":" + cfg.Api.Port))
}

func registerRoutes(e *echo.Echo) {
	// Begin MVC Routes
	// -- Root
	e.GET("/", serviceInfoMvc.GetRoot)

	// -- Service Info
	e.GET("/service-info", serviceInfoMvc.GetServiceInfo)

	// -- Jobs
	//   every route is keyed by a `:pipeline` param so static
	//   siblings (list, params, submit, validateFiles) never
	//   compete with a static pipeline prefix
	e.POST("/api/:pipeline", jobsMvc.CreateJob,
		// middleware
		pam.MandatePipelinePathParam)
	e.GET("/api/:pipeline", jobsMvc.ListJobs,
		// middleware
		pam.MandatePipelinePathParam)
	e.POST("/api/:pipeline/list", jobsMvc.ListAllJobs,
		// middleware
		pam.MandatePipelinePathParam,
		pam.MandateAdminPassword)
	e.GET("/api/:pipeline/:id", jobsMvc.GetJob,
		// middleware
		pam.MandatePipelinePathParam,
		pam.MandateApiKey,
		pam.MandateJobIdPathParam)
	e.PATCH("/api/:pipeline/:id", jobsMvc.PatchJob,
		// middleware
		pam.MandatePipelinePathParam,
		pam.MandateApiKey,
		pam.MandateJobIdPathParam)
	e.DELETE("/api/:pipeline/submit/:id", jobsMvc.CommitJob,
		// middleware
		pam.MandatePipelinePathParam,
		pam.MandateJobIdPathParam)

	// -- TCS/DR only
	e.POST("/api/:pipeline/validateFiles", tcsdrMvc.ValidateFiles,
		// middleware
		pam.MandatePipelinePathParam,
		pam.MandateTcsDrPipeline)
	e.GET("/api/:pipeline/params", tcsdrMvc.GetDrParams,
		// middleware
		pam.MandatePipelinePathParam,
		pam.MandateTcsDrPipeline)
}

func createJobRepository(cfg *models.Config) (repositories.JobRepository, error) {
	switch provider.CastToDatabaseProvider(cfg.Database.Provider) {
	case provider.POSTGRES:
		db, err := postgres.Open(cfg.Database.PostgresDsn)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			return nil, err
		}
		return postgres.NewJobRepository(db), nil
	case provider.ELASTICSEARCH:
		es, err := utils.CreateEsConnection(cfg)
		if err != nil {
			return nil, err
		}
		return esRepo.NewJobRepository(es, cfg), nil
	case provider.MEMORY:
		fmt.Println("Using the in-memory job store ; jobs are lost on restart")
		return memory.NewJobRepository(), nil
	default:
		return nil, fmt.Errorf("unknown database provider %q", cfg.Database.Provider)
	}
}
