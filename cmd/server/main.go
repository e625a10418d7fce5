package main

import (
	"log"
	"os"

	"github.com/sed-ethz/hdd-relocate-go/internal/api"
	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
	"github.com/sed-ethz/hdd-relocate-go/internal/config"
	"github.com/sed-ethz/hdd-relocate-go/internal/database"
	"github.com/sed-ethz/hdd-relocate-go/internal/inventory"
	"github.com/sed-ethz/hdd-relocate-go/internal/orchestrator"
	"github.com/sed-ethz/hdd-relocate-go/internal/waveform"
)

func main() {
	cfg := config.Load()

	dbConfig := database.Config{Path: cfg.DBPath}
	if err := database.Init(dbConfig); err != nil {
		log.Fatal("failed to initialize database: ", err)
	}
	defer database.Close()

	migrator := database.NewMigrationManager(database.GetDB(), cfg.MigrationsPath)
	if err := migrator.RunMigrations(); err != nil {
		log.Fatal("failed to run migrations: ", err)
	}

	cat, err := catalog.LoadJSON(envOr(catalogPathEnv, defaultCatalogPath))
	if err != nil {
		log.Fatal("failed to load catalog: ", err)
	}

	inv, err := inventory.LoadStaticInventory(envOr(inventoryPathEnv, defaultInventoryPath))
	if err != nil {
		log.Fatal("failed to load inventory: ", err)
	}

	archive := waveform.NewLocalArchive(envOr(archivePathEnv, defaultArchivePath))
	diskCache := waveform.NewDiskCache(cfg.DiskCacheDir)
	pipeline := &waveform.Pipeline{
		Inventory:    inv,
		Source:       archive,
		DiskCache:    diskCache,
		UseDiskCache: true,
		Cache:        waveform.NewCache(),
	}

	engine := orchestrator.New(cat, inv, pipeline, orchestrator.Config{
		Synthesize:         cfg.Synthesize,
		NeighborCT:         cfg.NeighborCT,
		NeighborCC:         cfg.NeighborCC,
		WorkDir:            cfg.WorkDir,
		SolverBinary:       cfg.SolverBinary,
		Ph2dtBinary:        cfg.Ph2dtBinary,
		SolverTemplatePath: cfg.SolverTemplatePath,
		Ph2dtTemplatePath:  cfg.Ph2dtTemplatePath,
		UsePh2dt:           cfg.UsePh2dt,
		Force:              cfg.Force,
	})

	runs := database.NewRunsRepository(database.GetDB())

	router := api.SetupRouter(cfg, api.Deps{Engine: engine, Runs: runs})

	log.Printf("relocation engine listening on %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("failed to start server: ", err)
	}
}

const (
	catalogPathEnv       = "CATALOG_PATH"
	inventoryPathEnv     = "INVENTORY_PATH"
	archivePathEnv       = "ARCHIVE_PATH"
	defaultCatalogPath   = "./data/relocate/catalog.json"
	defaultInventoryPath = "./data/relocate/inventory.json"
	defaultArchivePath   = "./data/relocate/archive"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
