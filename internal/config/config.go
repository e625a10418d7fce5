package config

import (
	"os"
	"strconv"

	"github.com/sed-ethz/hdd-relocate-go/internal/neighbor"
	"github.com/sed-ethz/hdd-relocate-go/internal/synthesize"
	"github.com/sed-ethz/hdd-relocate-go/internal/xcorr"
)

// Config is the application's runtime configuration: HTTP server
// settings, storage paths, and the relocation engine's own parameter
// sets (synthesis, neighbor selection, solver invocation).
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string

	WorkDir            string
	DiskCacheDir       string
	MigrationsPath     string
	SolverBinary       string
	Ph2dtBinary        string
	SolverTemplatePath string
	Ph2dtTemplatePath  string
	UsePh2dt           bool
	Force              bool

	NeighborCT neighbor.Config
	NeighborCC neighbor.Config
	Synthesize synthesize.Config
}

// Load reads configuration from the environment, falling back to
// defaults tuned for a single-node development deployment.
func Load() *Config {
	return &Config{
		Port:      envOr("PORT", ":8080"),
		DBPath:    envOr("DB_PATH", "./data/relocate/relocate.db"),
		JWTSecret: envOr("JWT_SECRET", "your-secret-key-change-in-production"),

		WorkDir:            envOr("WORK_DIR", "./data/relocate/work"),
		DiskCacheDir:       envOr("WAVEFORM_CACHE_DIR", "./data/relocate/waveform-cache"),
		MigrationsPath:     envOr("MIGRATIONS_PATH", "./migrations"),
		SolverBinary:       envOr("SOLVER_BINARY", "hypoDD"),
		Ph2dtBinary:        envOr("PH2DT_BINARY", "ph2dt"),
		SolverTemplatePath: envOr("SOLVER_TEMPLATE", "./data/relocate/templates/hypoDD.inp"),
		Ph2dtTemplatePath:  envOr("PH2DT_TEMPLATE", "./data/relocate/templates/ph2dt.inp"),
		UsePh2dt:           envBool("USE_PH2DT", false),
		Force:              envBool("FORCE_REGENERATE", false),

		NeighborCT: defaultNeighborConfig(envFloat("NEIGHBOR_CT_MAX_ESDIST_KM", 40)),
		NeighborCC: defaultNeighborConfig(envFloat("NEIGHBOR_CC_MAX_ESDIST_KM", 25)),
		Synthesize: synthesize.Config{
			MaxIEdistKm:  envFloat("SYNTH_MAX_IEDIST_KM", 2),
			NumCC:        int(envFloat("SYNTH_NUM_CC", 3)),
			MinCoef:      envFloat("SYNTH_MIN_COEF", 0.7),
			MaxCCTWSec:   envFloat("SYNTH_MAX_CCTW_SEC", 1),
			FixAutoPhase: envBool("SYNTH_FIX_AUTO_PHASE", true),
			XCorr: xcorr.Config{
				StartOffset: envFloat("SYNTH_XCORR_START_OFFSET", -1),
				EndOffset:   envFloat("SYNTH_XCORR_END_OFFSET", 1),
				MaxDelay:    envFloat("SYNTH_XCORR_MAX_DELAY", 2),
				MinCoef:     envFloat("SYNTH_MIN_COEF", 0.7),
			},
		},
	}
}

func defaultNeighborConfig(maxESdistKm float64) neighbor.Config {
	return neighbor.Config{
		MaxIEdistKm:      envFloat("NEIGHBOR_MAX_IEDIST_KM", 10),
		MinPhaseWeight:   envFloat("NEIGHBOR_MIN_PHASE_WEIGHT", 0),
		MinESdistKm:      0,
		MaxESdistKm:      maxESdistKm,
		MinEStoIEratio:   envFloat("NEIGHBOR_MIN_ES_IE_RATIO", 0),
		MinDTperEvt:      int(envFloat("NEIGHBOR_MIN_DT_PER_EVT", 1)),
		MaxDTperEvt:      int(envFloat("NEIGHBOR_MAX_DT_PER_EVT", 8)),
		NumEllipsoids:    int(envFloat("NEIGHBOR_NUM_ELLIPSOIDS", 5)),
		InitialLenKm:     envFloat("NEIGHBOR_INITIAL_LEN_KM", 2),
		MaxEllipsoidSize: envFloat("NEIGHBOR_MAX_ELLIPSOID_SIZE", maxESdistKm),
		MaxNumNeigh:      int(envFloat("NEIGHBOR_MAX_NUM_NEIGH", 40)),
		MinNumNeigh:      int(envFloat("NEIGHBOR_MIN_NUM_NEIGH", 8)),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
