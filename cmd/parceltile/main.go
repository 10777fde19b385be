package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kwv/parceltile/config"
	"github.com/kwv/parceltile/geo"
	"github.com/kwv/parceltile/infill"
	"github.com/kwv/parceltile/merge"
	"github.com/kwv/parceltile/parcel"
	"github.com/kwv/parceltile/registry"
	"github.com/kwv/parceltile/store"
	"github.com/kwv/parceltile/tilegraph"
	"github.com/kwv/parceltile/tilingerr"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configFile   = flag.String("config", "", "Path to YAML configuration file (optional; defaults are used when absent)")
	parcelsFile  = flag.String("parcels", "parcels.parquet", "Path to the parcels input table")
	tilesFile    = flag.String("tiles", "tiles.parquet", "Path to the initial tiles input table")
	desiredTiles = flag.Int("desired-tiles", 0, "Override desired_ending_tile_count (0 = use config/default)")
	bufferFeet   = flag.Float64("buffer-feet", 0, "Override adjacency_buffer_feet (0 = use config/default)")
	infillK      = flag.Int("infill-k", 0, "Override infill_k (0 = use config/default)")
	minSales     = flag.Int("min-sales", 0, "Override min_sales_for_ols (0 = use config/default)")
	outputDir    = flag.String("output-dir", "", "Override output_directory (empty = use config/default)")
	parallelFlag = flag.Bool("parallel", true, "Enable parallel stale-edge recomputation")
)

func main() {
	flag.Parse()
	fmt.Printf("parceltile version: %s\n", Version)

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}
	applyFlagOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Printf("parceltile: %v", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a classified tilingerr.Error to a distinct process exit
// code so callers can distinguish a bad input file from an I/O failure
// without parsing the message. Anything unclassified exits 1.
func exitCode(err error) int {
	var classified *tilingerr.Error
	if !errors.As(err, &classified) {
		return 1
	}
	switch classified.Kind {
	case tilingerr.KindSchema:
		return 2
	case tilingerr.KindValidity:
		return 3
	case tilingerr.KindIO:
		return 4
	default:
		return 1
	}
}

func applyFlagOverrides(cfg *config.Config) {
	if *desiredTiles > 0 {
		cfg.DesiredEndingTileCount = *desiredTiles
	}
	if *bufferFeet > 0 {
		cfg.AdjacencyBufferFeet = *bufferFeet
	}
	if *infillK > 0 {
		cfg.InfillK = *infillK
	}
	if *minSales > 0 {
		cfg.MinSalesForOLS = *minSales
	}
	if *outputDir != "" {
		cfg.OutputDirectory = *outputDir
	}
	cfg.ParallelRecompute = *parallelFlag
}

func run(cfg config.Config) error {
	files := store.TableFile{}

	parcelRows, err := files.ReadParcels(*parcelsFile)
	if err != nil {
		return fmt.Errorf("reading parcels: %w", err)
	}
	tileSeeds, err := files.ReadTiles(*tilesFile)
	if err != nil {
		return fmt.Errorf("reading tiles: %w", err)
	}

	parcelTable, err := parcel.Load(parcelRows)
	if err != nil {
		return fmt.Errorf("validating parcels: %w", err)
	}

	kernel := geo.Orb{}

	log.Printf("run fingerprint: parcels=%d tiles=%d buffer_ft=%.1f infill_k=%d min_sales=%d desired_tiles=%d",
		len(parcelRows), len(tileSeeds), cfg.AdjacencyBufferFeet, cfg.InfillK, cfg.MinSalesForOLS, cfg.DesiredEndingTileCount)

	infillResult, err := infill.Run(parcelTable, kernel, cfg.InfillK)
	for _, d := range infillResult.Dropped {
		log.Printf("infill: dropped parcel %s (no built-area donors)", d.Key)
	}
	if err != nil {
		return fmt.Errorf("infilling parcel attributes: %w", err)
	}

	graph := tilegraph.New(kernel, cfg.AdjacencyBufferFeet)
	if err := graph.Init(tileSeeds, parcelTable); err != nil {
		return fmt.Errorf("initializing tile graph: %w", err)
	}

	reg := registry.New(graph, cfg.MinSalesForOLS, cfg.ParallelRecompute)
	reg.Init()

	driver := merge.NewDriver(graph, reg, files, cfg.OutputDirectory, cfg.DesiredEndingTileCount)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	merges, err := driver.Run(ctx)
	if err != nil {
		return fmt.Errorf("running merge driver: %w", err)
	}
	log.Printf("parceltile: completed %d merges, %d tiles remain", merges, graph.TileCount())
	return nil
}
