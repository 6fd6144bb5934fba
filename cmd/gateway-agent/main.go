// Command gateway-agent runs the indexing daemon: it syncs the node's pin
// set, detects and analyzes newly present content, expands directories into
// the catalogue, and serves the read-only HTTP API. It also exposes
// maintenance subcommands (migrate, repair) grounded on the teacher's
// cmd/bd migrate/repair commands, for operators who need to inspect or fix
// the catalogue without running the full daemon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/network-lumen/gateway-agent/internal/analyze"
	"github.com/network-lumen/gateway-agent/internal/config"
	"github.com/network-lumen/gateway-agent/internal/detect"
	"github.com/network-lumen/gateway-agent/internal/direxpand"
	"github.com/network-lumen/gateway-agent/internal/gateway"
	"github.com/network-lumen/gateway-agent/internal/httpapi"
	"github.com/network-lumen/gateway-agent/internal/logging"
	"github.com/network-lumen/gateway-agent/internal/noderpc"
	"github.com/network-lumen/gateway-agent/internal/pinsync"
	"github.com/network-lumen/gateway-agent/internal/store"
	"github.com/network-lumen/gateway-agent/internal/tagger"
	"github.com/network-lumen/gateway-agent/internal/typecrawl"
)

var daemonSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// GroupMaintenance groups the migrate/repair subcommands apart from the
// daemon's default run, mirroring the teacher's GroupMaintenance convention.
const GroupMaintenance = "maint"

var rootCmd = &cobra.Command{
	Use:   "gateway-agent",
	Short: "Content-addressed storage indexing daemon",
	Long: `gateway-agent syncs a node's pin set, detects and analyzes content, expands
directories, and serves a read-only catalogue over HTTP.

Without a subcommand it runs the daemon. Use 'migrate' or 'repair' for
one-off catalogue maintenance.`,
	RunE: runDaemon,
}

var migrateJSON bool

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	GroupID: GroupMaintenance,
	Short:   "Open the catalogue, applying any pending migrations, and report status",
	Long: `Opens the catalogue database, which applies the base schema and every
additive migration (idempotent, safe to re-run), then reports which
migrations are registered and whether any rows were indexed by a newer
detector version than this binary ships.

Examples:
  gateway-agent migrate
  gateway-agent migrate --json`,
	RunE: runMigrate,
}

var (
	repairDryRun bool
	repairJSON   bool
)

var repairCmd = &cobra.Command{
	Use:     "repair",
	GroupID: GroupMaintenance,
	Short:   "Force an out-of-band invariant repair pass",
	Long: `Repairs present/removed_at and token-shape invariant violations without
waiting for the next daemon restart (the same checks store.Open runs after
every migration pass, see internal/store/repair.go).

Examples:
  gateway-agent repair              # Repair in place
  gateway-agent repair --dry-run    # Report what would change
  gateway-agent repair --json       # Output the report as JSON`,
	RunE: runRepair,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateJSON, "json", false, "Output status as JSON")
	repairCmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "Report what would change without making changes")
	repairCmd.Flags().BoolVar(&repairJSON, "json", false, "Output the repair report as JSON")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(repairCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStoreForCLI loads config and opens the catalogue the same way the
// daemon does, for the migrate/repair subcommands.
func openStoreForCLI() (*config.Config, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	st, err := store.Open(cfg.DBPath, cfg.BusyTimeout, logging.WithComponent("store"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening catalogue at %s: %w", cfg.DBPath, err)
	}
	return cfg, st, nil
}

type migrateStatus struct {
	Migrations       []store.MigrationInfo `json:"migrations"`
	RunningVersion   string                 `json:"running_detector_version"`
	RecordedVersions []string               `json:"recorded_detector_versions"`
	VersionSkew      bool                   `json:"version_skew"`
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, st, err := openStoreForCLI()
	if err != nil {
		return err
	}
	defer st.Close()

	recorded, err := st.DistinctDetectorVersions(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading recorded detector versions: %w", err)
	}

	status := migrateStatus{
		Migrations:       store.ListMigrations(),
		RunningVersion:   detect.DetectorVersion,
		RecordedVersions: recorded,
	}
	// A row recorded with a semver-newer detector version than the running
	// binary means this binary is a downgrade relative to what last indexed
	// the catalogue, mirroring the teacher's RPC server/client semver check
	// (internal/rpc/server_routing_validation_diagnostics.go) applied to the
	// detector version instead of a wire protocol version.
	for _, v := range recorded {
		if semver.IsValid(v) && semver.IsValid(status.RunningVersion) && semver.Compare(v, status.RunningVersion) > 0 {
			status.VersionSkew = true
			break
		}
	}

	if migrateJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(status)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "registered migrations:\n")
	for _, m := range status.Migrations {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %s\n", m.Name, m.Description)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "running detector version: %s\n", status.RunningVersion)
	fmt.Fprintf(cmd.OutOrStdout(), "recorded detector versions: %v\n", status.RecordedVersions)
	if status.VersionSkew {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: catalogue has rows indexed by a newer detector version than this binary\n")
	}
	return nil
}

func runRepair(cmd *cobra.Command, args []string) error {
	_, st, err := openStoreForCLI()
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := st.Repair(cmd.Context(), repairDryRun)
	if err != nil {
		return fmt.Errorf("running repair: %w", err)
	}

	if repairJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "rows before: %d, rows after: %d\n", report.RowsBefore, report.RowsAfter)
	fmt.Fprintf(cmd.OutOrStdout(), "present repaired: %d, removed repaired: %d, tokens purged: %d\n",
		report.PresentRepaired, report.RemovedRepaired, report.TokensPurged)
	if report.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "dry run: no changes were persisted\n")
	}
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatal().Err(err).Msg("loading config failed")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.WithComponent("main")

	// Startup failures of the catalogue itself are fatal (spec.md §7
	// "Surface policy").
	st, err := store.Open(cfg.DBPath, cfg.BusyTimeout, logging.WithComponent("store"))
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("opening catalogue failed")
	}
	defer st.Close()

	gw := gateway.New(cfg.GatewayBase, cfg.RequestTimeout, 3)
	node := noderpc.New(cfg.NodeRPCBase, cfg.RequestTimeout, 3)

	detector := detect.New(gw, detect.Config{
		SampleBytes:           cfg.SampleBytes,
		MaxTotalBytes:         cfg.MaxTotalBytes,
		ExternalClassifierURL: cfg.ExternalClassifierURL,
	})

	var tg tagger.Tagger = tagger.NullTagger{}
	if cfg.MLWorkerEnable {
		tg = tagger.NewWorkerSupervisor([]string{"gateway-agent-tagger"}, cfg.MLWorkerTaskTimeout, tagger.NullTagger{}, logging.WithComponent("tagger"))
	}
	analyzer := analyze.New(tg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncer := pinsync.New(st, node, cfg.PinRefresh)
	crawler := typecrawl.New(st, gw, detector, analyzer, cfg.TypeRefresh, cfg.CrawlConcurrency, cfg.SampleBytes, cfg.SearchTokenIndexMaxTokens)
	expander := direxpand.New(st, node, direxpand.Config{
		MaxDepth:            cfg.DirExpandMaxDepth,
		TTL:                 cfg.DirExpandTTL,
		BatchSize:           cfg.DirExpandMaxBatch,
		MaxChildren:         cfg.DirExpandMaxChildren,
		PruneChildren:       cfg.DirExpandPruneChildren,
		TrackParent:         cfg.DirExpandTrackParent,
		Concurrency:         cfg.DirExpandConcurrency,
		PathMaxDepth:        cfg.PathIndexMaxDepth,
		PathMaxDirsPerRoot:  cfg.PathIndexMaxDirsPerRoot,
		PathMaxFilesPerRoot: cfg.PathIndexMaxFilesPerRoot,
	})

	go syncer.Run(ctx)
	go crawler.Run(ctx, cfg.CrawlConcurrency*10)
	go expander.Run(ctx, cfg.DirRefresh)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: httpapi.New(st).Router(),
	}
	go func() {
		log.Info().Int("port", cfg.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server stopped unexpectedly")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, daemonSignals...)
	defer signal.Stop(sigChan)

	<-sigChan
	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown failed")
	}
	return nil
}
