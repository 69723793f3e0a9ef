package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	v1 "github.com/atelier-labs/atelier/pkg/atelier/v1"
	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	atellog "github.com/atelier-labs/atelier/pkg/atelier/v1/log"

	"github.com/atelier-labs/atelier/internal/api"
	"github.com/atelier-labs/atelier/internal/config"
	"github.com/atelier-labs/atelier/internal/effect"
	"github.com/atelier-labs/atelier/internal/events"
	"github.com/atelier-labs/atelier/internal/intent"
	"github.com/atelier-labs/atelier/internal/logger"
	"github.com/atelier-labs/atelier/internal/metrics"
	"github.com/atelier-labs/atelier/internal/prefs"
	"github.com/atelier-labs/atelier/internal/resource"
	intsecrets "github.com/atelier-labs/atelier/internal/secrets"
	"github.com/atelier-labs/atelier/internal/store"
	"github.com/atelier-labs/atelier/internal/tracing"
	atelsecrets "github.com/atelier-labs/atelier/pkg/atelier/v1/secrets"
)

const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitUsageError  = 2
	ExitTimeout     = 124
	ExitSigIntBase  = 128
	ExitSigInt      = ExitSigIntBase + int(syscall.SIGINT)
	ExitSigTerm     = ExitSigIntBase + int(syscall.SIGTERM)
	DefaultLogLevel = "info"
	DefaultLogFmt   = "text"
	DefaultTimeout  = 30 * time.Second
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "validate" {
		runValidateCommand(os.Args[2:])
		return
	}
	if len(os.Args) == 2 && (os.Args[1] == "--version" || os.Args[1] == "-version") {
		printVersion()
		os.Exit(ExitSuccess)
	}
	exitCode := runFetchCommand(os.Args[1:])
	os.Exit(exitCode)
}

func printVersion() {
	fmt.Printf("atelier version %s\n", version)
	fmt.Printf("commit: %s\n", commit)
	fmt.Printf("built: %s\n", buildDate)
	fmt.Printf("go version: %s\n", runtime.Version())
	fmt.Printf("os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func runValidateCommand(args []string) {
	validateFlags := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := validateFlags.String("config", "", "Path to the config YAML file to validate (required)")
	logLevel := validateFlags.String("log-level", DefaultLogLevel, "Log level for validation output (debug, info, warn, error)")

	validateFlags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s validate -config <path> [flags...]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Validates the structure and schema compatibility of an atelier config file.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		validateFlags.PrintDefaults()
	}

	if err := validateFlags.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing validate flags: %v\n", err)
		os.Exit(ExitUsageError)
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config flag is required for validation")
		validateFlags.Usage()
		os.Exit(ExitUsageError)
	}

	log := logger.NewLogger(*logLevel, "text", os.Stderr)
	log.Infof("Validating config: %s", *configPath)

	_, err := config.LoadConfigFromFile(*configPath)
	if err != nil {
		var validationErr *atelerrors.ValidationError
		var configErr *atelerrors.ConfigError
		if errors.As(err, &validationErr) {
			log.Errorf("Config validation failed:\n%s", validationErr.Error())
		} else if errors.As(err, &configErr) {
			log.Errorf("Config error:\n%s", configErr.Error())
		} else {
			log.Errorf("Failed to load or validate config: %v", err)
		}
		os.Exit(ExitFailure)
	}

	log.Infof("Config validation successful: %s", *configPath)
	os.Exit(ExitSuccess)
}

func runFetchCommand(args []string) int {
	fetchFlags := flag.NewFlagSet("atelier", flag.ExitOnError)
	configPath := fetchFlags.String("config", "", "Path to the config YAML file (required)")
	logLevel := fetchFlags.String("log-level", "", "Log level override (debug, info, warn, error)")
	logFormat := fetchFlags.String("log-format", "", "Log format override (text, json)")
	resourceName := fetchFlags.String("resource", "orders", "Resource to fetch (orders, proposals, persons, products, manufacturers, roles, permissions, users, materials, pieces, piece_images, proposal_item_piece_materials, references)")
	entityID := fetchFlags.Int64("id", 0, "Entity id for a detail fetch, or parent id for keyed resources")
	page := fetchFlags.Int("page", 0, "Page number for paginated resources")
	perPage := fetchFlags.Int("per-page", 0, "Page size for paginated resources")
	search := fetchFlags.String("search", "", "Search term for product lookup")
	refName := fetchFlags.String("name", "", "Reference list name")
	timeout := fetchFlags.Duration("timeout", DefaultTimeout, "Overall fetch timeout")
	versionFlag := fetchFlags.Bool("version", false, "Print version information and exit")

	fetchFlags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags...] -config <path>\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Fetches a resource from the backend and prints the resulting state snapshot.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fetchFlags.PrintDefaults()
	}

	if err := fetchFlags.Parse(args); err != nil {
		return ExitUsageError
	}

	if *versionFlag {
		printVersion()
		return ExitSuccess
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config flag is required")
		fetchFlags.Usage()
		return ExitUsageError
	}

	cfg, err := config.LoadConfigFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return ExitFailure
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	format := cfg.Logging.Format
	if *logFormat != "" {
		format = *logFormat
	}
	if format == "" {
		format = DefaultLogFmt
	}
	if format != "text" && format != "json" {
		fmt.Fprintln(os.Stderr, "Error: -log-format must be 'text' or 'json'")
		return ExitUsageError
	}

	var logWriter io.Writer = os.Stderr
	log := logger.NewLogger(level, format, logWriter)
	log = log.With("atelier_version", version)

	log.Infof("Atelier sync client v%s starting...", version)
	log.Debugf("Backend: %s", cfg.Server.BaseURL)

	userPrefs, _ := prefs.Load(cfg.Prefs.Path)
	if userPrefs.Debug.Enabled {
		log.Debugf("Debug preferences enabled")
	}

	tracker := intsecrets.NewSecretTracker()
	tokens := tokenProvider(userPrefs, tracker)

	eventBus := events.NewChannelEventBus(cfg.Events.BufferSize, log)
	defer eventBus.Close()
	metricsProvider := metrics.NewPrometheusRegistryProvider()
	collectors := metrics.NewStoreCollectors(metricsProvider.Registry())
	tracerProvider, err := tracing.NewProviderFromEnv(context.Background())
	if err != nil {
		log.Warnf("Failed to initialize tracing from environment: %v. Using NoOp tracer.", err)
		tracerProvider, _ = tracing.NewNoOpProvider()
	}

	st, err := store.NewStore(log,
		v1.WithEventBus(eventBus),
		v1.WithMetricsRegistryProvider(metricsProvider),
		v1.WithTracerProvider(tracerProvider),
	)
	if err != nil {
		log.Errorf("Failed to create store: %v", err)
		return ExitFailure
	}
	defer func() { _ = st.Close() }()

	clientOpts := []api.Option{
		api.WithTokenProvider(tokens),
		api.WithSecretTracker(tracker),
	}
	if d := cfg.ServerTimeout(); d > 0 {
		clientOpts = append(clientOpts, api.WithTimeout(d))
	}
	if cfg.Server.UserAgent != "" {
		clientOpts = append(clientOpts, api.WithUserAgent(cfg.Server.UserAgent))
	}
	client, err := api.NewClient(cfg.Server.BaseURL, clientOpts...)
	if err != nil {
		log.Errorf("Failed to create API client: %v", err)
		return ExitFailure
	}

	runner := effect.NewRunner(st, client, log, tracker)

	runCtx, cancelRun := context.WithTimeout(context.Background(), *timeout)
	defer cancelRun()

	listener := events.NewMetricsEventListener(eventBus, collectors, log)
	go listener.Start(runCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var receivedSignal os.Signal
	var sigMu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal: %v. Shutting down...", sig)
			sigMu.Lock()
			receivedSignal = sig
			sigMu.Unlock()
			cancelRun()
		case <-runCtx.Done():
		}
	}()
	defer wg.Wait()

	sub := st.Subscribe()

	execErr := dispatchFetch(runCtx, runner, *resourceName, resource.ID(*entityID), *page, *perPage, *search, *refName)
	if execErr != nil {
		log.Errorf("Invalid fetch request: %v", execErr)
		cancelRun()
		return ExitUsageError
	}

	exitCode := waitForResult(runCtx, log, st, sub, *resourceName)
	cancelRun()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if shutdownErr := tracerProvider.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warnf("Error shutting down tracer provider: %v", shutdownErr)
	}

	sigMu.Lock()
	finalSignal := receivedSignal
	sigMu.Unlock()
	if finalSignal != nil {
		switch finalSignal {
		case syscall.SIGINT:
			return ExitSigInt
		case syscall.SIGTERM:
			return ExitSigTerm
		}
	}
	return exitCode
}

// tokenProvider prefers the environment token; when the environment variable
// is unset, the token persisted in prefs serves as fallback.
func tokenProvider(p prefs.Prefs, tracker *intsecrets.SecretTracker) atelsecrets.Provider {
	if _, found := os.LookupEnv(intsecrets.TokenEnvVar); found {
		return intsecrets.NewEnvProvider()
	}
	if p.AuthToken != "" {
		tracker.Add(p.AuthToken)
		return intsecrets.NewStaticProvider(p.AuthToken)
	}
	return intsecrets.NewEnvProvider()
}

// dispatchFetch starts the requested fetch. It returns an error only for
// invalid argument combinations; request failures surface through state.
func dispatchFetch(ctx context.Context, runner *effect.Runner, name string, id resource.ID, page, perPage int, search, refName string) error {
	switch name {
	case "orders":
		if id != 0 {
			effect.FetchByID[resource.Order](ctx, runner, id)
		} else {
			effect.FetchAll[resource.Order](ctx, runner, intent.ListParams{})
		}
	case "proposals":
		if id != 0 {
			effect.FetchByID[resource.Proposal](ctx, runner, id)
		} else {
			runner.FetchProposals(ctx, page, perPage)
		}
	case "persons":
		if id != 0 {
			effect.FetchByID[resource.Person](ctx, runner, id)
		} else {
			effect.FetchAll[resource.Person](ctx, runner, intent.ListParams{})
		}
	case "products":
		if id != 0 {
			effect.FetchByID[resource.Product](ctx, runner, id)
		} else {
			runner.SearchProducts(ctx, search, perPage)
		}
	case "manufacturers":
		effect.FetchAll[resource.Manufacturer](ctx, runner, intent.ListParams{})
	case "roles":
		effect.FetchAll[resource.Role](ctx, runner, intent.ListParams{})
	case "permissions":
		effect.FetchAll[resource.Permission](ctx, runner, intent.ListParams{})
	case "users":
		effect.FetchAll[resource.User](ctx, runner, intent.ListParams{})
	case "materials":
		effect.FetchAll[resource.Material](ctx, runner, intent.ListParams{})
	case "pieces":
		if id == 0 {
			return fmt.Errorf("-id (product id) is required for pieces")
		}
		runner.FetchPieces(ctx, id)
	case "piece_images":
		if id == 0 {
			return fmt.Errorf("-id (piece id) is required for piece_images")
		}
		runner.FetchPieceImages(ctx, id)
	case "proposal_item_piece_materials":
		if id == 0 {
			return fmt.Errorf("-id (proposal item piece id) is required for proposal_item_piece_materials")
		}
		runner.FetchPieceMaterials(ctx, id)
	case "references":
		if refName == "" {
			return fmt.Errorf("-name is required for references")
		}
		runner.FetchReference(ctx, refName)
	default:
		return fmt.Errorf("unknown resource %q", name)
	}
	return nil
}

// waitForResult blocks until the requested resource's slice settles (loading
// raised by the request fold, then cleared by the terminal fold) or the
// context expires, then reports the outcome. Subscription signals coalesce,
// so each wakeup re-reads the snapshot rather than counting folds.
func waitForResult(ctx context.Context, log atellog.Logger, st *store.Store, sub <-chan struct{}, name string) int {
	for {
		select {
		case <-sub:
			loading, errMsg, count := snapshotSummary(st, name)
			if loading {
				continue
			}
			if errMsg != "" {
				log.Errorf("Fetch of %s failed: %s", name, errMsg)
				return ExitFailure
			}
			log.Infof("Fetched %s: %d item(s).", name, count)
			return ExitSuccess
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				log.Errorf("Fetch timed out.")
				return ExitTimeout
			}
			return ExitFailure
		}
	}
}

// snapshotSummary reads the slice for the named resource.
func snapshotSummary(st *store.Store, name string) (loading bool, errMsg string, count int) {
	switch name {
	case "orders":
		s := st.Orders()
		return s.Loading, s.Err, len(s.Items)
	case "proposals":
		s := st.Proposals()
		return s.Loading, s.Err, len(s.Items)
	case "persons":
		s := st.Persons()
		return s.Loading, s.Err, len(s.Items)
	case "products":
		s := st.Products()
		return s.Loading, s.Err, len(s.Items)
	case "manufacturers":
		s := st.Manufacturers()
		return s.Loading, s.Err, len(s.Items)
	case "roles":
		s := st.Roles()
		return s.Loading, s.Err, len(s.Items)
	case "permissions":
		s := st.Permissions()
		return s.Loading, s.Err, len(s.Items)
	case "users":
		s := st.Users()
		return s.Loading, s.Err, len(s.Items)
	case "materials":
		s := st.Materials()
		return s.Loading, s.Err, len(s.Items)
	case "pieces":
		s := st.Pieces()
		return s.Loading, s.Err, keyedCount(s.Children)
	case "piece_images":
		s := st.PieceImages()
		return s.Loading, s.Err, keyedCount(s.Children)
	case "proposal_item_piece_materials":
		s := st.PieceMaterials()
		return s.Loading, s.Err, keyedCount(s.Children)
	case "references":
		s := st.References()
		total := 0
		for _, values := range s.Lists {
			total += len(values)
		}
		return s.Loading, s.Err, total
	default:
		return false, fmt.Sprintf("unknown resource %q", name), 0
	}
}

func keyedCount[T resource.Child](children map[resource.ID][]T) int {
	total := 0
	for _, items := range children {
		total += len(items)
	}
	return total
}
