package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/dnd-navigator/internal/build"
	"github.com/rohmanhakim/dnd-navigator/internal/cachestore"
	"github.com/rohmanhakim/dnd-navigator/internal/config"
	"github.com/rohmanhakim/dnd-navigator/internal/fetcher"
	"github.com/rohmanhakim/dnd-navigator/internal/metadata"
	"github.com/rohmanhakim/dnd-navigator/internal/prefetch"
	"github.com/rohmanhakim/dnd-navigator/internal/search"
)

var (
	cfgFile            string
	baseURL            string
	ttlHours           int
	persistent         bool
	cacheDir           string
	prefetchCategories []string
	concurrency        int
	timeout            time.Duration
	userAgent          string
	maxAttempt         int
	jitter             time.Duration
	randomSeed         int64
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dnd-navigator",
	Short: "A caching navigator for D&D 5e reference data.",
	Long: `dnd-navigator is a CLI application that reads D&D 5e reference data
from the public dnd5eapi.co API through a TTL cache, with optional durable
persistence, background warm-up of hot categories, and relevance search
across every category.

Every read goes through the cache; unexpired data never costs a second
upstream call.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "base URL of the reference-data API")
	rootCmd.PersistentFlags().IntVar(&ttlHours, "ttl-hours", 0, "cache entry lifetime in hours")
	rootCmd.PersistentFlags().BoolVar(&persistent, "persistent", false, "write cache entries through to disk")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "root directory for durable cache entries")
	rootCmd.PersistentFlags().StringArrayVar(&prefetchCategories, "prefetch", []string{}, "category to warm at startup (can be repeated)")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "maximum in-flight item fetches per warmed category")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().IntVar(&maxAttempt, "max-attempt", 0, "maximum attempts per upstream request")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to retry backoff")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")

	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List every category the upstream API exposes",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime(InitConfig())
		records, err := rt.apiFetcher.FetchCategories(cmd.Context())
		if err != nil {
			exitWithError(err)
		}
		printJSON(records)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <category> [index]",
	Short: "Fetch a category listing or one item through the cache",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime(InitConfig())
		category := args[0]

		if len(args) == 1 {
			items, err := rt.apiFetcher.FetchCategoryList(cmd.Context(), category)
			if err != nil {
				exitWithError(err)
			}
			printJSON(items)
			return
		}

		index := args[1]
		detail, err := rt.apiFetcher.FetchItem(cmd.Context(), category, index)
		if err != nil {
			if fetcher.IsNotFound(err) {
				// Absent data is an answer, not a failure
				fmt.Printf("%s/%s does not exist upstream\n", category, index)
				return
			}
			exitWithError(err)
		}
		printJSON(detail)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank every known entity against a free-text query",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime(InitConfig())
		result, err := rt.engine.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			exitWithError(err)
		}
		printJSON(result)
	},
}

var warmCmd = &cobra.Command{
	Use:   "warm [category...]",
	Short: "Warm the cache for hot categories and wait for completion",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := InitConfig()
		rt := newRuntime(cfg)

		categories := args
		if len(categories) == 0 {
			categories = cfg.PrefetchCategories()
		}

		rt.prefetcher.Warm(cmd.Context(), categories)
		rt.prefetcher.Drain()
		fmt.Printf("Warmed %s (%d entries cached)\n", strings.Join(categories, ", "), rt.store.Size())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe the upstream API and report availability",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime(InitConfig())
		report := rt.apiFetcher.CheckStatus(cmd.Context())
		printJSON(report)
		if !report.Online {
			os.Exit(1)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(build.FullVersion())
	},
}

// runtime ties the components together. Every subcommand builds exactly one
// runtime; nothing lives in package-level state.
type runtime struct {
	cfg        config.Config
	recorder   *metadata.Recorder
	store      *cachestore.Store
	apiFetcher *fetcher.ApiFetcher
	prefetcher *prefetch.Prefetcher
	engine     *search.Engine
}

func newRuntime(cfg config.Config) *runtime {
	recorder := metadata.NewRecorder("cli")
	store := cachestore.NewStore(cfg.TTL(), cfg.Persistent(), cfg.CacheDir(), &recorder)
	apiFetcher := fetcher.NewApiFetcher(cfg, store, &recorder)
	return &runtime{
		cfg:        cfg,
		recorder:   &recorder,
		store:      store,
		apiFetcher: apiFetcher,
		prefetcher: prefetch.NewPrefetcher(apiFetcher, &recorder, &recorder, cfg.PrefetchConcurrency()),
		engine:     search.NewEngine(apiFetcher, &recorder),
	}
}

func printJSON(value any) {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		exitWithError(err)
	}
	fmt.Println(string(encoded))
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}

// InitConfig builds the effective config from flags or a config file.
func InitConfig() config.Config {
	cfg, err := InitConfigWithError()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError builds the effective config, returning any errors.
// This makes it easier to test error cases.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		fmt.Printf("Initializing config from file: %s\n", cfgFile)
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	// Start with the default config and apply flag overrides using
	// method chaining
	configBuilder := config.WithDefault()

	if baseURL != "" {
		configBuilder = configBuilder.WithBaseURL(baseURL)
	}

	if ttlHours > 0 {
		configBuilder = configBuilder.WithTTLHours(ttlHours)
	}

	if persistent {
		configBuilder = configBuilder.WithPersistent(persistent)
	}

	if cacheDir != "" {
		configBuilder = configBuilder.WithCacheDir(cacheDir)
	}

	if len(prefetchCategories) > 0 {
		configBuilder = configBuilder.WithPrefetchCategories(prefetchCategories)
	}

	if concurrency > 0 {
		configBuilder = configBuilder.WithPrefetchConcurrency(concurrency)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}

	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}

	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	baseURL = ""
	ttlHours = 0
	persistent = false
	cacheDir = ""
	prefetchCategories = []string{}
	concurrency = 0
	timeout = 0
	userAgent = ""
	maxAttempt = 0
	jitter = 0
	randomSeed = 0
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetBaseURLForTest(u string) {
	baseURL = u
}

func SetTTLHoursForTest(hours int) {
	ttlHours = hours
}

func SetPersistentForTest(p bool) {
	persistent = p
}

func SetCacheDirForTest(dir string) {
	cacheDir = dir
}

func SetPrefetchCategoriesForTest(categories []string) {
	prefetchCategories = categories
}

func SetConcurrencyForTest(conc int) {
	concurrency = conc
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetMaxAttemptForTest(attempts int) {
	maxAttempt = attempts
}

func SetJitterForTest(j time.Duration) {
	jitter = j
}

func SetRandomSeedForTest(seed int64) {
	randomSeed = seed
}
