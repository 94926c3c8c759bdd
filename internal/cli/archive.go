package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/config"
	"github.com/rohmanhakim/booth-archiver/internal/logging"
	"github.com/rohmanhakim/booth-archiver/internal/scheduler"
	"github.com/spf13/cobra"
)

var (
	cookie         string
	cookieFile     string
	noAdult        bool
	wishlistSource string
	wishlistID     string
	storefrontURL  string
	accountsURL    string
	storefrontLang string
	outputPath     string
	cacheDir       string
	flushEvery     int
	watchCache     bool
	concurrency    int
	noTranslate    bool
	targetLang     string
	backendName    string
	googleEndpoint string
	openAIModel    string
	openAIBaseURL  string
	geminiModel    string
	geminiBaseURL  string
	userAgent      string
	timeout        time.Duration
	baseDelay      time.Duration
	jitter         time.Duration
	randomSeed     int64
	maxAttempt     int
	hashAlgo       string
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive the wishlist into a workbook.",
	Long: `Reads the wishlist, fetches every item, translates the configured fields
and writes the workbook. The session cookie is read from --cookie, from
BOOTH_COOKIE, or from --cookie-file (cookie.txt by default).

API keys for the LLM translators are read from BOOTH_OPENAI_API_KEY and
BOOTH_GEMINI_API_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		logger, err := logging.InitLogger(loggingOptions(cfg))
		if err != nil {
			return err
		}
		entry := logger.WithFields(logging.BaseFields("archive", cfgFile))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		s := scheduler.NewScheduler(cfg, entry)
		execution, runErr := s.ExecuteArchive(ctx)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run: %s\n", s.Recorder().RunID())
		fmt.Fprintf(out, "Items: %d, rows written: %d, errors: %d\n", execution.Items, len(execution.Rows), len(execution.Errors))
		fmt.Fprintf(out, "Fetch cache: %s\n", execution.FetchStats)
		fmt.Fprintf(out, "Translation cache: %s\n", execution.TranslationStats)
		if execution.WorkbookHash != "" {
			fmt.Fprintf(out, "Workbook: %s (%s %s)\n", execution.WorkbookPath, cfg.HashAlgo(), execution.WorkbookHash)
		}
		fmt.Fprintf(out, "Duration: %v\n", execution.Duration.Round(time.Millisecond))
		return runErr
	},
}

func init() {
	f := archiveCmd.Flags()
	f.StringVar(&cookie, "cookie", "", "value of the _plaza_session_nktz7u session cookie")
	f.StringVar(&cookieFile, "cookie-file", "", "file holding the session cookie (default cookie.txt)")
	f.BoolVar(&noAdult, "no-adult", false, "hide adult items")
	f.StringVar(&wishlistSource, "wishlist-source", "", "read item ids from the wishlist json or html pages")
	f.StringVar(&wishlistID, "wishlist-id", "", "named wishlist id (default: the main wishlist)")
	f.StringVar(&storefrontURL, "storefront-url", "", "storefront base url")
	f.StringVar(&accountsURL, "accounts-url", "", "accounts base url serving the wishlist")
	f.StringVar(&storefrontLang, "storefront-lang", "", "storefront language path segment")
	f.StringVarP(&outputPath, "output", "o", "", "workbook path")
	f.StringVar(&cacheDir, "cache-dir", "", "directory holding the fetch and translation caches")
	f.IntVar(&flushEvery, "flush-every", 0, "cache adds between automatic dumps")
	f.BoolVar(&watchCache, "watch-cache", false, "reload a cache file edited during the run")
	f.IntVar(&concurrency, "concurrency", 0, "number of concurrent fetch and translation workers")
	f.BoolVar(&noTranslate, "no-translate", false, "skip translation")
	f.StringVar(&targetLang, "target-lang", "", "translation target language code")
	f.StringVar(&backendName, "backend", "", "translation backend: google, openai or gemini")
	f.StringVar(&googleEndpoint, "google-endpoint", "", "google translate endpoint")
	f.StringVar(&openAIModel, "openai-model", "", "OpenAI chat model")
	f.StringVar(&openAIBaseURL, "openai-base-url", "", "OpenAI compatible API base url")
	f.StringVar(&geminiModel, "gemini-model", "", "Gemini model")
	f.StringVar(&geminiBaseURL, "gemini-base-url", "", "Gemini API base url")
	f.StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	f.DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests")
	f.DurationVar(&baseDelay, "base-delay", 0, "base delay between HTTP requests to the same host")
	f.DurationVar(&jitter, "jitter", 0, "random jitter added to base delay")
	f.Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	f.IntVar(&maxAttempt, "max-attempt", 0, "attempts per request before giving up")
	f.StringVar(&hashAlgo, "hash-algo", "", "content hash: sha256 or blake3")
}

// InitConfigWithError builds the run configuration: defaults, then the
// config file if given, then environment secrets, then CLI flags.
func InitConfigWithError() (config.Config, error) {
	configBuilder := config.WithDefault()
	if cfgFile != "" {
		fileCfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		configBuilder = &fileCfg
	}

	env := newEnv()
	if v := env.GetString("cookie"); v != "" {
		configBuilder = configBuilder.WithCookie(v)
	}
	if v := env.GetString("openai_api_key"); v != "" {
		configBuilder = configBuilder.WithOpenAI(v, configBuilder.OpenAIBaseURL(), "")
	}
	if v := env.GetString("gemini_api_key"); v != "" {
		configBuilder = configBuilder.WithGemini(v, configBuilder.GeminiBaseURL(), "")
	}

	if cookie != "" {
		configBuilder = configBuilder.WithCookie(cookie)
	}
	if cookieFile != "" {
		configBuilder = configBuilder.WithCookieFile(cookieFile)
	}
	if noAdult {
		configBuilder = configBuilder.WithAdult(false)
	}
	if wishlistSource != "" {
		configBuilder = configBuilder.WithWishlistSource(wishlistSource)
	}
	if wishlistID != "" {
		configBuilder = configBuilder.WithWishlistID(wishlistID)
	}
	if storefrontURL != "" {
		configBuilder = configBuilder.WithStorefrontURL(storefrontURL)
	}
	if accountsURL != "" {
		configBuilder = configBuilder.WithAccountsURL(accountsURL)
	}
	if storefrontLang != "" {
		configBuilder = configBuilder.WithStorefrontLang(storefrontLang)
	}
	if outputPath != "" {
		configBuilder = configBuilder.WithOutputPath(outputPath)
	}
	if cacheDir != "" {
		configBuilder = configBuilder.WithCacheDir(cacheDir)
	}
	if flushEvery > 0 {
		configBuilder = configBuilder.WithFlushEvery(flushEvery)
	}
	if watchCache {
		configBuilder = configBuilder.WithWatchCache(true)
	}
	if concurrency > 0 {
		configBuilder = configBuilder.WithConcurrency(concurrency)
	}
	if noTranslate {
		configBuilder = configBuilder.WithTranslate(false)
	}
	if targetLang != "" {
		configBuilder = configBuilder.WithTargetLang(targetLang)
	}
	if backendName != "" {
		configBuilder = configBuilder.WithBackend(backendName)
	}
	if googleEndpoint != "" {
		configBuilder = configBuilder.WithGoogleEndpoint(googleEndpoint)
	}
	if openAIModel != "" || openAIBaseURL != "" {
		baseURL := configBuilder.OpenAIBaseURL()
		if openAIBaseURL != "" {
			baseURL = openAIBaseURL
		}
		configBuilder = configBuilder.WithOpenAI(configBuilder.OpenAIAPIKey(), baseURL, openAIModel)
	}
	if geminiModel != "" || geminiBaseURL != "" {
		baseURL := configBuilder.GeminiBaseURL()
		if geminiBaseURL != "" {
			baseURL = geminiBaseURL
		}
		configBuilder = configBuilder.WithGemini(configBuilder.GeminiAPIKey(), baseURL, geminiModel)
	}
	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}
	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}
	if baseDelay > 0 {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}
	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}
	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}
	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}
	if hashAlgo != "" {
		configBuilder = configBuilder.WithHashAlgo(hashAlgo)
	}
	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}
	if logFile != "" {
		configBuilder = configBuilder.WithLogFile(logFile)
	}
	if logFormat != "" {
		configBuilder = configBuilder.WithLogFormat(logFormat)
	}

	return configBuilder.Build()
}

func loggingOptions(cfg config.Config) logging.Options {
	return logging.Options{
		Level:      cfg.LogLevel(),
		Format:     cfg.LogFormat(),
		FilePath:   cfg.LogFile(),
		MaxSizeMB:  cfg.LogMaxSizeMB(),
		MaxBackups: cfg.LogMaxBackups(),
		MaxAgeDays: cfg.LogMaxAgeDays(),
		Compress:   cfg.LogCompress(),
	}
}

// ResetFlags resets all flag variables to their zero values.
// This is primarily intended for testing purposes.
func ResetFlags() {
	cfgFile = ""
	logLevel = ""
	logFile = ""
	logFormat = ""
	cookie = ""
	cookieFile = ""
	noAdult = false
	wishlistSource = ""
	wishlistID = ""
	storefrontURL = ""
	accountsURL = ""
	storefrontLang = ""
	outputPath = ""
	cacheDir = ""
	flushEvery = 0
	watchCache = false
	concurrency = 0
	noTranslate = false
	targetLang = ""
	backendName = ""
	googleEndpoint = ""
	openAIModel = ""
	openAIBaseURL = ""
	geminiModel = ""
	geminiBaseURL = ""
	userAgent = ""
	timeout = 0
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	maxAttempt = 0
	hashAlgo = ""
	cacheHashAlgo = "sha256"
}

func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetCookieForTest(value string) {
	cookie = value
}

func SetCookieFileForTest(path string) {
	cookieFile = path
}

func SetNoAdultForTest(v bool) {
	noAdult = v
}

func SetWishlistSourceForTest(source string) {
	wishlistSource = source
}

func SetOutputPathForTest(path string) {
	outputPath = path
}

func SetCacheDirForTest(dir string) {
	cacheDir = dir
}

func SetConcurrencyForTest(conc int) {
	concurrency = conc
}

func SetNoTranslateForTest(v bool) {
	noTranslate = v
}

func SetBackendForTest(name string) {
	backendName = name
}

func SetOpenAIModelForTest(model string) {
	openAIModel = model
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetLogLevelForTest(level string) {
	logLevel = level
}
