package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohmanhakim/booth-archiver/pkg/fileutil"
	"github.com/rohmanhakim/booth-archiver/pkg/hashutil"
	"github.com/spf13/viper"
)

const (
	SourceJSON = "json"
	SourceHTML = "html"

	BackendGoogle = "google"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"

	FetchCacheFile       = "fetch_cache.json"
	TranslationCacheFile = "translation_cache.json"

	defaultCookieFile = "cookie.txt"
)

type Config struct {
	//===============
	// Session
	//===============
	// Value of the storefront session cookie. Takes precedence over cookieFile.
	cookie string
	// File holding the session cookie, read when cookie is empty
	cookieFile string
	// Whether adult items are shown (adult=t cookie)
	adult bool

	//===============
	// Storefront
	//===============
	// Where item ids come from: the wishlist JSON or the wishlist HTML pages
	wishlistSource string
	// Named wishlist id; empty means the default wishlist
	wishlistID     string
	storefrontURL  string
	accountsURL    string
	storefrontLang string

	//===============
	// Output and caches
	//===============
	outputPath string
	cacheDir   string
	// Number of cache adds between automatic dumps
	flushEvery int
	// Reload a cache when its file is edited externally during a run
	watchCache bool
	hashAlgo   string

	//===============
	// Politeness
	//===============
	// Maximum number of worker goroutines fetching or translating concurrently
	concurrency int
	// Minimum, fixed waiting time you enforce between two HTTP requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Fetch
	//===============
	// Maximum time of a single request
	timeout   time.Duration
	userAgent string

	//===============
	// Translation
	//===============
	translate      bool
	targetLang     string
	backend        string
	googleEndpoint string
	openAIAPIKey   string
	openAIBaseURL  string
	openAIModel    string
	geminiAPIKey   string
	geminiBaseURL  string
	geminiModel    string
	// Consecutive backend failures before the circuit opens
	breakerMaxFailures uint32
	// How long an open circuit rejects calls before probing again
	breakerTimeout time.Duration

	//===============
	// Logging
	//===============
	logLevel      string
	logFormat     string
	logFile       string
	logMaxSizeMB  int
	logMaxBackups int
	logMaxAgeDays int
	logCompress   bool
}

type configDTO struct {
	Cookie         string `mapstructure:"cookie"`
	CookieFile     string `mapstructure:"cookieFile"`
	Adult          *bool  `mapstructure:"adult"`
	WishlistSource string `mapstructure:"wishlistSource"`
	WishlistID     string `mapstructure:"wishlistId"`
	StorefrontURL  string `mapstructure:"storefrontUrl"`
	AccountsURL    string `mapstructure:"accountsUrl"`
	StorefrontLang string `mapstructure:"storefrontLang"`

	OutputPath string `mapstructure:"outputPath"`
	CacheDir   string `mapstructure:"cacheDir"`
	FlushEvery int    `mapstructure:"flushEvery"`
	WatchCache bool   `mapstructure:"watchCache"`
	HashAlgo   string `mapstructure:"hashAlgo"`

	Concurrency            int           `mapstructure:"concurrency"`
	BaseDelay              time.Duration `mapstructure:"baseDelay"`
	Jitter                 time.Duration `mapstructure:"jitter"`
	RandomSeed             int64         `mapstructure:"randomSeed"`
	MaxAttempt             int           `mapstructure:"maxAttempt"`
	BackoffInitialDuration time.Duration `mapstructure:"backoffInitialDuration"`
	BackoffMultiplier      float64       `mapstructure:"backoffMultiplier"`
	BackoffMaxDuration     time.Duration `mapstructure:"backoffMaxDuration"`
	Timeout                time.Duration `mapstructure:"timeout"`
	UserAgent              string        `mapstructure:"userAgent"`

	Translate          *bool         `mapstructure:"translate"`
	TargetLang         string        `mapstructure:"targetLang"`
	Backend            string        `mapstructure:"backend"`
	GoogleEndpoint     string        `mapstructure:"googleEndpoint"`
	OpenAIAPIKey       string        `mapstructure:"openaiApiKey"`
	OpenAIBaseURL      string        `mapstructure:"openaiBaseUrl"`
	OpenAIModel        string        `mapstructure:"openaiModel"`
	GeminiAPIKey       string        `mapstructure:"geminiApiKey"`
	GeminiBaseURL      string        `mapstructure:"geminiBaseUrl"`
	GeminiModel        string        `mapstructure:"geminiModel"`
	BreakerMaxFailures uint32        `mapstructure:"breakerMaxFailures"`
	BreakerTimeout     time.Duration `mapstructure:"breakerTimeout"`

	LogLevel      string `mapstructure:"logLevel"`
	LogFormat     string `mapstructure:"logFormat"`
	LogFile       string `mapstructure:"logFile"`
	LogMaxSizeMB  int    `mapstructure:"logMaxSizeMb"`
	LogMaxBackups int    `mapstructure:"logMaxBackups"`
	LogMaxAgeDays int    `mapstructure:"logMaxAgeDays"`
	LogCompress   bool   `mapstructure:"logCompress"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault()

	// Pointer bools distinguish "absent" from an explicit false
	if dto.Adult != nil {
		cfg.adult = *dto.Adult
	}
	if dto.Translate != nil {
		cfg.translate = *dto.Translate
	}
	cfg.watchCache = dto.WatchCache
	cfg.logCompress = dto.LogCompress

	overlayString(&cfg.cookie, dto.Cookie)
	overlayString(&cfg.cookieFile, dto.CookieFile)
	overlayString(&cfg.wishlistSource, strings.ToLower(dto.WishlistSource))
	overlayString(&cfg.wishlistID, dto.WishlistID)
	overlayString(&cfg.storefrontURL, dto.StorefrontURL)
	overlayString(&cfg.accountsURL, dto.AccountsURL)
	overlayString(&cfg.storefrontLang, dto.StorefrontLang)
	overlayString(&cfg.outputPath, dto.OutputPath)
	overlayString(&cfg.cacheDir, dto.CacheDir)
	overlayString(&cfg.hashAlgo, dto.HashAlgo)
	overlayString(&cfg.userAgent, dto.UserAgent)
	overlayString(&cfg.targetLang, dto.TargetLang)
	overlayString(&cfg.backend, strings.ToLower(dto.Backend))
	overlayString(&cfg.googleEndpoint, dto.GoogleEndpoint)
	overlayString(&cfg.openAIAPIKey, dto.OpenAIAPIKey)
	overlayString(&cfg.openAIBaseURL, dto.OpenAIBaseURL)
	overlayString(&cfg.openAIModel, dto.OpenAIModel)
	overlayString(&cfg.geminiAPIKey, dto.GeminiAPIKey)
	overlayString(&cfg.geminiBaseURL, dto.GeminiBaseURL)
	overlayString(&cfg.geminiModel, dto.GeminiModel)
	overlayString(&cfg.logLevel, dto.LogLevel)
	overlayString(&cfg.logFormat, dto.LogFormat)
	overlayString(&cfg.logFile, dto.LogFile)

	if dto.FlushEvery != 0 {
		cfg.flushEvery = dto.FlushEvery
	}
	if dto.Concurrency != 0 {
		cfg.concurrency = dto.Concurrency
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.BreakerMaxFailures != 0 {
		cfg.breakerMaxFailures = dto.BreakerMaxFailures
	}
	if dto.BreakerTimeout != 0 {
		cfg.breakerTimeout = dto.BreakerTimeout
	}
	if dto.LogMaxSizeMB != 0 {
		cfg.logMaxSizeMB = dto.LogMaxSizeMB
	}
	if dto.LogMaxBackups != 0 {
		cfg.logMaxBackups = dto.LogMaxBackups
	}
	if dto.LogMaxAgeDays != 0 {
		cfg.logMaxAgeDays = dto.LogMaxAgeDays
	}

	return cfg.Build()
}

func overlayString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// WithConfigFile reads a JSON, YAML or TOML file (chosen by extension) and
// overlays its non-zero values on the defaults.
func WithConfigFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}

	switch ext := strings.ToLower(fileutil.GetFileExtension(path)); ext {
	case "json", "yaml", "yml", "toml":
	default:
		return Config{}, fmt.Errorf("%w: unsupported config format %q", ErrReadConfigFail, ext)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	cfgDTO := configDTO{}
	if err := v.Unmarshal(&cfgDTO); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		cookieFile:             defaultCookieFile,
		adult:                  true,
		wishlistSource:         SourceJSON,
		storefrontURL:          "https://booth.pm",
		accountsURL:            "https://accounts.booth.pm",
		storefrontLang:         "en",
		outputPath:             "wishlist.xlsx",
		cacheDir:               "cache",
		flushEvery:             100,
		watchCache:             false,
		hashAlgo:               "sha256",
		concurrency:            8,
		baseDelay:              500 * time.Millisecond,
		jitter:                 250 * time.Millisecond,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             5,
		backoffInitialDuration: 500 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     30 * time.Second,
		timeout:                30 * time.Second,
		userAgent:              "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
		translate:              true,
		targetLang:             "en",
		backend:                BackendGoogle,
		googleEndpoint:         "https://translate.googleapis.com/translate_a/single",
		openAIModel:            "gpt-4o-mini",
		geminiModel:            "gemini-2.0-flash",
		breakerMaxFailures:     5,
		breakerTimeout:         30 * time.Second,
		logLevel:               "info",
		logFormat:              "json",
		logMaxSizeMB:           100,
		logMaxBackups:          5,
		logMaxAgeDays:          28,
	}
	return &defaultConfig
}

func (c *Config) WithCookie(cookie string) *Config {
	c.cookie = cookie
	return c
}

func (c *Config) WithCookieFile(path string) *Config {
	c.cookieFile = path
	return c
}

func (c *Config) WithAdult(adult bool) *Config {
	c.adult = adult
	return c
}

func (c *Config) WithWishlistSource(source string) *Config {
	c.wishlistSource = strings.ToLower(source)
	return c
}

func (c *Config) WithWishlistID(id string) *Config {
	c.wishlistID = id
	return c
}

func (c *Config) WithStorefrontURL(u string) *Config {
	c.storefrontURL = u
	return c
}

func (c *Config) WithAccountsURL(u string) *Config {
	c.accountsURL = u
	return c
}

func (c *Config) WithStorefrontLang(lang string) *Config {
	c.storefrontLang = lang
	return c
}

func (c *Config) WithOutputPath(path string) *Config {
	c.outputPath = path
	return c
}

func (c *Config) WithCacheDir(dir string) *Config {
	c.cacheDir = dir
	return c
}

func (c *Config) WithFlushEvery(n int) *Config {
	c.flushEvery = n
	return c
}

func (c *Config) WithWatchCache(watch bool) *Config {
	c.watchCache = watch
	return c
}

func (c *Config) WithHashAlgo(algo string) *Config {
	c.hashAlgo = algo
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithTranslate(translate bool) *Config {
	c.translate = translate
	return c
}

func (c *Config) WithTargetLang(lang string) *Config {
	c.targetLang = lang
	return c
}

func (c *Config) WithBackend(backend string) *Config {
	c.backend = strings.ToLower(backend)
	return c
}

func (c *Config) WithGoogleEndpoint(endpoint string) *Config {
	c.googleEndpoint = endpoint
	return c
}

func (c *Config) WithOpenAI(apiKey, baseURL, model string) *Config {
	c.openAIAPIKey = apiKey
	c.openAIBaseURL = baseURL
	if model != "" {
		c.openAIModel = model
	}
	return c
}

func (c *Config) WithGemini(apiKey, baseURL, model string) *Config {
	c.geminiAPIKey = apiKey
	c.geminiBaseURL = baseURL
	if model != "" {
		c.geminiModel = model
	}
	return c
}

func (c *Config) WithBreaker(maxFailures uint32, timeout time.Duration) *Config {
	c.breakerMaxFailures = maxFailures
	c.breakerTimeout = timeout
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFormat(format string) *Config {
	c.logFormat = format
	return c
}

func (c *Config) WithLogFile(path string) *Config {
	c.logFile = path
	return c
}

func (c *Config) WithLogRotation(maxSizeMB, maxBackups, maxAgeDays int, compress bool) *Config {
	c.logMaxSizeMB = maxSizeMB
	c.logMaxBackups = maxBackups
	c.logMaxAgeDays = maxAgeDays
	c.logCompress = compress
	return c
}

func (c *Config) Build() (Config, error) {
	switch c.wishlistSource {
	case SourceJSON, SourceHTML:
	default:
		return Config{}, fmt.Errorf("%w: wishlistSource must be %q or %q, got %q", ErrInvalidConfig, SourceJSON, SourceHTML, c.wishlistSource)
	}
	switch c.backend {
	case BackendGoogle, BackendOpenAI, BackendGemini:
	default:
		return Config{}, fmt.Errorf("%w: unknown translator backend %q", ErrInvalidConfig, c.backend)
	}
	if _, err := hashutil.ParseHashAlgo(c.hashAlgo); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	if c.concurrency < 1 {
		return Config{}, fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.flushEvery < 1 {
		return Config{}, fmt.Errorf("%w: flushEvery must be at least 1", ErrInvalidConfig)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1", ErrInvalidConfig)
	}
	if c.outputPath == "" {
		return Config{}, fmt.Errorf("%w: outputPath cannot be empty", ErrInvalidConfig)
	}
	if c.cacheDir == "" {
		return Config{}, fmt.Errorf("%w: cacheDir cannot be empty", ErrInvalidConfig)
	}
	if c.translate && c.targetLang == "" {
		return Config{}, fmt.Errorf("%w: targetLang cannot be empty when translating", ErrInvalidConfig)
	}
	return *c, nil
}

// SessionCookie returns the configured cookie, reading cookieFile when no
// cookie was given directly. A missing default cookie file means an anonymous
// session; a missing file that was asked for explicitly is an error.
func (c Config) SessionCookie() (string, error) {
	if c.cookie != "" {
		return strings.TrimSpace(c.cookie), nil
	}
	if c.cookieFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.cookieFile)
	if err != nil {
		if os.IsNotExist(err) && c.cookieFile == defaultCookieFile {
			return "", nil
		}
		return "", fmt.Errorf("%w: %s", ErrReadCookieFail, err.Error())
	}
	return strings.TrimSpace(string(data)), nil
}

func (c Config) Cookie() string         { return c.cookie }
func (c Config) CookieFile() string     { return c.cookieFile }
func (c Config) Adult() bool            { return c.adult }
func (c Config) WishlistSource() string { return c.wishlistSource }
func (c Config) WishlistID() string     { return c.wishlistID }
func (c Config) StorefrontURL() string  { return c.storefrontURL }
func (c Config) AccountsURL() string    { return c.accountsURL }
func (c Config) StorefrontLang() string { return c.storefrontLang }

func (c Config) OutputPath() string { return c.outputPath }
func (c Config) CacheDir() string   { return c.cacheDir }
func (c Config) FlushEvery() int    { return c.flushEvery }
func (c Config) WatchCache() bool   { return c.watchCache }

func (c Config) HashAlgo() hashutil.HashAlgo {
	return hashutil.HashAlgo(c.hashAlgo)
}

func (c Config) FetchCachePath() string {
	return filepath.Join(c.cacheDir, FetchCacheFile)
}

func (c Config) TranslationCachePath() string {
	return filepath.Join(c.cacheDir, TranslationCacheFile)
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) Translate() bool               { return c.translate }
func (c Config) TargetLang() string            { return c.targetLang }
func (c Config) Backend() string               { return c.backend }
func (c Config) GoogleEndpoint() string        { return c.googleEndpoint }
func (c Config) OpenAIAPIKey() string          { return c.openAIAPIKey }
func (c Config) OpenAIBaseURL() string         { return c.openAIBaseURL }
func (c Config) OpenAIModel() string           { return c.openAIModel }
func (c Config) GeminiAPIKey() string          { return c.geminiAPIKey }
func (c Config) GeminiBaseURL() string         { return c.geminiBaseURL }
func (c Config) GeminiModel() string           { return c.geminiModel }
func (c Config) BreakerMaxFailures() uint32    { return c.breakerMaxFailures }
func (c Config) BreakerTimeout() time.Duration { return c.breakerTimeout }

func (c Config) LogLevel() string   { return c.logLevel }
func (c Config) LogFormat() string  { return c.logFormat }
func (c Config) LogFile() string    { return c.logFile }
func (c Config) LogMaxSizeMB() int  { return c.logMaxSizeMB }
func (c Config) LogMaxBackups() int { return c.logMaxBackups }
func (c Config) LogMaxAgeDays() int { return c.logMaxAgeDays }
func (c Config) LogCompress() bool  { return c.logCompress }
