package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/storage"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port            string
	DatabasePath    string
	UploadDir       string
	StaticDir       string
	MetricsEnabled  bool
	MetricsPort     string
	LogStaticFiles  bool
	LogHealthChecks bool
	LogLevel        string
	LogFormat       string
	Debug           string

	MaxUploadFiles  int
	MaxUploadSizeMB int
	ThumbnailSize   int
	VipsEnabled     bool
	SeedPassword    string

	Storage storage.Config
}

// MaxUploadBytes returns the per-file upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

// defaults lists every configuration key with its default value. Keys are
// the lowercase form of the environment variable names.
var defaults = map[string]interface{}{
	"port":                  "3000",
	"database_path":         "./data/database.sqlite",
	"upload_dir":            "./uploads",
	"static_dir":            "",
	"metrics_enabled":       true,
	"metrics_port":          "9090",
	"log_static_files":      false,
	"log_health_checks":     false,
	"log_level":             "info",
	"log_format":            "console",
	"debug":                 "",
	"max_upload_files":      10,
	"max_upload_size_mb":    50,
	"thumbnail_size":        300,
	"vips_enabled":          true,
	"seed_password":         "05240126",
	"cos_secret_id":         "",
	"cos_secret_key":        "",
	"cos_bucket_name":       "",
	"cos_domain":            "",
	"cos_region":            "ap-beijing",
	"cos_endpoint":          "",
	"cos_access_type":       storage.AccessPublic,
	"cos_use_ssl":           true,
	"cos_signed_url_expiry": "1h",
}

// newViper builds the configuration source: defaults, an optional
// config.yaml in configDir, and environment variables on top.
func newViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logging.Debug("  No config.yaml found, using environment and defaults")
	} else {
		logging.Debug("  Config file: %s", v.ConfigFileUsed())
	}

	v.AutomaticEnv()
	return v, nil
}

// LoadEnv loads a .env file into the process environment. A missing file
// is not an error; variables already set are never overridden. Call it
// before anything logs or reads the environment.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	logging.Debug("  Loaded environment from %s", path)
	return nil
}

// ReadConfig resolves configuration from .env, config.yaml and environment
// variables, then applies the log settings. It prints nothing but warnings,
// so command-line tools share the server's view of paths and secrets.
func ReadConfig() (*Config, error) {
	if err := LoadEnv(".env"); err != nil {
		logging.Warn("  %v", err)
	}

	v, err := newViper(os.Getenv("CONFIG_DIR"))
	if err != nil {
		return nil, err
	}

	config, err := configFromViper(v)
	if err != nil {
		return nil, err
	}
	logging.Configure(config.Debug, config.LogLevel, config.LogFormat)

	return config, nil
}

// LoadConfig loads and validates configuration from .env, config.yaml and
// environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config, err := ReadConfig()
	if err != nil {
		return nil, err
	}
	logConfig(config)

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := prepareDirectories(config); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Object storage: %s", enabledString(config.Storage.Configured()))
	logging.Info("    libvips:        %s", enabledString(config.VipsEnabled))
	logging.Info("    Static files:   %s", enabledString(config.StaticDir != ""))
	logging.Info("    Metrics:        %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// configFromViper reads and validates every setting.
func configFromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		Port:            strings.TrimSpace(v.GetString("port")),
		DatabasePath:    v.GetString("database_path"),
		UploadDir:       v.GetString("upload_dir"),
		StaticDir:       v.GetString("static_dir"),
		MetricsEnabled:  v.GetBool("metrics_enabled"),
		MetricsPort:     strings.TrimSpace(v.GetString("metrics_port")),
		LogStaticFiles:  v.GetBool("log_static_files"),
		LogHealthChecks: v.GetBool("log_health_checks"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		Debug:           v.GetString("debug"),
		MaxUploadFiles:  v.GetInt("max_upload_files"),
		MaxUploadSizeMB: v.GetInt("max_upload_size_mb"),
		ThumbnailSize:   v.GetInt("thumbnail_size"),
		VipsEnabled:     v.GetBool("vips_enabled"),
		SeedPassword:    v.GetString("seed_password"),
		Storage: storage.Config{
			SecretID:   v.GetString("cos_secret_id"),
			SecretKey:  v.GetString("cos_secret_key"),
			Bucket:     v.GetString("cos_bucket_name"),
			Domain:     v.GetString("cos_domain"),
			Region:     v.GetString("cos_region"),
			Endpoint:   v.GetString("cos_endpoint"),
			AccessType: strings.ToLower(v.GetString("cos_access_type")),
			UseSSL:     v.GetBool("cos_use_ssl"),
		},
	}

	if err := validatePort("PORT", config.Port); err != nil {
		return nil, err
	}
	if config.MetricsEnabled {
		if err := validatePort("METRICS_PORT", config.MetricsPort); err != nil {
			return nil, err
		}
		if config.MetricsPort == config.Port {
			return nil, fmt.Errorf("METRICS_PORT must differ from PORT (%s)", config.Port)
		}
	}

	if config.MaxUploadFiles <= 0 {
		logging.Warn("  Invalid MAX_UPLOAD_FILES, using default: 10")
		config.MaxUploadFiles = 10
	}
	if config.MaxUploadSizeMB <= 0 {
		logging.Warn("  Invalid MAX_UPLOAD_SIZE_MB, using default: 50")
		config.MaxUploadSizeMB = 50
	}
	if config.ThumbnailSize <= 0 {
		logging.Warn("  Invalid THUMBNAIL_SIZE, using default: 300")
		config.ThumbnailSize = 300
	}

	switch config.Storage.AccessType {
	case storage.AccessPublic, storage.AccessPrivate:
	default:
		logging.Warn("  Invalid COS_ACCESS_TYPE %q, using default: public", config.Storage.AccessType)
		config.Storage.AccessType = storage.AccessPublic
	}

	expiry, err := time.ParseDuration(v.GetString("cos_signed_url_expiry"))
	if err != nil || expiry <= 0 {
		logging.Warn("  Invalid COS_SIGNED_URL_EXPIRY, using default: 1h")
		expiry = time.Hour
	}
	config.Storage.SignedExpiry = expiry

	return config, nil
}

func validatePort(name, value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid %s: %q", name, value)
	}
	return nil
}

func logConfig(c *Config) {
	logging.Info("  PORT:                  %s", c.Port)
	logging.Info("  DATABASE_PATH:         %s", c.DatabasePath)
	logging.Info("  UPLOAD_DIR:            %s", c.UploadDir)
	logging.Info("  STATIC_DIR:            %s", valueOrNone(c.StaticDir))
	logging.Info("  METRICS_ENABLED:       %v", c.MetricsEnabled)
	logging.Info("  METRICS_PORT:          %s", c.MetricsPort)
	logging.Info("  LOG_STATIC_FILES:      %v", c.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:     %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())
	logging.Info("  LOG_FORMAT:            %s", c.LogFormat)
	logging.Info("  MAX_UPLOAD_FILES:      %d", c.MaxUploadFiles)
	logging.Info("  MAX_UPLOAD_SIZE_MB:    %d", c.MaxUploadSizeMB)
	logging.Info("  THUMBNAIL_SIZE:        %d", c.ThumbnailSize)
	logging.Info("  VIPS_ENABLED:          %v", c.VipsEnabled)
	logging.Info("  SEED_PASSWORD:         %s", maskSecret(c.SeedPassword))
	logging.Info("")
	logging.Info("  Object storage:")
	logging.Info("    COS_SECRET_ID:         %s", maskSecret(c.Storage.SecretID))
	logging.Info("    COS_SECRET_KEY:        %s", maskSecret(c.Storage.SecretKey))
	logging.Info("    COS_BUCKET_NAME:       %s", valueOrNone(c.Storage.Bucket))
	logging.Info("    COS_REGION:            %s", c.Storage.Region)
	logging.Info("    COS_ENDPOINT:          %s", valueOrNone(c.Storage.Endpoint))
	logging.Info("    COS_DOMAIN:            %s", valueOrNone(c.Storage.Domain))
	logging.Info("    COS_ACCESS_TYPE:       %s", c.Storage.AccessType)
	logging.Info("    COS_USE_SSL:           %v", c.Storage.UseSSL)
	logging.Info("    COS_SIGNED_URL_EXPIRY: %v", c.Storage.SignedExpiry)
}

// prepareDirectories resolves paths to absolute form and makes sure the
// database and upload directories exist and are writable.
func prepareDirectories(c *Config) error {
	var err error

	c.DatabasePath, err = filepath.Abs(c.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to resolve database path: %w", err)
	}
	logging.Info("  Database file (absolute): %s", c.DatabasePath)

	c.UploadDir, err = filepath.Abs(c.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to resolve upload directory path: %w", err)
	}
	logging.Info("  Upload directory (absolute): %s", c.UploadDir)

	databaseDir := filepath.Dir(c.DatabasePath)
	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if err := ensureDirectory(filepath.Join(c.UploadDir, "thumbnails"), "upload"); err != nil {
		return fmt.Errorf("upload directory error: %w", err)
	}
	if err := testWriteAccess(c.UploadDir); err != nil {
		return fmt.Errorf("upload directory is not writable: %w", err)
	}
	logging.Info("  [OK] Upload directory is writable")

	if c.StaticDir != "" {
		c.StaticDir = checkOptionalDir(c.StaticDir, "static")
	}
	return nil
}

// checkOptionalDir returns the absolute path of an existing directory, or
// an empty string when it cannot be used.
func checkOptionalDir(path, name string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		logging.Warn("  Failed to resolve %s directory %s: %v", name, path, err)
		return ""
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		logging.Warn("  %s directory %s is not available, serving disabled", name, abs)
		return ""
	}

	logging.Info("  [OK] Serving %s files from %s", name, abs)
	return abs
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func valueOrNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// maskSecret shows at most the first four characters of a secret.
func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 4:
		return "****"
	default:
		return s[:4] + "****"
	}
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogMediaInit logs the thumbnail backend selection
func LogMediaInit(vipsEnabled bool, vipsErr error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA PROCESSING")
	logging.Info("------------------------------------------------------------")

	switch {
	case !vipsEnabled:
		logging.Info("  libvips disabled, thumbnails use imaging")
	case vipsErr != nil:
		logging.Warn("  libvips unavailable: %v", vipsErr)
		logging.Warn("  Thumbnails will use imaging")
	default:
		logging.Info("  [OK] Thumbnails use libvips")
	}
}

// LogStorageInit logs the object storage mode
func LogStorageInit(cfg storage.Config, enabled bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("OBJECT STORAGE")
	logging.Info("------------------------------------------------------------")

	if !enabled {
		logging.Info("  Object storage not configured")
		logging.Info("  Uploads are served from the local upload directory")
		return
	}
	logging.Info("  [OK] Uploading to bucket %s (%s access)", cfg.Bucket, cfg.AccessType)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			// Prefix-only routes such as the static file server
			pathTemplate, err = route.GetPathRegexp()
			if err != nil {
				return nil
			}
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    ______                _ __         ___    ____
   / ____/___ _____ ___  (_) /_  __   /   |  / / /_  __  ______ ___
  / /_  / __ '/ __ '__ \/ / / / / /  / /| | / / __ \/ / / / __ '__ \
 / __/ / /_/ / / / / / / / / /_/ /  / ___ |/ / /_/ / /_/ / / / / / /
/_/    \__,_/_/ /_/ /_/_/_/\__, /  /_/  |_/_/_.___/\__,_/_/ /_/ /_/
                          /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
