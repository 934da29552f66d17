package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/orderband/internal/domain"
)

const (
	CatalogNone   = "none"
	CatalogSQL    = "sql"
	CatalogRedis  = "redis"
	CatalogStatic = "static"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	OutputText = "text"
	OutputJSON = "json"

	dateLayout = "2006-01-02"

	defaultWorkers     = 4
	defaultDriver      = DriverSQLite
	defaultDSN         = "orderband.db"
	defaultCatalog     = CatalogSQL
	defaultRedisKey    = "orderband:catalog"
	defaultJournalDir  = "./wal/reports"
	defaultWatchCron   = "0 0 6 * * *"
	defaultMetricsAddr = ":9090"
	defaultWebAddr     = ":8080"
)

type Config struct {
	Accounts []string
	Params   domain.AnalysisParams
	Workers  int
	// AsOf is the analysis date; zero means today, decided by the caller.
	AsOf  time.Time
	Since time.Time

	Driver string
	DSN    string

	Catalog       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
	StaticPrices  map[string]decimal.Decimal

	// JournalDir is where reports are journaled; empty disables the journal.
	JournalDir  string
	WatchCron   string
	MetricsAddr string
	// WebAddr serves journaled reports in watch mode; empty disables it.
	WebAddr string
	Output  string
}

type ConfigTmp struct {
	Accounts      []string          `yaml:"accounts"`
	PeriodDaysStr string            `yaml:"period_days,omitempty"`
	WindowDaysStr string            `yaml:"window_days,omitempty"`
	BBWindowStr   string            `yaml:"bb_window,omitempty"`
	BBKStr        string            `yaml:"bb_k,omitempty"`
	RSIWindowStr  string            `yaml:"rsi_window,omitempty"`
	WorkersStr    string            `yaml:"workers,omitempty"`
	Since         string            `yaml:"since,omitempty"`
	Driver        string            `yaml:"driver,omitempty"`
	DSN           string            `yaml:"dsn,omitempty"`
	Catalog       string            `yaml:"catalog,omitempty"`
	RedisAddr     string            `yaml:"redis_addr,omitempty"`
	RedisPassword string            `yaml:"redis_password,omitempty"`
	RedisDB       int               `yaml:"redis_db,omitempty"`
	RedisKey      string            `yaml:"redis_key,omitempty"`
	Prices        map[string]string `yaml:"prices,omitempty"`
	JournalDir    *string           `yaml:"journal_dir,omitempty"`
	WatchCron     string            `yaml:"watch_cron,omitempty"`
	MetricsAddr   string            `yaml:"metrics_addr,omitempty"`
	WebAddr       *string           `yaml:"web_addr,omitempty"`
}

// Get builds the configuration from args: a --config YAML file when given, otherwise
// defaults; flags set explicitly on the command line override either, and ORDERBAND_*
// environment variables override everything.
func Get(args []string) (Config, error) {
	fs := flag.NewFlagSet("orderband", flag.ContinueOnError)
	path := fs.String("config", "", "path to yaml config")
	accounts := fs.String("account", "", "comma-separated account ids to analyze")
	periodDays := fs.Int("period-days", domain.DefaultPeriodDays, "candle length in days")
	windowDays := fs.Int("window-days", domain.DefaultWindowDays, "rolling average window in days")
	bbWindow := fs.Int("bb-window", domain.DefaultBBWindow, "bollinger window in candles")
	bbK := fs.String("bb-k", domain.DefaultBBK.String(), "bollinger band width in standard deviations")
	rsiWindow := fs.Int("rsi-window", domain.DefaultRSIWindow, "RSI window in candles")
	workers := fs.Int("workers", defaultWorkers, "products analyzed concurrently")
	asOf := fs.String("as-of", "", "analysis date YYYY-MM-DD, defaults to today (UTC)")
	since := fs.String("since", "", "first candle date YYYY-MM-DD, defaults to the first order")
	driver := fs.String("driver", defaultDriver, "order database driver: sqlite or postgres")
	dsn := fs.String("dsn", defaultDSN, "order database DSN")
	catalog := fs.String("catalog", defaultCatalog, "price catalog: sql, redis, static or none")
	redisAddr := fs.String("redis-addr", "", "redis address of the price catalog")
	redisKey := fs.String("redis-key", defaultRedisKey, "redis hash holding catalog prices")
	journalDir := fs.String("journal-dir", defaultJournalDir, "report journal directory, empty disables it")
	watchCron := fs.String("cron", defaultWatchCron, "watch mode schedule (cron with seconds)")
	metricsAddr := fs.String("metrics-addr", defaultMetricsAddr, "watch mode metrics listen address")
	webAddr := fs.String("web-addr", defaultWebAddr, "watch mode report server address, empty disables it")
	output := fs.String("output", OutputText, "report output: text or json")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var (
		cfg Config
		err error
	)
	if *path != "" {
		cfg, err = getYaml(*path)
		if err != nil {
			return Config{}, err
		}
	} else {
		cfg = Config{
			Params:      domain.DefaultAnalysisParams(),
			Workers:     defaultWorkers,
			Driver:      defaultDriver,
			DSN:         defaultDSN,
			Catalog:     defaultCatalog,
			RedisKey:    defaultRedisKey,
			JournalDir:  defaultJournalDir,
			WatchCron:   defaultWatchCron,
			MetricsAddr: defaultMetricsAddr,
			WebAddr:     defaultWebAddr,
		}
	}
	cfg.Output = OutputText

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		if flagErr != nil {
			return
		}
		switch f.Name {
		case "account":
			cfg.Accounts = splitList(*accounts)
		case "period-days":
			cfg.Params.PeriodDays = *periodDays
		case "window-days":
			cfg.Params.WindowDays = *windowDays
		case "bb-window":
			cfg.Params.BBWindow = *bbWindow
		case "bb-k":
			k, err := decimal.NewFromString(*bbK)
			if err != nil {
				flagErr = fmt.Errorf("invalid --bb-k provided, --bb-k=%s", *bbK)
				return
			}
			cfg.Params.BBK = k
		case "rsi-window":
			cfg.Params.RSIWindow = *rsiWindow
		case "workers":
			cfg.Workers = *workers
		case "as-of":
			cfg.AsOf, flagErr = parseDate("as-of", *asOf)
		case "since":
			cfg.Since, flagErr = parseDate("since", *since)
		case "driver":
			cfg.Driver = *driver
		case "dsn":
			cfg.DSN = *dsn
		case "catalog":
			cfg.Catalog = *catalog
		case "redis-addr":
			cfg.RedisAddr = *redisAddr
		case "redis-key":
			cfg.RedisKey = *redisKey
		case "journal-dir":
			cfg.JournalDir = *journalDir
		case "cron":
			cfg.WatchCron = *watchCron
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "web-addr":
			cfg.WebAddr = *webAddr
		case "output":
			cfg.Output = *output
		}
	})
	if flagErr != nil {
		return Config{}, flagErr
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Params.PeriodDays <= 0 {
		return fmt.Errorf("period_days must be positive, got %d", c.Params.PeriodDays)
	}
	if c.Params.WindowDays <= 0 {
		return fmt.Errorf("window_days must be positive, got %d", c.Params.WindowDays)
	}
	if c.Params.BBWindow <= 1 {
		return fmt.Errorf("bb_window must be greater than 1, got %d", c.Params.BBWindow)
	}
	if !c.Params.BBK.IsPositive() {
		return fmt.Errorf("bb_k must be positive, got %s", c.Params.BBK.String())
	}
	if c.Params.RSIWindow <= 0 {
		return fmt.Errorf("rsi_window must be positive, got %d", c.Params.RSIWindow)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Driver != DriverSQLite && c.Driver != DriverPostgres {
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	switch c.Catalog {
	case CatalogNone, CatalogSQL, CatalogStatic:
	case CatalogRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis catalog requires redis_addr")
		}
	default:
		return fmt.Errorf("unsupported catalog %q", c.Catalog)
	}
	if c.Output != OutputText && c.Output != OutputJSON {
		return fmt.Errorf("unsupported output %q", c.Output)
	}
	if !c.AsOf.IsZero() && !c.Since.IsZero() && c.Since.After(c.AsOf) {
		return fmt.Errorf("since %s is after as_of %s", c.Since.Format(dateLayout), c.AsOf.Format(dateLayout))
	}
	return nil
}

func getYaml(path string) (Config, error) {
	var c ConfigTmp

	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(f, &c); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Accounts:      c.Accounts,
		Params:        domain.DefaultAnalysisParams(),
		Workers:       defaultWorkers,
		Driver:        valueOr(c.Driver, defaultDriver),
		DSN:           valueOr(c.DSN, defaultDSN),
		Catalog:       valueOr(c.Catalog, defaultCatalog),
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisKey:      valueOr(c.RedisKey, defaultRedisKey),
		JournalDir:    defaultJournalDir,
		WatchCron:     valueOr(c.WatchCron, defaultWatchCron),
		MetricsAddr:   valueOr(c.MetricsAddr, defaultMetricsAddr),
		WebAddr:       defaultWebAddr,
	}
	if c.JournalDir != nil {
		cfg.JournalDir = *c.JournalDir
	}
	if c.WebAddr != nil {
		cfg.WebAddr = *c.WebAddr
	}

	ints := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"period_days", c.PeriodDaysStr, &cfg.Params.PeriodDays},
		{"window_days", c.WindowDaysStr, &cfg.Params.WindowDays},
		{"bb_window", c.BBWindowStr, &cfg.Params.BBWindow},
		{"rsi_window", c.RSIWindowStr, &cfg.Params.RSIWindow},
		{"workers", c.WorkersStr, &cfg.Workers},
	}
	for _, p := range ints {
		if p.raw == "" {
			continue
		}
		v, err := strconv.Atoi(p.raw)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect '%s' param in yaml config (must be an integer), error: %w", p.name, err)
		}
		*p.dst = v
	}

	if c.BBKStr != "" {
		k, err := decimal.NewFromString(c.BBKStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'bb_k' param in yaml config (must be a decimal), error: %w", err)
		}
		cfg.Params.BBK = k
	}

	if c.Since != "" {
		cfg.Since, err = parseDate("since", c.Since)
		if err != nil {
			return Config{}, err
		}
	}

	if len(c.Prices) > 0 {
		cfg.StaticPrices = make(map[string]decimal.Decimal, len(c.Prices))
		for id, raw := range c.Prices {
			p, err := decimal.NewFromString(raw)
			if err != nil {
				return Config{}, fmt.Errorf("incorrect price of %s in yaml config (must be a decimal), error: %w", id, err)
			}
			cfg.StaticPrices[id] = p
		}
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ORDERBAND_DSN"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv("ORDERBAND_DRIVER"); v != "" {
		cfg.Driver = v
	}
	if v := os.Getenv("ORDERBAND_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("ORDERBAND_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("ORDERBAND_ACCOUNT"); v != "" {
		cfg.Accounts = splitList(v)
	}
}

func parseDate(name, v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s provided (format is YYYY-MM-DD), --%s=%s", name, name, v)
	}
	return t, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
