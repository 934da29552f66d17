package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/orderband/config"
	"github.com/vadiminshakov/orderband/internal/domain"
)

// DefaultFile is where the wizard writes the generated configuration.
const DefaultFile = "orderband.gen.yaml"

const clearScreen = "\033[H\033[2J"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers collects the wizard inputs as typed by the user.
type answers struct {
	accounts   string
	driver     string
	dsn        string
	catalog    string
	redisAddr  string
	redisKey   string
	periodDays string
	windowDays string
	bbWindow   string
	bbK        string
	rsiWindow  string
	workers    string
	watchCron  string
}

func defaultAnswers() answers {
	return answers{
		driver:     config.DriverSQLite,
		dsn:        "orderband.db",
		catalog:    config.CatalogSQL,
		redisKey:   "orderband:catalog",
		periodDays: strconv.Itoa(domain.DefaultPeriodDays),
		windowDays: strconv.Itoa(domain.DefaultWindowDays),
		bbWindow:   strconv.Itoa(domain.DefaultBBWindow),
		bbK:        domain.DefaultBBK.String(),
		rsiWindow:  strconv.Itoa(domain.DefaultRSIWindow),
		workers:    "4",
		watchCron:  "0 0 6 * * *",
	}
}

func step(title string) {
	fmt.Print(clearScreen)
	fmt.Println(headerStyle.Render("ORDERBAND CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(title))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	a := defaultAnswers()
	var confirm bool

	fmt.Print(clearScreen)
	fmt.Println(headerStyle.Render("ORDERBAND CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Order history in, reorder sizes out.\n"))

	fmt.Println(stepStyle.Render("STEP 1: ACCOUNTS"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Accounts").
				Description("Comma-separated account ids (e.g. acc-1,acc-2)").
				Value(&a.accounts).
				Validate(func(s string) error {
					if len(splitAccounts(s)) == 0 {
						return fmt.Errorf("at least one account is required")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 2: ORDER DATABASE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Database driver").
				Options(
					huh.NewOption("SQLite", config.DriverSQLite),
					huh.NewOption("PostgreSQL", config.DriverPostgres),
				).
				Value(&a.driver),
			huh.NewInput().
				Title("DSN").
				Description("File path for SQLite, connection URL for PostgreSQL").
				Value(&a.dsn).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("dsn cannot be empty")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 3: PRICE CATALOG")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where do catalog prices come from?").
				Options(
					huh.NewOption("Order database (price_catalog table)", config.CatalogSQL),
					huh.NewOption("Redis hash", config.CatalogRedis),
					huh.NewOption("None (order history only)", config.CatalogNone),
				).
				Value(&a.catalog),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.catalog == config.CatalogRedis {
		step("STEP 3: REDIS")
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Redis address").
					Description("host:port").
					Value(&a.redisAddr).
					Validate(func(s string) error {
						if !strings.Contains(s, ":") {
							return fmt.Errorf("must be host:port")
						}
						return nil
					}),
				huh.NewInput().
					Title("Hash key").
					Value(&a.redisKey),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	step("STEP 4: ANALYSIS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Candle length, days").
				Value(&a.periodDays).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Rolling window, days").
				Value(&a.windowDays).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Bollinger window, candles").
				Value(&a.bbWindow).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Bollinger width, std devs").
				Value(&a.bbK).
				Validate(validatePositiveDecimal),
			huh.NewInput().
				Title("RSI window, candles").
				Value(&a.rsiWindow).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Parallel workers").
				Value(&a.workers).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Watch schedule").
				Description("Cron with seconds (e.g. 0 0 6 * * *)").
				Value(&a.watchCron),
		),
	).Run()
	if err != nil {
		return err
	}

	step("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Accounts: %s\nDatabase: %s %s\nCatalog: %s\nCandles: %s days, window %s days\n",
		a.accounts, a.driver, a.dsn, a.catalog, a.periodDays, a.windowDays,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := Write(path, a.configTmp()); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nRun: orderband analyze --config %s", path, path)))
	return nil
}

// Write stores the configuration as YAML.
func Write(path string, c config.ConfigTmp) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func (a answers) configTmp() config.ConfigTmp {
	c := config.ConfigTmp{
		Accounts:      splitAccounts(a.accounts),
		PeriodDaysStr: a.periodDays,
		WindowDaysStr: a.windowDays,
		BBWindowStr:   a.bbWindow,
		BBKStr:        a.bbK,
		RSIWindowStr:  a.rsiWindow,
		WorkersStr:    a.workers,
		Driver:        a.driver,
		DSN:           a.dsn,
		Catalog:       a.catalog,
		WatchCron:     a.watchCron,
	}
	if a.catalog == config.CatalogRedis {
		c.RedisAddr = a.redisAddr
		c.RedisKey = a.redisKey
	}
	return c
}

func splitAccounts(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validatePositiveInt(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if v <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validatePositiveDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}
