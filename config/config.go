package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"price-drop-tracker/internal/types"
)

const DefaultQuoteEndpoint = "https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1m&range=1d"

// DefaultSymbols is used when no config file provides a symbol table
var DefaultSymbols = []types.Symbol{
	{Symbol: "ISAC.L", Name: "MSCI ACWI Globalny"},
	{Symbol: "CNDX.L", Name: "NASDAQ 100"},
	{Symbol: "CSPX.L", Name: "S&P 500"},
	{Symbol: "FLXC.DE", Name: "FTSE China"},
	{Symbol: "VWCG.DE", Name: "FTSE Developed Europe"},
	{Symbol: "ETFBW20TR.WA", Name: "WIG20"},
	{Symbol: "FLXI.DE", Name: "FTSE India"},
	{Symbol: "VVSM.DE", Name: "Semiconductor"},
}

var once sync.Once

func InitConfig() {
	once.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Warnf("could not load .env file: %v", err)
		}

		viper.AutomaticEnv()

		viper.BindEnv("telegram_token", "TELEGRAM_TOKEN")
		viper.BindEnv("telegram_chat_id", "TELEGRAM_CHAT_ID")
		viper.BindEnv("telegram_api_endpoint", "TELEGRAM_API_ENDPOINT")
		viper.BindEnv("telegram_commands", "TELEGRAM_COMMANDS")
		viper.BindEnv("check_interval", "CHECK_INTERVAL")
		viper.BindEnv("alert_threshold_first", "ALERT_THRESHOLD_FIRST")
		viper.BindEnv("alert_threshold_step", "ALERT_THRESHOLD_STEP")
		viper.BindEnv("market_open_hour", "MARKET_OPEN_HOUR")
		viper.BindEnv("market_close_hour", "MARKET_CLOSE_HOUR")
		viper.BindEnv("market_skip_weekends", "MARKET_SKIP_WEEKENDS")
		viper.BindEnv("timezone", "TZ_NAME")
		viper.BindEnv("log_dir", "LOG_DIR")
		viper.BindEnv("log_retention_days", "LOG_RETENTION_DAYS")
		viper.BindEnv("data_dir", "DATA_DIR")
		viper.BindEnv("threshold_store", "THRESHOLD_STORE")
		viper.BindEnv("http_port", "HTTP_PORT")
		viper.BindEnv("fetch_timeout", "FETCH_TIMEOUT")
		viper.BindEnv("quote_endpoint", "QUOTE_ENDPOINT")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("chart_font", "CHART_FONT")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("telegram_api_endpoint", tgbotapi.APIEndpoint)
		viper.SetDefault("telegram_commands", false)
		viper.SetDefault("check_interval", 300)
		viper.SetDefault("alert_threshold_first", -1.0)
		viper.SetDefault("alert_threshold_step", -0.5)
		viper.SetDefault("market_open_hour", 9)
		viper.SetDefault("market_close_hour", 18)
		viper.SetDefault("market_skip_weekends", false)
		viper.SetDefault("log_dir", "/var/log/price-drop")
		viper.SetDefault("log_retention_days", 7)
		viper.SetDefault("data_dir", "/opt/price-drop")
		viper.SetDefault("threshold_store", "file")
		viper.SetDefault("http_port", 5000)
		viper.SetDefault("fetch_timeout", 10*time.Second)
		viper.SetDefault("quote_endpoint", DefaultQuoteEndpoint)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")

		if path := os.Getenv("CONFIG_FILE"); path != "" {
			viper.SetConfigFile(path)
			if err := viper.ReadInConfig(); err != nil {
				log.Errorf("could not read config file %s: %v", path, err)
			}
		}
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetFloat64(key string) float64 {
	InitConfig()
	return viper.GetFloat64(key)
}

// GetDuration reads a Go duration such as "10s". A bare number is taken as
// seconds, the unit the interval settings use.
func GetDuration(key string) time.Duration {
	InitConfig()
	if secs, err := strconv.ParseFloat(strings.TrimSpace(viper.GetString(key)), 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return viper.GetDuration(key)
}

// CheckInterval returns the scheduler interval, configured in seconds
func CheckInterval() time.Duration {
	return time.Duration(GetInt("check_interval")) * time.Second
}

// Location returns the timezone used for market hours and day boundaries
func Location() *time.Location {
	name := GetString("timezone")
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warnf("unknown timezone %q, using local time: %v", name, err)
		return time.Local
	}
	return loc
}

// Symbols returns the configured symbol table. Entries without a name are
// displayed under their symbol.
func Symbols() []types.Symbol {
	InitConfig()

	var symbols []types.Symbol
	if viper.IsSet("symbols") {
		if err := viper.UnmarshalKey("symbols", &symbols); err != nil {
			log.Errorf("invalid symbols table, using defaults: %v", err)
			symbols = nil
		}
	}
	if len(symbols) == 0 {
		symbols = append(symbols, DefaultSymbols...)
	}

	for i := range symbols {
		if symbols[i].Name == "" {
			symbols[i].Name = symbols[i].Symbol
		}
	}
	return symbols
}
