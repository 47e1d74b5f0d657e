package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Dispatch *Dispatchconfig
	Emulator *Emulatorconfig
	Fleet    *Fleetconfig
	DB       *DBconfig
	RabbitMq *RabbitMqconfig
	Redis    *Redisconfig
	Srv      *Serviceconfig
	App      *Appconfig
	Log      *Loggerconfig
}

type Dispatchconfig struct {
	BaseURL        string        `yaml:"base_url"`
	Transport      string        `yaml:"transport"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type Emulatorconfig struct {
	TickInterval      time.Duration `yaml:"tick_interval"`
	PickupFallback    time.Duration `yaml:"pickup_fallback"`
	DropoffFallback   time.Duration `yaml:"dropoff_fallback"`
	ForcedProgression bool          `yaml:"forced_progression"`
	Evaluation        int           `yaml:"evaluation"`
}

type Fleetconfig struct {
	File           string        `yaml:"file"`
	GhostCount     int           `yaml:"ghost_count"`
	GhostRadius    int           `yaml:"ghost_radius"`
	GhostStep      int           `yaml:"ghost_step"`
	GhostInterval  time.Duration `yaml:"ghost_interval"`
	ConfigDebounce time.Duration `yaml:"config_debounce"`
}

type DBconfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	MaxRetries int    `yaml:"max_retries"`
}

type RabbitMqconfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type Redisconfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Serviceconfig struct {
	ControlPort string `yaml:"control_port"`
}

type Appconfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type Loggerconfig struct {
	Level string `yaml:"level"`
}

// New reads the configuration from the environment, after loading .env from
// the working directory when there is one.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		val, err := strconv.Atoi(os.Getenv(key))
		if err != nil {
			return def
		}
		return val
	}

	getEnvBool := func(key string, def bool) bool {
		val, err := strconv.ParseBool(os.Getenv(key))
		if err != nil {
			return def
		}
		return val
	}

	getEnvDuration := func(key string, def time.Duration) time.Duration {
		val, err := time.ParseDuration(os.Getenv(key))
		if err != nil || val <= 0 {
			return def
		}
		return val
	}

	cnf := &Config{
		Dispatch: &Dispatchconfig{
			BaseURL:        getEnv("DISPATCH_URL", "http://localhost:8080"),
			Transport:      getEnv("DISPATCH_TRANSPORT", "sse"),
			PollInterval:   getEnvDuration("DISPATCH_POLL_INTERVAL", 10*time.Second),
			RetryInterval:  getEnvDuration("DISPATCH_RETRY_INTERVAL", 3*time.Second),
			RequestTimeout: getEnvDuration("DISPATCH_REQUEST_TIMEOUT", 5*time.Second),
		},
		Emulator: &Emulatorconfig{
			TickInterval:      getEnvDuration("EMULATOR_TICK_INTERVAL", time.Second),
			PickupFallback:    getEnvDuration("EMULATOR_PICKUP_FALLBACK", 30*time.Second),
			DropoffFallback:   getEnvDuration("EMULATOR_DROPOFF_FALLBACK", 60*time.Second),
			ForcedProgression: getEnvBool("EMULATOR_FORCED_PROGRESSION", false),
			Evaluation:        getEnvInt("EMULATOR_EVALUATION", 5),
		},
		Fleet: &Fleetconfig{
			File:           getEnv("FLEET_FILE", "fleet.yaml"),
			GhostCount:     getEnvInt("FLEET_GHOST_COUNT", 100),
			GhostRadius:    getEnvInt("FLEET_GHOST_RADIUS", 500),
			GhostStep:      getEnvInt("FLEET_GHOST_STEP", 2),
			GhostInterval:  getEnvDuration("FLEET_GHOST_INTERVAL", time.Second),
			ConfigDebounce: getEnvDuration("FLEET_CONFIG_DEBOUNCE", 500*time.Millisecond),
		},
		DB: &DBconfig{
			Enabled:    getEnvBool("DB_ENABLED", false),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "ridesim_user"),
			Password:   getEnv("DB_PASSWORD", "ridesim_pass"),
			Database:   getEnv("DB_NAME", "ridesim_db"),
			MaxRetries: getEnvInt("DB_MAX_RETRIES", 3),
		},
		RabbitMq: &RabbitMqconfig{
			Enabled:  getEnvBool("RABBITMQ_ENABLED", false),
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
		},
		Redis: &Redisconfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Srv: &Serviceconfig{
			ControlPort: getEnv("CONTROL_PORT", "3010"),
		},
		App: &Appconfig{
			JWTSecret: getEnv("JWT_SECRET", "supersecretkey"),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}

	return cnf, nil
}
