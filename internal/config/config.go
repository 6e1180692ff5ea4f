package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Realtime fan-out modes.
const (
	FanoutLocal = "local"
	FanoutRedis = "redis"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	Port     string `envconfig:"APP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage
	StoreDriver   string `envconfig:"STORE_DRIVER" default:"mysql"`
	DBUser        string `envconfig:"DB_USER"`
	DBPass        string `envconfig:"DB_PASS"`
	DBHost        string `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string `envconfig:"DB_PORT" default:"3306"`
	DBName        string `envconfig:"DB_NAME"`
	DBAutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
	DemoSeed      bool   `envconfig:"DEMO_SEED" default:"false"`

	// Seeded admin account; skipped when the password is empty.
	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:"admin@example.com"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	// Auth
	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	AccessTTLMin   int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"15"`
	RefreshTTLDays int    `envconfig:"REFRESH_TOKEN_TTL_DAYS" default:"7"`
	BcryptCost     int    `envconfig:"BCRYPT_COST" default:"12"`

	// Booking engine
	ModificationCutoff time.Duration `envconfig:"BOOKING_MODIFICATION_CUTOFF" default:"2h"`
	AdvisoryChecks     bool          `envconfig:"BOOKING_ADVISORY_CHECKS" default:"true"`

	// Realtime
	SelectionTTL time.Duration `envconfig:"SELECTION_TTL" default:"2m"`
	SendBuffer   int           `envconfig:"WS_SEND_BUFFER" default:"64"`
	Fanout       string        `envconfig:"REALTIME_FANOUT" default:"local"`
	InstanceID   string        `envconfig:"INSTANCE_ID"`

	// Messaging
	RabbitURL      string `envconfig:"RABBITMQ_URL"`
	EventsQueue    string `envconfig:"BOOKING_EVENTS_QUEUE" default:"booking.events"`
	BookingLogPath string `envconfig:"BOOKING_LOG_PATH" default:"logs/booking.log"`
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	c.Fanout = strings.ToLower(c.Fanout)
	var errs []error
	switch c.StoreDriver {
	case StoreMySQL:
		if c.DBUser == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_USER and DB_NAME are required for STORE_DRIVER=mysql"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.Fanout != FanoutLocal && c.Fanout != FanoutRedis {
		errs = append(errs, fmt.Errorf("unknown REALTIME_FANOUT %q", c.Fanout))
	}
	if c.ModificationCutoff < 0 {
		errs = append(errs, errors.New("BOOKING_MODIFICATION_CUTOFF must not be negative"))
	}
	if c.SelectionTTL <= 0 {
		errs = append(errs, errors.New("SELECTION_TTL must be positive"))
	}
	return errors.Join(errs...)
}
