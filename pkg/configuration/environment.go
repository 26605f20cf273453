package configuration

import (
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/rowfence/rowfence/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		panic(err)
	}
	return c
})

// Use returns the process-wide configuration, loading it on first call.
func Use() *Configuration {
	return singleton()
}

// LoadEnv loads the env files that exist, silently skipping the rest.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

type DatabaseOptions struct {
	Name     string `env:"DB_NAME" envDefault:"rowfence"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type MigrationOptions struct {
	Enabled bool   `env:"MIGRATIONS_ENABLED" envDefault:"true"`
	Dir     string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
}

type Configuration struct {
	Database   DatabaseOptions
	Migrations MigrationOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`

	// RLSEnforce controls whether transactions additionally pin the tenant
	// with a database session variable ("enforce") or rely on the gateway's
	// predicates alone ("off").
	RLSEnforce string `env:"RLS_ENFORCE" envDefault:"enforce"`

	// SchemaRegistryPath optionally points at a YAML entity registry that
	// replaces the embedded default.
	SchemaRegistryPath string `env:"SCHEMA_REGISTRY_PATH" envDefault:""`

	logger *logrus.Logger
}

func (c *Configuration) load(envFiles []string) error {
	if _, err := LoadEnv(envFiles); err != nil {
		return err
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if c.GoAppEnvironment == Production {
		logger, err := logging.FileLogger(level, c.LogPath)
		if err != nil {
			return err
		}
		c.logger = logger
	} else {
		c.logger = logging.ConsoleLogger(level)
	}
	return nil
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}
