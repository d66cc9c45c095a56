package main

import (
	"time"

	"github.com/valkyrjaio/valkyrja/middlewares"
	"github.com/valkyrjaio/valkyrja/pkg/cache"
	"github.com/valkyrjaio/valkyrja/pkg/db"
	"github.com/valkyrjaio/valkyrja/pkg/logger"
	"github.com/valkyrjaio/valkyrja/pkg/orm"
	"github.com/valkyrjaio/valkyrja/pkg/redis"
	"github.com/valkyrjaio/valkyrja/pkg/session"
)

// Config is the demo application configuration. Values come from the file
// named by CONFIG_FILE (YAML or TOML) and are overridden by the environment.
type Config struct {
	App struct {
		Name    string        `yaml:"name" toml:"name" env:"APP_NAME" envDefault:"valkyrja"`
		Address string        `yaml:"address" toml:"address" env:"APP_ADDRESS" envDefault:":8080"`
		Secret  string        `yaml:"-" toml:"-" env:"APP_SECRET" envDefault:"insecure-development-secret-32b!"`
		Timeout time.Duration `yaml:"timeout" toml:"timeout" env:"APP_TIMEOUT" envDefault:"30s"`
	} `yaml:"app" toml:"app"`

	Log      logger.Config          `yaml:"log" toml:"log"`
	DB       orm.Config             `yaml:"db" toml:"db"`
	Postgres db.Config              `yaml:"postgres" toml:"postgres"`
	Redis    redis.Config           `yaml:"redis" toml:"redis"`
	Cache    cache.Config           `yaml:"cache" toml:"cache"`
	Session  session.Config         `yaml:"session" toml:"session"`
	CORS     middlewares.CORSConfig `yaml:"cors" toml:"cors"`
}
