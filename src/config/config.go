package config

import (
	"os"
	"strings"

	"git.handmade.network/hmn/pgdsl/src/oops"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// The active configuration. Set it once at startup with Load; everything else
// only reads it.
var Config = Default()

func Default() PgdslConfig {
	return PgdslConfig{
		Env:      Dev,
		LogLevel: zerolog.InfoLevel,
		Postgres: PostgresConfig{
			User:     "postgres",
			Password: "postgres",
			Hostname: "localhost",
			Port:     5432,
			DbName:   "postgres",
			LogLevel: tracelog.LogLevelWarn,
			MinConn:  2,
			MaxConn:  10,
		},
		Formatter: FormatterConfig{
			IndentSize:  2,
			Placeholder: "dollar",
		},
	}
}

// The on-disk shape of the config. Levels are strings here so that the file can
// say "debug" instead of a number.
type fileConfig struct {
	Env        Environment `yaml:"env"`
	LogLevel   string      `yaml:"loglevel"`
	Datasource struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Hostname string `yaml:"hostname"`
		Port     int    `yaml:"port"`
		DbName   string `yaml:"dbname"`
		LogLevel string `yaml:"loglevel"`
		MinConn  int32  `yaml:"minconn"`
		MaxConn  int32  `yaml:"maxconn"`
	} `yaml:"datasource"`
	Formatter struct {
		Beautify    bool   `yaml:"beautify"`
		IndentSize  int    `yaml:"indentsize"`
		Placeholder string `yaml:"placeholder"`
	} `yaml:"formatter"`
}

/*
Reads a YAML config file on top of the defaults. An empty path skips the file and
only applies environment overrides:

	PGDSL_DATABASE_URL
	PGDSL_DATABASE_USER
	PGDSL_DATABASE_PASSWORD
*/
func Load(path string) (PgdslConfig, error) {
	cfg := Default()

	if path != "" {
		contents, err := os.ReadFile(path)
		if err != nil {
			return cfg, oops.New(err, "failed to read config file %s", path)
		}
		cfg, err = Parse(contents)
		if err != nil {
			return cfg, oops.New(err, "failed to parse config file %s", path)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func Parse(contents []byte) (PgdslConfig, error) {
	cfg := Default()

	var fc fileConfig
	if err := yaml.Unmarshal(contents, &fc); err != nil {
		return cfg, err
	}

	if fc.Env != "" {
		cfg.Env = fc.Env
	}
	if fc.LogLevel != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(fc.LogLevel))
		if err != nil {
			return cfg, oops.New(err, "bad log level")
		}
		cfg.LogLevel = lvl
	}

	ds := fc.Datasource
	pg := &cfg.Postgres
	if ds.URL != "" {
		pg.URL = ds.URL
	}
	if ds.Username != "" {
		pg.User = ds.Username
	}
	if ds.Password != "" {
		pg.Password = ds.Password
	}
	if ds.Hostname != "" {
		pg.Hostname = ds.Hostname
	}
	if ds.Port != 0 {
		pg.Port = ds.Port
	}
	if ds.DbName != "" {
		pg.DbName = ds.DbName
	}
	if ds.MinConn != 0 {
		pg.MinConn = ds.MinConn
	}
	if ds.MaxConn != 0 {
		pg.MaxConn = ds.MaxConn
	}
	if ds.LogLevel != "" {
		lvl, err := tracelog.LogLevelFromString(strings.ToLower(ds.LogLevel))
		if err != nil {
			return cfg, oops.New(err, "bad datasource log level")
		}
		pg.LogLevel = lvl
	}

	cfg.Formatter.Beautify = fc.Formatter.Beautify
	if fc.Formatter.IndentSize != 0 {
		cfg.Formatter.IndentSize = fc.Formatter.IndentSize
	}
	switch fc.Formatter.Placeholder {
	case "":
	case "dollar", "question":
		cfg.Formatter.Placeholder = fc.Formatter.Placeholder
	default:
		return cfg, oops.New(nil, "unknown placeholder style '%s'", fc.Formatter.Placeholder)
	}

	return cfg, nil
}

func applyEnv(cfg *PgdslConfig) {
	if v := os.Getenv("PGDSL_DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("PGDSL_DATABASE_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("PGDSL_DATABASE_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
}
