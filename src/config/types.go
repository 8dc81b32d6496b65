package config

import (
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta             = "beta"
	Dev              = "dev"
)

type PgdslConfig struct {
	Env       Environment
	LogLevel  zerolog.Level
	Postgres  PostgresConfig
	Formatter FormatterConfig
}

type PostgresConfig struct {
	// If set, URL takes precedence over the individual connection fields,
	// except that User and Password fill in missing credentials.
	URL      string
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	if info.URL != "" {
		u, err := url.Parse(info.URL)
		if err != nil {
			return info.URL
		}
		if u.User == nil && info.User != "" {
			if info.Password != "" {
				u.User = url.UserPassword(info.User, info.Password)
			} else {
				u.User = url.User(info.User)
			}
		}
		return u.String()
	}
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type FormatterConfig struct {
	Beautify   bool
	IndentSize int
	// Either "dollar" ($1, $2, ...) or "question" (?).
	Placeholder string
}
