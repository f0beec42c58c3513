package main

import (
	"flag"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var flagRunAddr string
var flagLogLevel string
var flagDatabaseURI string
var flagJWTSecret string
var flagUsers string

type envConfig struct {
	RunAddr     string `envconfig:"RUN_ADDR"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	DatabaseURI string `envconfig:"DATABASE_URI"`
	JWTSecret   string `envconfig:"JWT_SECRET"`
	Users       string `envconfig:"SEED_USERS"`
}

func parseFlags() error {
	flag.StringVar(&flagRunAddr, "a", ":8080", "address and port")
	flag.StringVar(&flagLogLevel, "l", "debug", "log level")
	flag.StringVar(&flagDatabaseURI, "d", "", "badger directory, in-memory when empty")
	flag.StringVar(&flagJWTSecret, "s", "dev-secret", "JWT signing secret")
	flag.StringVar(&flagUsers, "users", "ann,bob,cat", "comma separated usernames to create on start")
	flag.Parse()

	_ = godotenv.Load()

	var env envConfig
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	if env.RunAddr != "" {
		flagRunAddr = env.RunAddr
	}
	if env.LogLevel != "" {
		flagLogLevel = env.LogLevel
	}
	if env.DatabaseURI != "" {
		flagDatabaseURI = env.DatabaseURI
	}
	if env.JWTSecret != "" {
		flagJWTSecret = env.JWTSecret
	}
	if env.Users != "" {
		flagUsers = env.Users
	}
	return nil
}

func seedUsernames() []string {
	var out []string
	for _, u := range strings.Split(flagUsers, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
