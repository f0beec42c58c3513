package main

import (
	"flag"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var flagServerAddr string
var flagLogLevel string
var flagUsername string
var flagToken string
var flagTimeout time.Duration

type envConfig struct {
	ServerAddr string        `envconfig:"CHAT_SERVER_ADDR"`
	LogLevel   string        `envconfig:"LOG_LEVEL"`
	Username   string        `envconfig:"CHAT_USERNAME"`
	Token      string        `envconfig:"CHAT_TOKEN"`
	Timeout    time.Duration `envconfig:"CHAT_TIMEOUT"`
}

func parseFlags() error {
	flag.StringVar(&flagServerAddr, "a", "http://localhost:8080", "chat server url")
	flag.StringVar(&flagLogLevel, "l", "warn", "log level")
	flag.StringVar(&flagUsername, "u", "", "username to log in as")
	flag.StringVar(&flagToken, "t", "", "existing session token, skips login")
	flag.DurationVar(&flagTimeout, "timeout", 10*time.Second, "request timeout")
	flag.Parse()

	_ = godotenv.Load()

	var env envConfig
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	if env.ServerAddr != "" {
		flagServerAddr = env.ServerAddr
	}
	if env.LogLevel != "" {
		flagLogLevel = env.LogLevel
	}
	if env.Username != "" {
		flagUsername = env.Username
	}
	if env.Token != "" {
		flagToken = env.Token
	}
	if env.Timeout > 0 {
		flagTimeout = env.Timeout
	}
	return nil
}
