package main

import "time"

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	DatabaseURL    string `env:"DATABASE_URL,required=true"`
	RedisAddr      string `env:"REDIS_ADDR,default=localhost:6379"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	BufferSize      int           `env:"BUFFER_SIZE,default=64"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	HealthInterval  time.Duration `env:"HEALTH_INTERVAL,default=30s"`
	DebugPort       int           `env:"DEBUG_PORT"`

	JudgeURL     string        `env:"JUDGE_URL,required=true"`
	JudgeAPIHost string        `env:"JUDGE_API_HOST"`
	JudgeAPIKey  string        `env:"JUDGE_API_KEY"`
	PollInterval time.Duration `env:"POLL_INTERVAL,default=1s"`
	MaxPolls     uint64        `env:"MAX_POLLS,default=60"`
}
