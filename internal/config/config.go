package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env-default:"local"`
	JWTSecret  string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	Crawler    `yaml:"crawler"`
	Exchange   `yaml:"exchange"`
	Sweep      `yaml:"sweep"`
	SMTP       `yaml:"smtp"`
	Plans      `yaml:"plans"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr       string        `yaml:"addr" env-default:"redis:6379"`
	Db         int           `yaml:"db" env-default:"1"`
	DefaultTTL time.Duration `yaml:"default_ttl" env-default:"1m"`
}

type RabbitMQ struct {
	URL            string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName      string `yaml:"queue_name" env-default:"alert_notifications"`
	WorkerPoolSize int    `yaml:"worker_pool_size" env-default:"10"`
}

// Crawler holds the outbound fetch settings and the selector fallback
// chains. The chains are configurable so a KREAM markup change is a
// config rollout, not a redeploy.
type Crawler struct {
	UserAgent      string        `yaml:"user_agent" env-default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"`
	AcceptLanguage string        `yaml:"accept_language" env-default:"ko-KR,ko;q=0.9"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"15s"`
	Selectors      Selectors     `yaml:"selectors"`
}

type Selectors struct {
	Title     []string `yaml:"title"`
	Brand     []string `yaml:"brand"`
	ModelCode []string `yaml:"model_code"`
	Image     []string `yaml:"image"`
	Price     []string `yaml:"price"`
}

type Exchange struct {
	// Fixed JPY->KRW multiplier used until a live rate source is wired in.
	JPYToKRW float64 `yaml:"jpy_to_krw" env-default:"9.5"`
}

type Sweep struct {
	Secret        string        `yaml:"secret" env:"CRON_SECRET" env-required:"true"`
	InterItemWait time.Duration `yaml:"inter_item_wait" env-default:"1s"`
	// Optional cron expression for the in-process schedule. Empty means
	// the sweep only runs when the trigger endpoint is called.
	Cron       string `yaml:"cron" env-default:""`
	ResultBase string `yaml:"result_base" env-default:"http://localhost:3000"`
}

type SMTP struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env-default:"KREAM Price Tracker <noreply@localhost>"`
}

type Plans struct {
	FreeWatchLimit int `yaml:"free_watch_limit" env-default:"3"`
	ProWatchLimit  int `yaml:"pro_watch_limit" env-default:"50"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", configPath)
	}

	return &cfg
}
