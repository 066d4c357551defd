package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchroom/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
		usage:        "Token signing secret",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
	dbDialect = configVar[string]{
		envKey:       "DB_DIALECT",
		flagKey:      "db-dialect",
		defaultValue: "postgres",
		usage:        "Database dialect (postgres or sqlite)",
	}
	dbDSN = configVar[string]{
		envKey:       "DB_DSN",
		flagKey:      "db-dsn",
		defaultValue: "host=localhost user=postgres password=postgres dbname=watchroom port=5432 sslmode=disable",
		usage:        "Database connection string",
	}
	dbAutoMigrate = configVar[bool]{
		envKey:       "DB_AUTO_MIGRATE",
		flagKey:      "db-auto-migrate",
		defaultValue: false,
		usage:        "Create missing tables on startup",
	}
	stateTTL = configVar[time.Duration]{
		envKey:       "SERVER_STATE_TTL",
		flagKey:      "state-ttl",
		defaultValue: 24 * time.Hour,
		usage:        "Lifetime of cached room state after the last write",
	}
	reconcileInterval = configVar[time.Duration]{
		envKey:       "SERVER_RECONCILE_INTERVAL",
		flagKey:      "reconcile-interval",
		defaultValue: 30 * time.Second,
		usage:        "Interval between vote reconciliation passes",
	}
	mirrorWorkers = configVar[int]{
		envKey:       "SERVER_MIRROR_WORKERS",
		flagKey:      "mirror-workers",
		defaultValue: 8,
		usage:        "Maximum concurrent durable vote writes",
	}
	playbackAuthority = configVar[string]{
		envKey:       "SERVER_PLAYBACK_AUTHORITY",
		flagKey:      "playback-authority",
		defaultValue: "any",
		usage:        "Who may control playback (any or admins)",
	}
	wsRateLimit = configVar[float64]{
		envKey:       "SERVER_WS_RATE_LIMIT",
		flagKey:      "ws-rate-limit",
		defaultValue: 20,
		usage:        "Websocket commands per second per connection, 0 disables",
	}
	wsRateBurst = configVar[int]{
		envKey:       "SERVER_WS_RATE_BURST",
		flagKey:      "ws-rate-burst",
		defaultValue: 40,
		usage:        "Websocket command burst per connection",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, secret.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.String(dbDialect.flagKey, dbDialect.defaultValue, dbDialect.usage)
	pflag.String(dbDSN.flagKey, dbDSN.defaultValue, dbDSN.usage)
	pflag.Bool(dbAutoMigrate.flagKey, dbAutoMigrate.defaultValue, dbAutoMigrate.usage)
	pflag.Duration(stateTTL.flagKey, stateTTL.defaultValue, stateTTL.usage)
	pflag.Duration(reconcileInterval.flagKey, reconcileInterval.defaultValue, reconcileInterval.usage)
	pflag.Int(mirrorWorkers.flagKey, mirrorWorkers.defaultValue, mirrorWorkers.usage)
	pflag.String(playbackAuthority.flagKey, playbackAuthority.defaultValue, playbackAuthority.usage)
	pflag.Float64(wsRateLimit.flagKey, wsRateLimit.defaultValue, wsRateLimit.usage)
	pflag.Int(wsRateBurst.flagKey, wsRateBurst.defaultValue, wsRateBurst.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	secret.bind()
	port.bind()
	host.bind()
	logLevel.bind()
	redisPort.bind()
	redisHost.bind()
	redisPassword.bind()
	dbDialect.bind()
	dbDSN.bind()
	dbAutoMigrate.bind()
	stateTTL.bind()
	reconcileInterval.bind()
	mirrorWorkers.bind()
	playbackAuthority.bind()
	wsRateLimit.bind()
	wsRateBurst.bind()

	return &app.AppConfig{
		Secret:            viper.GetString(secret.flagKey),
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		RedisPort:         viper.GetInt(redisPort.flagKey),
		RedisHost:         viper.GetString(redisHost.flagKey),
		RedisPassword:     viper.GetString(redisPassword.flagKey),
		DBDialect:         viper.GetString(dbDialect.flagKey),
		DBDSN:             viper.GetString(dbDSN.flagKey),
		DBAutoMigrate:     viper.GetBool(dbAutoMigrate.flagKey),
		StateTTL:          viper.GetDuration(stateTTL.flagKey),
		ReconcileInterval: viper.GetDuration(reconcileInterval.flagKey),
		MirrorWorkers:     viper.GetInt(mirrorWorkers.flagKey),
		PlaybackAuthority: viper.GetString(playbackAuthority.flagKey),
		WsRateLimit:       viper.GetFloat64(wsRateLimit.flagKey),
		WsRateBurst:       viper.GetInt(wsRateBurst.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
