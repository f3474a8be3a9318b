package store

import (
	"time"

	"repertoire/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// ConnectRetries bounds the boot pings, zero means 20
	ConnectRetries int
	// PingTimeout bounds each boot ping, zero means 3s
	PingTimeout time.Duration
}

// CHConfig configures the optional clickhouse mirror
type CHConfig struct {
	Enabled    bool
	URL        string
	ClientName string
	ClientTag  string
}

func (c PGConfig) retries() int {
	if c.ConnectRetries <= 0 {
		return 20
	}
	return c.ConnectRetries
}

func (c PGConfig) pingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 3 * time.Second
	}
	return c.PingTimeout
}

// FromConfig reads SERVICE_PGSQL_* and SERVICE_CH_*. Postgres is required;
// clickhouse is enabled by setting SERVICE_CH_DBURL
func FromConfig(root config.Conf, app, tag string, maxConns int) (Config, error) {
	pg := root.Prefix("SERVICE_PGSQL_")
	ch := root.Prefix("SERVICE_CH_")

	u, err := pg.URL("DBURL")
	if err != nil {
		return Config{}, err
	}
	chURL := ch.MayString("DBURL", "")
	return Config{
		AppName: app,
		PG: PGConfig{
			Enabled:        true,
			URL:            u.String(),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", maxConns)),
			SlowQueryMs:    pg.MayInt("SLOW_MS", 500),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 0),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 0),
		},
		CH: CHConfig{
			Enabled:    chURL != "",
			URL:        chURL,
			ClientName: "repertoire",
			ClientTag:  tag,
		},
	}, nil
}
