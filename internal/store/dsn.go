package store

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// dataSourceName assembles the DSN understood by the driver registered under
// cfg.Driver.
func dataSourceName(cfg Config) (string, error) {
	switch cfg.Driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = hostPort(cfg.Host, cfg.Port, 3306)
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	case DriverPostgres:
		dsn := url.URL{
			Scheme: "postgres",
			Host:   hostPort(cfg.Host, cfg.Port, 5432),
			Path:   "/" + strings.Trim(cfg.Name, "/"),
		}
		if cfg.User != "" {
			dsn.User = url.UserPassword(cfg.User, cfg.Password)
		}
		return dsn.String(), nil
	case DriverSQLite:
		path := strings.TrimSpace(cfg.Path)
		if path == "" {
			path = "telemetry.sqlite"
		}
		// foreign_keys is per connection in SQLite, so it has to travel in the DSN.
		// _time_format=sqlite stores bound times as "YYYY-MM-DD HH:MM:SS.fff+00:00",
		// which DATE() understands and which sorts as text.
		return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", nil
	default:
		return "", fmt.Errorf("no DSN for driver %q", cfg.Driver)
	}
}

func hostPort(host string, port, defaultPort int) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
