package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"tiffin/internal/config"
)

// driverConfig maps cfg onto the driver's settings. Timestamps are read in UTC
// so UpdatedAt values compare the same on every node. ClientFoundRows makes a
// conditional update report the rows its guard matched, which is how the
// order repository tells a lost race from a landed write.
func driverConfig(cfg config.DatabaseConfig) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	mc.Timeout = cfg.Timeout
	return mc
}

// DSN renders cfg as a driver connection string.
func DSN(cfg config.DatabaseConfig) string {
	return driverConfig(cfg).FormatDSN()
}

func NewConnection(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	connector, err := mysql.NewConnector(driverConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database %s: %w", cfg.Host, err)
	}

	return db, nil
}
