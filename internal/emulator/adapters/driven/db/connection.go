package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ride-sim/internal/config"
	"ride-sim/internal/mylogger"

	"github.com/jackc/pgx/v5"
)

type DataBase struct {
	ctx   context.Context
	cfg   *config.DBconfig
	mylog mylogger.Logger
	conn  *pgx.Conn
	mu    *sync.Mutex
}

// ConnectDB opens a single connection, retrying with a growing delay.
func ConnectDB(ctx context.Context, dbCfg *config.DBconfig, mylog mylogger.Logger) (*DataBase, error) {
	d := &DataBase{
		cfg:   dbCfg,
		ctx:   ctx,
		mylog: mylog,
		mu:    &sync.Mutex{},
	}

	if err := d.connect(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *DataBase) GetConn() *pgx.Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn
}

func (d *DataBase) Close() error {
	if err := d.GetConn().Close(d.ctx); err != nil {
		return fmt.Errorf("close database connection: %v", err)
	}
	return nil
}

// IsAlive pings the DB and reconnects once when the ping fails.
func (d *DataBase) IsAlive() error {
	conn := d.GetConn()
	if conn == nil {
		return fmt.Errorf("DB is not initialized")
	}
	if err := conn.Ping(d.ctx); err != nil {
		if connectionErr := d.connect(); connectionErr != nil {
			return fmt.Errorf("ping failed: %w", err)
		}
	}

	return nil
}

func (d *DataBase) connect() error {
	connStr := fmt.Sprintf(
		"postgres://%v:%v@%v:%v/%v?sslmode=disable",
		d.cfg.User,
		d.cfg.Password,
		d.cfg.Host,
		d.cfg.Port,
		d.cfg.Database,
	)

	retries := max(d.cfg.MaxRetries, 1)
	var lastErr error
	for i := 0; i < retries; i++ {
		conn, err := pgx.Connect(d.ctx, connStr)
		if err != nil {
			lastErr = fmt.Errorf("failed to connect to database: %w", err)
			d.mylog.Error(fmt.Sprintf("DB connection attempt %d failed", i+1), err)

			time.Sleep(time.Second * time.Duration(i+1))
			continue
		}

		d.mu.Lock()
		d.conn = conn
		d.mu.Unlock()
		d.mylog.Info("Successfully connected to the database")
		return nil
	}

	return fmt.Errorf("failed to connect to the database after %d attempts: %w", retries, lastErr)
}
