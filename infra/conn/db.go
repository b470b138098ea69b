package conn

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/ordermesh/paygate/infra/config"
)

type DB struct {
	*sql.DB
}

// ConnectDatabase opens the Postgres pool holding orders, the payment
// ledger and the callback log. Gateways redeliver notifications in
// bursts after an outage, so the pool keeps enough idle headroom that
// a redelivery spike does not queue behind connection setup.
func (db *DB) ConnectDatabase() {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		config.GetEnv("DB_HOST", "localhost"),
		config.GetEnv("DB_PORT", "5432"),
		config.GetEnv("DB_USER", "paygate"),
		config.GetEnv("DB_PASS", ""),
		config.GetEnv("DB_NAME", "paygate"),
		config.GetEnv("DB_SSL_MODE", "disable"),
		config.GetEnv("DB_ZONE", "UTC"),
	)

	var err error
	var database *sql.DB

	for attempts := 1; attempts <= 5; attempts++ {
		database, err = sql.Open("postgres", connStr)
		if err != nil {
			log.Printf("Attempt %d: Failed to open DB connection: %v", attempts, err)
			time.Sleep(2 * time.Second)
			continue
		}

		// A callback transaction touches two rows and commits; the
		// cap mostly bounds concurrent redeliveries, not query time.
		database.SetMaxOpenConns(config.GetIntEnv("DB_MAX_OPEN_CONNS", 30))
		database.SetMaxIdleConns(config.GetIntEnv("DB_MAX_IDLE_CONNS", 10))
		database.SetConnMaxLifetime(30 * time.Minute)
		database.SetConnMaxIdleTime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = database.PingContext(ctx)
		cancel()

		if err == nil {
			log.Println("DB Connected successfully")
			db.DB = database
			return
		}

		log.Printf("Attempt %d: Failed to ping DB: %v", attempts, err)
		database.Close()
		time.Sleep(2 * time.Second)
	}

	log.Fatal("Failed to connect to DB after 5 attempts")
}

// CloseDatabase closes the pool during shutdown, after the HTTP server
// has stopped accepting callbacks.
func (db *DB) CloseDatabase() {
	if err := db.DB.Close(); err != nil {
		log.Println("Failed to close connection from the database:", err.Error())
	} else {
		log.Println("DB Connection Closed")
	}
}
