// File: cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"fliq-payments/internal/config"
	pg "fliq-payments/internal/infra/db/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS purchase_attempts (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    plan_id          TEXT NOT NULL,
    intent_id        TEXT NOT NULL DEFAULT '',
    client_secret    TEXT NOT NULL DEFAULT '',
    state            TEXT NOT NULL,
    credits_expected BIGINT NOT NULL DEFAULT 0,
    failure_code     TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_purchase_attempts_state_updated
    ON purchase_attempts (state, updated_at);

CREATE INDEX IF NOT EXISTS idx_purchase_attempts_intent
    ON purchase_attempts (intent_id) WHERE intent_id <> '';
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")
}
