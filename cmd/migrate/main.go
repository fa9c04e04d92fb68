package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/ignite/cardscan/internal/repository/postgres"

	_ "github.com/lib/pq"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	switch cmd {
	case "up":
		err = postgres.Migrate(ctx, db)
	case "down":
		err = postgres.MigrateDown(ctx, db)
	case "status", "--list":
		err = postgres.MigrationStatus(ctx, db)
	default:
		log.Fatalf("unknown command %q (want up, down or status)", cmd)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
	log.Printf("Migrations %s complete", cmd)
}
