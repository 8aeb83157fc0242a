package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"rdw-inventory-api/db"
)

func main() {
	_ = godotenv.Load()

	dsnFlag := flag.String("dsn", "", "database URL (defaults to DB_DSN)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-dsn=...] up|down|reset|status")
		flag.PrintDefaults()
	}
	flag.Parse()

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	dsn := *dsnFlag
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		log.Fatal("DB_DSN or -dsn is required")
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal("Failed to open database connection:", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	switch cmd {
	case "up":
		err = db.Up(ctx, conn)
	case "down":
		err = db.Down(ctx, conn)
	case "reset":
		err = db.Reset(ctx, conn)
	case "status":
		err = db.Status(ctx, conn)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", cmd, err)
	}
	fmt.Printf("migrate %s: done\n", cmd)
}
