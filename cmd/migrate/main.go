package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"watchtower.dev/internal/migrate"
	"watchtower.dev/internal/store/sqlstore"
)

const usage = "usage: migrate [flags] up|down|status|seed|seed-accounts <file>|normalize-roles"

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	log.SetFlags(0)
	var (
		driver  = flag.String("driver", envOr("WATCHTOWER_DB_DRIVER", "sqlite"), "Database driver: pgx, postgres or sqlite")
		dsn     = flag.String("dsn", envOr("WATCHTOWER_DB_DSN", "watchtower.db"), "Database DSN")
		timeout = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or WATCHTOWER_DB_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal(usage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := sqlstore.Open(*driver, *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	mgr, err := migrate.NewManager(store.DB(), store.Dialect())
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	cmd := flag.Arg(0)
	switch cmd {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		if err == nil {
			if len(applied) == 0 {
				fmt.Println("nothing to apply")
			}
			for _, name := range applied {
				fmt.Println("applied", name)
			}
		}
	case "down":
		var reverted string
		reverted, err = mgr.Down(ctx)
		if err == nil {
			if reverted == "" {
				fmt.Println("nothing to revert")
			} else {
				fmt.Println("reverted", reverted)
			}
		}
	case "seed":
		err = mgr.Seed(ctx)
	case "seed-accounts":
		if flag.NArg() < 2 {
			log.Fatal("seed-accounts requires a YAML file")
		}
		var created int
		created, err = store.SeedFromFile(ctx, flag.Arg(1))
		if err == nil {
			fmt.Printf("created %d accounts\n", created)
		}
	case "normalize-roles":
		var n int64
		n, err = store.NormalizeLegacyRoles(ctx)
		if err == nil {
			fmt.Printf("normalized %d accounts\n", n)
		}
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q\n%s", cmd, usage)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", cmd, err)
	}
}
