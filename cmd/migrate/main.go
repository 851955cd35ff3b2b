// migrate applies the embedded session store migrations: go run ./cmd/migrate -direction up.
package main

import (
	"flag"
	"fmt"
	"os"

	"session-lifecycle-manager/internal/config"
	"session-lifecycle-manager/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	showVersion := flag.Bool("version", false, "Print the applied schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.SessionStore != config.StorePostgres {
		fmt.Fprintf(os.Stderr, "SESSION_STORE=%s does not use migrations (sqlite creates its schema on open)\n", cfg.SessionStore)
		os.Exit(1)
	}

	if *showVersion {
		v, dirty, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		fmt.Printf("version %d (dirty=%t)\n", v, dirty)
		return
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
