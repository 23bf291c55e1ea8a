package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/phash/playtogether-sub000/internal/db"
	"github.com/phash/playtogether-sub000/internal/migrations"
)

func main() {
	apply := flag.Bool("apply", false, "apply migrations")
	flag.Parse()

	all, err := migrations.All()
	if err != nil {
		log.Fatalf("load migrations: %v", err)
	}
	if !*apply {
		for _, m := range all {
			fmt.Println(m.Name)
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool, err := db.Connect(context.Background(), dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	for _, m := range all {
		if _, err := pool.Exec(context.Background(), m.SQL); err != nil {
			log.Fatalf("failed to apply %s: %v", m.Name, err)
		}
		fmt.Printf("applied %s\n", m.Name)
	}
}
