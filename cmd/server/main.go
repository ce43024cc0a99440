package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"quantum_chess_poc/internal/httpx"
)

func main() {
	addr := flag.String("addr", getenv("QCHESS_ADDR", ":8080"), "listen address")
	flag.Parse()

	srv := httpx.NewServer()
	if err := srv.Listen(*addr); err != nil {
		log.Fatal(err)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}
