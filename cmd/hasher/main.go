package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/rada-ai/rada-vms/internal/auth"
)

// hasher prints a bcrypt hash for manual user inserts.
func main() {
	password := flag.String("password", "", "password to hash")
	flag.Parse()

	if *password == "" {
		log.Fatal("usage: hasher -password <pw>")
	}
	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hash)
}
