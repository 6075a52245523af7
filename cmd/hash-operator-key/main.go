package main

import (
	"fmt"
	"os"

	"github.com/lnmn249/faire-lightspeed-lite/internal/api/middleware"
)

// hash-operator-key prints the bcrypt hash for an operator API key, for use
// as OPERATOR_API_KEY_HASH.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hash-operator-key <api-key>")
		os.Exit(2)
	}

	hash := middleware.HashAPIKey(os.Args[1])
	if hash == "" {
		fmt.Fprintln(os.Stderr, "Failed to hash key")
		os.Exit(1)
	}
	fmt.Println(hash)
}
