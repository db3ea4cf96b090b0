package main

import (
	"fmt"
	"log"
	"os"

	"github.com/questforge/platform-guard/internal/infra/security"
)

// Generates the encoded hash expected in GUARD_AUTH_ADMIN_KEY_HASH from a
// plaintext admin key.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <admin-key>\n", os.Args[0])
		os.Exit(2)
	}

	hash, err := security.HashAdminKey(os.Args[1])
	if err != nil {
		log.Fatalf("failed to hash key: %v", err)
	}

	fmt.Println(hash)
}
