//go:build ignore

// Generates the secrets campus-access reads from the environment.
// Run with: go run scripts/generate_keys.go >> .env
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

type secret struct {
	env    string
	length int
}

var secrets = []secret{
	{env: "JWT_SECRET_KEY", length: 32},
	{env: "JWT_REFRESH_SECRET_KEY", length: 32},
	{env: "METRICS_API_KEYS", length: 24},
	{env: "ADMIN_PASSWORD", length: 18},
}

func generateSecureKey(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func main() {
	fmt.Println("# campus-access secrets, one set per environment")
	for _, s := range secrets {
		key, err := generateSecureKey(s.length)
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate %s: %v\n", s.env, err)
			os.Exit(1)
		}
		fmt.Printf("%s=%s\n", s.env, key)
	}
}
