// Command gensecret prints random hex key for SECRET_KEY
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultKeyBytesLen = 32

func main() {
	fs := pflag.NewFlagSet("gensecret", pflag.ExitOnError)
	size := fs.IntP("bytes", "b", defaultKeyBytesLen, "Key length in bytes")
	asEnv := fs.Bool("env", false, "Print as SECRET_KEY=<key> line for .env")
	_ = fs.Parse(os.Args[1:])

	key, err := generate(*size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	if *asEnv {
		fmt.Printf("SECRET_KEY=%s\n", key)
		return
	}
	fmt.Println(key)
}

func generate(size int) (string, error) {
	if size < 16 {
		return "", fmt.Errorf("key must be at least 16 bytes, got %d", size)
	}

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
