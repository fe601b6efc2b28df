// Command hashkey hashes an operator API key for use as auth.ops_key_hash in
// the marketd configuration. The key is read from the first argument or, when
// absent, from stdin.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/propchain/marketd/internal/crypto"
)

func main() {
	var key string
	if len(os.Args) > 1 {
		key = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "operator key: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "read key: %v\n", err)
			os.Exit(1)
		}
		key = strings.TrimSpace(line)
	}

	if key == "" {
		fmt.Fprintln(os.Stderr, "usage: hashkey [key]")
		os.Exit(1)
	}

	hash, err := crypto.HashAPIKey(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
