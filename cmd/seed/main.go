// Command seed is a small local-dev bootstrapping CLI: it whitelists a
// set of tokens into a token-registry file and prints the flag-derived
// configuration summary cmd/executor expects at startup, the Go-idiomatic
// equivalent of the original contract's get-contract-addr.py deployment
// helper (SPEC_FULL.md §9). It does not talk to a running engine over the
// network — there is no RPC surface for administrative calls in this
// system, only the in-process Engine a single cmd/executor owns — so it
// writes the registry file cmd/executor reads via TOKEN_REGISTRY_PATH.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	outPath    = flag.String("out", "tokens.json", "Path to write the token registry JSON file")
	tokensFlag = flag.String("tokens", "", "Comma-separated token_id:address:decimals entries, e.g. USDC-012345:0xabc...:6")
	poolAddr   = flag.String("pool", "", "Pool address to print in the summary (set via SetPool on a running engine separately)")
	execAddr   = flag.String("executor", "", "Operator address to print in the summary (set via SetExecutor on a running engine separately)")
)

type tokenEntry struct {
	TokenID  string `json:"token_id"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

func main() {
	flag.Parse()

	if *tokensFlag == "" {
		fmt.Fprintln(os.Stderr, "error: -tokens is required")
		flag.Usage()
		os.Exit(1)
	}

	entries, err := parseTokens(*tokensFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := writeRegistry(*outPath, entries); err != nil {
		fmt.Fprintf(os.Stderr, "error writing registry: %v\n", err)
		os.Exit(1)
	}

	printSummary(entries)
}

// parseTokens parses "-tokens" into tokenEntry records. Each entry is
// "token_id:address:decimals"; addresses are not validated as checksums
// here, only forwarded as-is to tokenregistry.LoadFromFile.
func parseTokens(raw string) ([]tokenEntry, error) {
	var out []tokenEntry
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed token entry %q, want token_id:address:decimals", part)
		}
		decimals, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid decimals in %q: %w", part, err)
		}
		out = append(out, tokenEntry{
			TokenID:  fields[0],
			Address:  fields[1],
			Decimals: uint8(decimals),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid token entries parsed")
	}
	return out, nil
}

func writeRegistry(path string, entries []tokenEntry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func printSummary(entries []tokenEntry) {
	fmt.Println("Token registry seeded:")
	for _, e := range entries {
		fmt.Printf("  - %s -> %s (%d decimals)\n", e.TokenID, e.Address, e.Decimals)
	}
	fmt.Println()
	fmt.Printf("Wrote %s\n", *outPath)
	fmt.Println()
	fmt.Println("Set these before starting cmd/executor:")
	fmt.Printf("  TOKEN_REGISTRY_PATH=%s\n", *outPath)
	if *poolAddr != "" {
		fmt.Printf("  CONTRACT_ADDRESS=%s\n", *poolAddr)
	}
	if *execAddr != "" {
		fmt.Printf("  # operator address once derived from OPERATOR_KEY_PATH should match: %s\n", *execAddr)
	}
}
