package strategy

import (
	"regexp"

	"github.com/mr-tron/base58"

	"solana-token-radar/internal/solana"
)

// SPL token instruction tags that create a mint.
const (
	ixInitializeMint  = 0
	ixInitializeMint2 = 20
)

// creationLog matches program log lines for pool or mint creation.
var creationLog = regexp.MustCompile(`(?i)initialize2|initialize_?pool|create_?pool|initialize_?mint|instruction: create$`)

// MatchesCreation reports whether any log line announces a pool or mint
// creation.
func MatchesCreation(logs []string) bool {
	for _, line := range logs {
		if creationLog.MatchString(line) {
			return true
		}
	}
	return false
}

// ExtractMints returns new-token mints touched by tx: mints created by
// initializeMint instructions first, then mints seen in post token
// balances. Quote assets are excluded and order is stable.
func ExtractMints(tx *solana.Transaction) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(mint string) {
		if mint == "" || seen[mint] || solana.IsQuoteMint(mint) {
			return
		}
		seen[mint] = true
		out = append(out, mint)
	}

	for _, mint := range InitializedMints(tx) {
		add(mint)
	}
	if tx != nil && tx.Meta != nil {
		for _, b := range tx.Meta.PostTokenBalances {
			add(b.Mint)
		}
	}
	return out
}

// InitializedMints returns mints created by InitializeMint/InitializeMint2,
// top-level and inner instructions alike.
func InitializedMints(tx *solana.Transaction) []string {
	if tx == nil || tx.Message == nil {
		return nil
	}
	keys := tx.AccountKeys()

	var out []string
	visit := func(ix solana.Instruction) {
		if mint, ok := initializedMint(ix, keys); ok {
			out = append(out, mint)
		}
	}
	for _, ix := range tx.Message.Instructions {
		visit(ix)
	}
	if tx.Meta != nil {
		for _, inner := range tx.Meta.InnerInstructions {
			for _, ix := range inner.Instructions {
				visit(ix)
			}
		}
	}
	return out
}

func initializedMint(ix solana.Instruction, keys []string) (string, bool) {
	if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(keys) {
		return "", false
	}
	program := keys[ix.ProgramIDIndex]
	if program != solana.TokenProgramID && program != solana.Token2022ProgramID {
		return "", false
	}
	if len(ix.Accounts) == 0 || ix.Accounts[0] < 0 || ix.Accounts[0] >= len(keys) {
		return "", false
	}
	data, err := base58.Decode(ix.Data)
	if err != nil || len(data) == 0 {
		return "", false
	}
	if data[0] != ixInitializeMint && data[0] != ixInitializeMint2 {
		return "", false
	}
	return keys[ix.Accounts[0]], true
}
