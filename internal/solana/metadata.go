package solana

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// TokenMetadata is what can be learned about a mint from chain state alone.
type TokenMetadata struct {
	Mint     string
	Name     string
	Symbol   string
	Decimals int
	Supply   uint64 // raw units
}

// ErrNoViablePDA is returned when no bump seed yields an off-curve address.
var ErrNoViablePDA = errors.New("no viable program address")

// MetadataFetcher reads SPL mint accounts and Metaplex metadata accounts.
type MetadataFetcher struct {
	rpc RPCClient
}

// NewMetadataFetcher creates a fetcher on top of rpc.
func NewMetadataFetcher(rpc RPCClient) *MetadataFetcher {
	return &MetadataFetcher{rpc: rpc}
}

// Fetch returns decimals/supply from the mint account and name/symbol from
// the Metaplex metadata PDA. Returns nil, nil if the mint does not exist.
// A missing or malformed metadata account leaves Name and Symbol empty.
func (f *MetadataFetcher) Fetch(ctx context.Context, mint string) (*TokenMetadata, error) {
	mintInfo, err := f.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account: %w", err)
	}
	if mintInfo == nil {
		return nil, nil
	}

	meta := &TokenMetadata{Mint: mint}
	if err := parseMintAccount(mintInfo.Data, meta); err != nil {
		return nil, err
	}

	pda, err := MetadataPDA(mint)
	if err != nil {
		return meta, nil
	}
	info, err := f.rpc.GetAccountInfo(ctx, pda)
	if err == nil && info != nil {
		parseMetaplexAccount(info.Data, meta)
	}
	return meta, nil
}

// parseMintAccount reads the 82-byte SPL mint layout:
// mintAuthority COption<Pubkey> (36) | supply u64 | decimals u8 | ...
func parseMintAccount(data string, meta *TokenMetadata) error {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("decode mint data: %w", err)
	}
	if len(raw) < 82 {
		return fmt.Errorf("mint data too short: %d", len(raw))
	}
	meta.Supply = binary.LittleEndian.Uint64(raw[36:44])
	meta.Decimals = int(raw[44])
	return nil
}

// parseMetaplexAccount reads key(1) | updateAuthority(32) | mint(32) |
// name borsh string | symbol borsh string. Fields are NUL padded on chain.
func parseMetaplexAccount(data string, meta *TokenMetadata) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(raw) < 69 || raw[0] != 4 {
		return
	}

	offset := 65
	name, offset, ok := readBorshString(raw, offset, 100)
	if !ok {
		return
	}
	symbol, _, ok := readBorshString(raw, offset, 20)
	if !ok {
		return
	}
	meta.Name = name
	meta.Symbol = symbol
}

func readBorshString(raw []byte, offset, max int) (string, int, bool) {
	if offset+4 > len(raw) {
		return "", offset, false
	}
	n := int(binary.LittleEndian.Uint32(raw[offset:]))
	offset += 4
	if n > max || offset+n > len(raw) {
		return "", offset, false
	}
	s := strings.TrimSpace(strings.TrimRight(string(raw[offset:offset+n]), "\x00"))
	return s, offset + n, true
}

// MetadataPDA derives the Metaplex metadata account for mint.
// Seeds: ["metadata", program id, mint].
func MetadataPDA(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil || len(mintBytes) != 32 {
		return "", fmt.Errorf("invalid mint %q", mint)
	}
	program, _ := base58.Decode(MetadataProgramID)

	addr, _, err := FindProgramAddress([][]byte{[]byte("metadata"), program, mintBytes}, program)
	return addr, err
}

// FindProgramAddress searches bump seeds from 255 down for the first
// hash that is not a valid ed25519 point.
func FindProgramAddress(seeds [][]byte, programID []byte) (string, uint8, error) {
	for bump := 255; bump > 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID)
		h.Write([]byte("ProgramDerivedAddress"))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViablePDA
}

func isOnCurve(point []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
