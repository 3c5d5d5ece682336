package strategy

import (
	"reflect"
	"testing"

	"github.com/mr-tron/base58"

	"solana-token-radar/internal/solana"
)

func TestMatchesCreation(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Program log: initialize2: InitializeInstruction2 { nonce: 254 }", true},
		{"Program log: Instruction: InitializePool", true},
		{"Program log: Instruction: initialize_pool", true},
		{"Program log: Instruction: CreatePool", true},
		{"Program log: create_pool", true},
		{"Program log: Instruction: InitializeMint2", true},
		{"Program log: Instruction: Create", true},
		{"Program log: Instruction: CreateIdempotent", false},
		{"Program log: Instruction: Swap", false},
		{"Program log: Instruction: Transfer", false},
	}

	for _, tt := range tests {
		if got := MatchesCreation([]string{tt.line}); got != tt.want {
			t.Errorf("MatchesCreation(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}

	if MatchesCreation(nil) {
		t.Error("no logs should not match")
	}
}

func TestExtractMints(t *testing.T) {
	tx := initMintTx("sig1", testMint)
	tx.Meta.PostTokenBalances = append(tx.Meta.PostTokenBalances,
		solana.TokenBalance{AccountIndex: 5, Mint: testMint2},
		solana.TokenBalance{AccountIndex: 6, Mint: solana.USDCMint},
	)

	got := ExtractMints(tx)
	want := []string{testMint, testMint2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractMints = %v, want %v", got, want)
	}
}

func TestInitializedMints_InnerInstructions(t *testing.T) {
	tx := &solana.Transaction{
		Signature: "sig",
		Message: &solana.TransactionMessage{
			AccountKeys: []string{testPayer, solana.PumpFun},
			Instructions: []solana.Instruction{
				{ProgramIDIndex: 1, Accounts: []int{0}, Data: base58.Encode([]byte{24, 1, 2})},
			},
		},
		Meta: &solana.TransactionMeta{
			// mint and token program come from a lookup table
			LoadedWritable: []string{testMint},
			LoadedReadonly: []string{solana.Token2022ProgramID},
			InnerInstructions: []solana.InnerInstructions{{
				Index: 0,
				Instructions: []solana.Instruction{
					{ProgramIDIndex: 3, Accounts: []int{2}, Data: base58.Encode([]byte{ixInitializeMint, 9})},
					{ProgramIDIndex: 3, Accounts: []int{2}, Data: base58.Encode([]byte{3, 0})}, // transfer
				},
			}},
		},
	}

	got := InitializedMints(tx)
	if !reflect.DeepEqual(got, []string{testMint}) {
		t.Fatalf("InitializedMints = %v", got)
	}
}

func TestInitializedMints_IgnoresMalformed(t *testing.T) {
	tx := &solana.Transaction{
		Message: &solana.TransactionMessage{
			AccountKeys: []string{testMint, solana.TokenProgramID},
			Instructions: []solana.Instruction{
				{ProgramIDIndex: 9, Accounts: []int{0}, Data: "1"},                                      // program out of range
				{ProgramIDIndex: 1, Accounts: nil, Data: base58.Encode([]byte{ixInitializeMint2})},      // no accounts
				{ProgramIDIndex: 1, Accounts: []int{7}, Data: base58.Encode([]byte{ixInitializeMint2})}, // account out of range
				{ProgramIDIndex: 1, Accounts: []int{0}, Data: "0OIl"},                                   // not base58
				{ProgramIDIndex: 0, Accounts: []int{0}, Data: base58.Encode([]byte{ixInitializeMint2})}, // not a token program
			},
		},
	}
	if got := InitializedMints(tx); len(got) != 0 {
		t.Fatalf("expected nothing, got %v", got)
	}
	if got := InitializedMints(nil); got != nil {
		t.Fatalf("expected nil for nil tx, got %v", got)
	}
}
