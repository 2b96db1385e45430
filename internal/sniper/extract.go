package sniper

import (
	"raydium-sniper-go/internal/config"
	"raydium-sniper-go/internal/solana"

	"github.com/mr-tron/base58"
)

// knownAddresses are accounts that can never be the new token's mint:
// the pool program itself, its authority, the system programs a pool
// creation touches, and wrapped SOL.
var knownAddresses = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, raw := range [][]byte{
		config.RaydiumV4ProgramID,
		config.RaydiumAuthority,
		config.SystemProgramID,
		config.TokenProgramID,
		config.AssociatedTokenProgramID,
		config.RentProgramID,
		config.ComputeBudgetProgramID,
		config.NativeSOLMint,
	} {
		set[base58.Encode(raw)] = struct{}{}
	}
	return set
}()

// ExtractCandidate pulls the new token's mint out of a pool-creation
// transaction. The post token balances name both pool legs directly, so the
// non-SOL leg is the answer. Some transactions arrive without balance
// metadata; for those, fall back to scanning the account keys for the one
// address that is neither a signer nor a known program. ownAddress is the
// bot's wallet, which can never be the mint.
func ExtractCandidate(tx *solana.ParsedTransaction, ownAddress string) (*Candidate, error) {
	if tx == nil {
		return nil, ErrNoCandidate
	}

	wsol := config.NativeSOLMintBase58()
	programID := config.RaydiumV4ProgramIDBase58()

	if tx.Meta != nil {
		for _, balance := range tx.Meta.PostTokenBalances {
			if balance.Mint == "" || balance.Mint == wsol || balance.Mint == ownAddress {
				continue
			}
			if balance.Owner == programID {
				continue
			}
			return &Candidate{
				Mint:   balance.Mint,
				Source: "token_balances",
			}, nil
		}
	}

	for _, key := range tx.Transaction.Message.AccountKeys {
		if key.Signer || key.Pubkey == ownAddress {
			continue
		}
		if _, known := knownAddresses[key.Pubkey]; known {
			continue
		}
		return &Candidate{
			Mint:   key.Pubkey,
			Source: "account_keys",
		}, nil
	}

	return nil, ErrNoCandidate
}
