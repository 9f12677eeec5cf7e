// Package dex implements the constant-product AMM pools, the token
// registry bootstrapped at startup, and the shared in-memory order book
// that resting limit orders match against.
package dex

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Token describes one entry in the fixed startup registry.
type Token struct {
	Symbol      string
	Name        string
	TotalSupply float64
	Decimals    int
}

// poolSeed is one entry in the fixed pool bootstrap list.
type poolSeed struct {
	TokenA string
	TokenB string
	FeeBps int
}

//go:embed bootstrap.yaml
var bootstrapYAML []byte

type bootstrapDoc struct {
	Tokens []struct {
		Symbol      string  `yaml:"symbol"`
		Name        string  `yaml:"name"`
		TotalSupply float64 `yaml:"total_supply"`
		Decimals    int     `yaml:"decimals"`
	} `yaml:"tokens"`
	Pools []struct {
		TokenA string `yaml:"token_a"`
		TokenB string `yaml:"token_b"`
		FeeBps int    `yaml:"fee_bps"`
	} `yaml:"pools"`
}

// BootstrapTokens returns the fixed token set created at startup, parsed
// from the embedded bootstrap.yaml. Every other component refers to
// tokens by symbol; this list is the single source of truth for which
// symbols exist.
func BootstrapTokens() []Token {
	doc := mustParseBootstrap()
	tokens := make([]Token, 0, len(doc.Tokens))
	for _, t := range doc.Tokens {
		tokens = append(tokens, Token{Symbol: t.Symbol, Name: t.Name, TotalSupply: t.TotalSupply, Decimals: t.Decimals})
	}
	return tokens
}

// BootstrapPools returns the fixed pool list created at startup, before
// system-owned liquidity is added to each, parsed from the embedded
// bootstrap.yaml.
func BootstrapPools() []poolSeed {
	doc := mustParseBootstrap()
	pools := make([]poolSeed, 0, len(doc.Pools))
	for _, p := range doc.Pools {
		pools = append(pools, poolSeed{TokenA: p.TokenA, TokenB: p.TokenB, FeeBps: p.FeeBps})
	}
	return pools
}

func mustParseBootstrap() bootstrapDoc {
	var doc bootstrapDoc
	if err := yaml.Unmarshal(bootstrapYAML, &doc); err != nil {
		panic(fmt.Sprintf("dex: parsing embedded bootstrap.yaml: %v", err))
	}
	return doc
}

// PoolID is the canonical identifier for a pool, derived from its pair.
func PoolID(tokenA, tokenB string) string {
	return tokenA + "-" + tokenB
}
