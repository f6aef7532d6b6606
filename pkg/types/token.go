package types

// TokenAmount is an amount of a single token carried by a box.
type TokenAmount struct {
	ID     TokenID `json:"tokenId"`
	Amount uint64  `json:"amount"`
}

// CloneTokens returns a copy of a token list so produced outputs never
// alias the slice of a consumed box.
func CloneTokens(tokens []TokenAmount) []TokenAmount {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]TokenAmount, len(tokens))
	copy(out, tokens)
	return out
}
