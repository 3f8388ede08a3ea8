package domain

import "encoding/json"

// Network is the ledger cluster the wallet session points at.
// Selection is cosmetic at this layer.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
)

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	switch n := Network(s); n {
	case NetworkMainnet, NetworkDevnet, NetworkTestnet:
		return n, nil
	}
	return "", ErrInvalidNetwork
}

// Session is the wallet connection state. Address and Balance are set
// iff Connected.
type Session struct {
	ID        string  `json:"id,omitempty"`
	Connected bool    `json:"connected"`
	Address   string  `json:"wallet_address,omitempty"`
	Balance   float64 `json:"wallet_balance"`
	Network   Network `json:"network"`
}

// MarshalJSON omits wallet_balance while disconnected. A connected session
// always carries it, zero included.
func (s Session) MarshalJSON() ([]byte, error) {
	type plain Session
	out := struct {
		plain
		Balance *float64 `json:"wallet_balance,omitempty"`
	}{plain: plain(s)}
	if s.Connected {
		out.Balance = &s.Balance
	}
	return json.Marshal(out)
}

// SessionInfo is what connect hands back to the caller.
type SessionInfo struct {
	ID      string  `json:"id"`
	Address string  `json:"wallet_address"`
	Balance float64 `json:"wallet_balance"`
	Network Network `json:"network"`
}

// Info returns the caller-facing view of s.
func (s Session) Info() SessionInfo {
	return SessionInfo{ID: s.ID, Address: s.Address, Balance: s.Balance, Network: s.Network}
}
