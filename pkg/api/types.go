package api

import (
	"github.com/ssargent/dblog/pkg/chainindex"
	"github.com/ssargent/dblog/pkg/codec"
	"github.com/ssargent/dblog/pkg/ledger"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// CreateRecordRequest is the body of POST /api/v1/records.
type CreateRecordRequest struct {
	Nonce       string  `json:"nonce"`
	ContentURI  string  `json:"content_uri"`
	Title       string  `json:"title"`
	Encrypted   bool    `json:"encrypted"`
	EncryptHint *string `json:"encrypt_hint,omitempty"`
	// Owner defaults to the node's payer key.
	Owner       string `json:"owner,omitempty"`
	Predecessor string `json:"predecessor,omitempty"`
	// Tag is passed through as a remaining account; it is not stored.
	Tag string `json:"tag,omitempty"`
}

// RecordResponse is a record with its address.
type RecordResponse struct {
	Address ledger.Pubkey `json:"address"`
	Record  *codec.Record `json:"record"`
}

// CreateRecordResponse adds the commit receipt.
type CreateRecordResponse struct {
	RecordResponse
	TxID string `json:"tx_id"`
}

// RecordChainResponse places a record in its chain.
type RecordChainResponse struct {
	Address     ledger.Pubkey       `json:"address"`
	ChainID     string              `json:"chain_id"`
	Head        ledger.Pubkey       `json:"head"`
	Path        []ledger.Pubkey     `json:"path"`
	Successors  []*chainindex.Entry `json:"successors"`
	Descendants []*chainindex.Entry `json:"descendants"`
}

// ChainResponse lists every record carrying a chain id.
type ChainResponse struct {
	ChainID string              `json:"chain_id"`
	Heads   []ledger.Pubkey     `json:"heads"`
	Length  int                 `json:"length"`
	Records []*chainindex.Entry `json:"records"`
}

// StatsResponse is returned by GET /api/v1/stats.
type StatsResponse struct {
	ProgramID      ledger.Pubkey `json:"program_id"`
	Payer          ledger.Pubkey `json:"payer"`
	RecordsIndexed int           `json:"records_indexed"`
	RecordSpace    int           `json:"record_space"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind           string
	Port           int
	APIKey         string
	AllowedOrigins []string
}
