// Package types provides common type definitions for the wallet dashboard service.
package types

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionDirection represents whether a transfer is incoming or outgoing for the viewer
type TransactionDirection string

const (
	// DirectionInbound represents a transfer whose recipient is the viewer
	DirectionInbound TransactionDirection = "in"
	// DirectionOutbound represents any other transfer
	DirectionOutbound TransactionDirection = "out"
)

// RecordKind distinguishes native transfers from token transfers in merged views
type RecordKind string

const (
	// KindNative represents a native-currency transaction (explorer txlist)
	KindNative RecordKind = "native"
	// KindToken represents an ERC-20 transfer (explorer tokentx)
	KindToken RecordKind = "token"
)

// NativeAssetAddress is the contract-address sentinel of the native asset row
const NativeAssetAddress = ""

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NativeTransaction is a native-currency transaction as listed by the block explorer
type NativeTransaction struct {
	Hash            string `json:"hash"`
	BlockNumber     string `json:"blockNumber"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"` // smallest unit (wei)
	Timestamp       int64  `json:"timestamp"`
	IsError         bool   `json:"isError"`
	TxReceiptStatus string `json:"txReceiptStatus,omitempty"`
	Gas             string `json:"gas,omitempty"`
	GasPrice        string `json:"gasPrice,omitempty"`
	GasUsed         string `json:"gasUsed,omitempty"`
	Nonce           string `json:"nonce,omitempty"`
	FunctionName    string `json:"functionName,omitempty"`
	MethodID        string `json:"methodId,omitempty"`
	Confirmations   string `json:"confirmations,omitempty"`
}

// TokenTransaction is an ERC-20 transfer as listed by the block explorer
type TokenTransaction struct {
	Hash            string `json:"hash"`
	BlockNumber     string `json:"blockNumber"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"` // smallest unit of the token
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
	Timestamp       int64  `json:"timestamp"`
	Gas             string `json:"gas,omitempty"`
	GasPrice        string `json:"gasPrice,omitempty"`
	GasUsed         string `json:"gasUsed,omitempty"`
	Nonce           string `json:"nonce,omitempty"`
	Confirmations   string `json:"confirmations,omitempty"`
}

// ActivityRecord is the kind-agnostic view of a transfer used for day grouping
type ActivityRecord struct {
	Kind            RecordKind `json:"kind"`
	Hash            string     `json:"hash"`
	From            string     `json:"from"`
	To              string     `json:"to"`
	Value           string     `json:"value"`
	Timestamp       int64      `json:"timestamp"`
	ContractAddress string     `json:"contractAddress,omitempty"`
	TokenSymbol     string     `json:"tokenSymbol,omitempty"`
	TokenName       string     `json:"tokenName,omitempty"`
	TokenDecimal    string     `json:"tokenDecimal,omitempty"`
}

// Record converts a native transaction into its activity view
func (tx NativeTransaction) Record() ActivityRecord {
	return ActivityRecord{
		Kind:      KindNative,
		Hash:      tx.Hash,
		From:      tx.From,
		To:        tx.To,
		Value:     tx.Value,
		Timestamp: tx.Timestamp,
	}
}

// Record converts a token transfer into its activity view
func (tx TokenTransaction) Record() ActivityRecord {
	return ActivityRecord{
		Kind:            KindToken,
		Hash:            tx.Hash,
		From:            tx.From,
		To:              tx.To,
		Value:           tx.Value,
		Timestamp:       tx.Timestamp,
		ContractAddress: tx.ContractAddress,
		TokenSymbol:     tx.TokenSymbol,
		TokenName:       tx.TokenName,
		TokenDecimal:    tx.TokenDecimal,
	}
}

// DayBucket holds the records attributed to one UTC calendar date
type DayBucket struct {
	Date    string           `json:"date"` // YYYY-MM-DD
	Records []ActivityRecord `json:"records"`
}

// TokenHolding is one asset row of a wallet portfolio.
// Balance and Price are decimal strings; an empty string means the value is absent.
type TokenHolding struct {
	ContractAddress string          `json:"contractAddress"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Decimals        int             `json:"decimals"`
	Balance         string          `json:"balance,omitempty"`
	Price           string          `json:"price,omitempty"`
	USDValue        decimal.Decimal `json:"usdValue"`
	Percentage      decimal.Decimal `json:"percentage"`
}

// IsNative reports whether the holding is the network's native asset
func (h TokenHolding) IsNative() bool {
	return h.ContractAddress == NativeAssetAddress
}

// WalletBalance is the native balance of an address in smallest units
type WalletBalance struct {
	Value    *big.Int `json:"value"`
	Decimals int      `json:"decimals"`
	Symbol   string   `json:"symbol"`
}

// PriceQuote is the USD price of one unit of an asset
type PriceQuote struct {
	Symbol    string          `json:"symbol"`
	USD       decimal.Decimal `json:"usd"`
	FetchedAt time.Time       `json:"fetchedAt"`
}
