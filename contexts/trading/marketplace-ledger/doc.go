// Package marketplaceledger contains the croakmarket marketplace ledger:
// item minting, fee-bearing direct sales, and timed ascending-price auctions
// with automatic refund of outbid participants.
//
// The module keeps domain/application logic decoupled from runtime/platform
// concerns through ports and adapter composition.
package marketplaceledger
