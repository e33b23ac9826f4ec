// Package chain implements the proof-of-work block and the append-only ledger
// that holds it.
//
// Every block carries a SHA-256 hash over its index, timestamp, data, the hash
// of its predecessor and a nonce. NewBlock searches for the smallest nonce
// whose hash starts with Difficulty zero hex digits. The ledger starts from a
// mined genesis block whose PreviousHash is GenesisPrevHash.
//
// The Ledger type is not safe for concurrent use; callers that share one must
// serialise access (see internal/node).
package chain
