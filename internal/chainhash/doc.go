// Package chainhash is the record hash used by chained tables.
//
// A record hash is SHA-256 over a domain prefix, a null separator and the
// canonical JSON (RFC 8785 subset) of the record's key, values, timestamp
// and previous hash:
//
//	SHA256("chainaudit/record/v1" + 0x00 + canonical)
//
// Byte values are hex encoded. NULL values encode as JSON null, so a NULL
// column and an empty column never hash alike. Record satisfies
// chain.HashFunc.
package chainhash
