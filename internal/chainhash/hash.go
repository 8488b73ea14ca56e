package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainRecord is the domain prefix of record hashes. The version suffix
// leaves room for algorithm migration.
const DomainRecord = "chainaudit/record/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null byte keeps domain and data from running into each other.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Record computes the hash of one chained record.
func Record(key []byte, values [][]byte, timestamp []byte, previousHash string) string {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = hexOrNull(v)
	}
	obj := map[string]any{
		"key":           hexOrNull(key),
		"values":        vals,
		"timestamp":     hexOrNull(timestamp),
		"previous_hash": previousHash,
	}

	// Only nil, string, []any and map[string]any are used above.
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		panic("chainhash: " + err.Error())
	}
	return hashWithDomain(DomainRecord, canonical)
}

func hexOrNull(b []byte) any {
	if b == nil {
		return nil
	}
	return hex.EncodeToString(b)
}
