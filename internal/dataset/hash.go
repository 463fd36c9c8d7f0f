package dataset

// hash.go - per-record content fingerprints for lineage

import (
	"crypto/md5" //nolint:gosec // content fingerprint for lineage, not security
	"encoding/hex"
	"strings"
)

// hashSeparator joins field values before hashing. Fixed; changing it would
// break hash stability across runs.
const hashSeparator = "|"

// RecordHash computes a deterministic content fingerprint of one record:
// MD5 over the stable string form of each field value, in column order,
// joined with "|". Identical values in identical order always produce the
// same hash. Used for lineage and audit, not for deduplication keys.
func RecordHash(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatValue(v)
	}
	sum := md5.Sum([]byte(strings.Join(parts, hashSeparator))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// RowHash computes the record hash for row i of a Dataset.
func (d *Dataset) RowHash(i int) string {
	return RecordHash(d.rows[i])
}
