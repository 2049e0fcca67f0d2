package livediff

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// fingerprintStatics calculates a 64-bit fingerprint (truncated MD5) over the
// static skeleton of a compiled template. The statics are serialized as
// canonical JSON, which also fixes the slot count and positions: two templates
// share a fingerprint exactly when their static text runs and slot positions
// are identical. Dynamic values never participate, so the fingerprint is
// stable across renders of the same template.
func fingerprintStatics(statics []string) string {
	canonical, err := json.Marshal(statics)
	if err != nil {
		// A []string cannot fail to marshal; keep the signature simple.
		panic(err)
	}
	sum := md5.Sum(canonical)
	full := hex.EncodeToString(sum[:])
	return full[:16]
}
