package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/minvoker/tariff-calculator/internal/metering"
)

// Checksum fingerprints one calculation's complete input: tariff version,
// canonical tariff JSON, the ordered readings, and the period bounds. Equal
// inputs always produce equal checksums, which is the sole idempotence
// mechanism for stored results.
func Checksum(versionID string, canonicalJSON []byte, readings []metering.Reading, start, end time.Time) string {
	h := sha256.New()
	h.Write([]byte(versionID))
	h.Write(canonicalJSON)
	for _, r := range readings {
		h.Write([]byte(r.Timestamp.UTC().Format(time.RFC3339Nano)))
		h.Write([]byte(strconv.FormatFloat(r.KWh, 'g', -1, 64)))
	}
	h.Write([]byte(start.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(end.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}
