package index

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jonwraymond/toolrouting/model"
)

// computeFingerprint generates a stable hash of the document slice.
// The fingerprint changes when document content changes, enabling
// efficient cache invalidation for the lexical index. Callers pass
// documents in a deterministic order (the store sorts by ID).
func computeFingerprint(docs []model.Document) string {
	h := sha256.New()

	for _, doc := range docs {
		h.Write([]byte(doc.ID))
		h.Write([]byte{0}) // separator
		h.Write([]byte(doc.Text))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}
