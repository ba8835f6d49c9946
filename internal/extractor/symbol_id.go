package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// StableSymbolID creates a deterministic identity for a declaration.
// Positions are not part of the identity, so the id survives edits
// elsewhere in the file.
func StableSymbolID(project string, d Declaration) string {
	lang := strings.TrimSpace(d.Language)
	if lang == "" {
		lang = "unknown"
	}

	ns := strings.TrimSpace(d.Namespace)
	if ns == "" {
		ns = "_"
	}

	kind := strings.TrimSpace(string(d.Kind))
	if kind == "" {
		kind = "symbol"
	}

	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = "_"
	}

	fingerprint := strings.Join([]string{
		project,
		lang,
		ns,
		kind,
		d.Container,
		name,
	}, "|")

	sum := sha256.Sum256([]byte(fingerprint))
	short := hex.EncodeToString(sum[:8])
	return fmt.Sprintf("%s/%s:%s:%s:%s", lang, ns, kind, name, short)
}
