package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/veldt/estuary/errors"
)

// Fingerprint is a reproducible identifier of "what produced this cached
// data and under what inputs": the adapter's identity plus a hash over its
// declared dependency values.
type Fingerprint struct {
	Adapter string
	Hash    string
}

// NewFingerprint hashes the adapter identity together with its dependency
// values. Dependency keys are sorted so the fingerprint is stable across
// map iteration order.
func NewFingerprint(adapter, module string, deps map[string]string) Fingerprint {
	h := sha256.New()
	fmt.Fprintf(h, "adapter=%s\n", adapter)
	fmt.Fprintf(h, "module=%s\n", module)

	keys := make([]string, 0, len(deps))
	for k := range deps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, deps[k])
	}

	return Fingerprint{
		Adapter: adapter,
		Hash:    hex.EncodeToString(h.Sum(nil)),
	}
}

// DepFile summarizes an input file's identity (size and mtime) for use as
// a dependency value, so edited or refreshed exports invalidate the cache
// without hashing their content. A missing file is a valid dependency
// value: the cache entry then invalidates when the file appears.
func DepFile(path string) (string, error) {
	st, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "absent", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "stat dependency %s", path)
	}
	return fmt.Sprintf("%d:%d", st.Size(), st.ModTime().UnixNano()), nil
}
