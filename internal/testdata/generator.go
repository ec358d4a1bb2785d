package testdata

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Files describes a generated fixture set.
type Files struct {
	Paths []string
	// Contents maps each path to the bytes written to it.
	Contents map[string][]byte
}

// GenerateFiles writes n files of pseudo-random content into dir. Every
// dupEvery-th file repeats the content of the file before it, so the set
// always contains duplicates when dupEvery > 1. The same seed yields the same
// contents; names are random.
func GenerateFiles(dir string, n, dupEvery int, seed int64) (Files, error) {
	r := rand.New(rand.NewSource(seed))
	out := Files{Contents: make(map[string][]byte, n)}

	var prev []byte
	for i := 0; i < n; i++ {
		var data []byte
		if dupEvery > 1 && i > 0 && i%dupEvery == 0 {
			data = prev
		} else {
			data = make([]byte, 256+r.Intn(64*1024))
			r.Read(data)
		}
		p := filepath.Join(dir, fmt.Sprintf("%03d-%s.bin", i, uuid.NewString()))
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return Files{}, err
		}
		out.Paths = append(out.Paths, p)
		out.Contents[p] = data
		prev = data
	}
	return out, nil
}
