package matcher

import (
	"io"
	"os"
	"path"
	"strings"
)

// binarySampleSize is how many leading bytes are classified.
const binarySampleSize = 4096

// nonTextRatio above which a sample is considered binary.
const nonTextRatio = 0.30

// textExtensions are always treated as text, skipping byte sampling.
var textExtensions = map[string]bool{
	".cs":      true,
	".csproj":  true,
	".sln":     true,
	".razor":   true,
	".cshtml":  true,
	".xaml":    true,
	".css":     true,
	".props":   true,
	".targets": true,
	".config":  true,
	".xml":     true,
	".json":    true,
	".yaml":    true,
	".yml":     true,
	".md":      true,
	".txt":     true,
	".py":      true,
}

// IsTextExtension reports whether rel carries a known text extension.
func IsTextExtension(rel string) bool {
	return textExtensions[strings.ToLower(path.Ext(rel))]
}

// IsBinary classifies the file at abs. Known text extensions short-circuit;
// otherwise the first 4 KiB are sampled and the file is binary when a NUL
// byte appears or too many bytes fall outside the usual text range. An
// unreadable file is treated as binary so it gets copied verbatim instead
// of being run through the text pipeline. Sampling is authoritative: a
// binary-by-sampling file is never content-rewritten even when a content
// rule matches it.
func IsBinary(abs, rel string) bool {
	if IsTextExtension(rel) {
		return false
	}
	f, err := os.Open(abs)
	if err != nil {
		return true
	}
	defer f.Close()

	sample := make([]byte, binarySampleSize)
	n, err := f.Read(sample)
	if err != nil && err != io.EOF {
		return true
	}
	if n == 0 {
		return false
	}
	sample = sample[:n]

	nonText := 0
	for _, b := range sample {
		if b == 0x00 {
			return true
		}
		if b < 0x09 || (b > 0x0d && b < 0x20 && b != 0x1b) {
			nonText++
		}
	}
	return float64(nonText)/float64(len(sample)) > nonTextRatio
}
