// Package textenc reads text files through a deterministic encoding
// fallback chain and writes them back in the encoding they were read with.
// The chain is a fixed ordered decision list, never locale-dependent: the
// first candidate that decodes the bytes cleanly wins.
package textenc

import (
	"bytes"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ErrUndecodable is returned when every candidate encoding fails.
var ErrUndecodable = errors.Base("no candidate encoding decodes this file")

// Encoding identifies how a file was decoded so the same form can be
// reproduced on write.
type Encoding struct {
	Name string
	impl encoding.Encoding
	bom  []byte
}

// UTF8 is the canonical encoding for newly produced content.
var UTF8 = &Encoding{Name: "utf-8"}

// candidates, in decision order. UTF-16 only participates when a BOM is
// present; the legacy single-byte and CJK encodings are validated by
// rejecting decodes that produce replacement runes (or, for Windows-1252,
// C1 controls mapped from undefined byte slots).
var legacyCandidates = []*Encoding{
	{Name: "gb18030", impl: simplifiedchinese.GB18030},
	{Name: "gbk", impl: simplifiedchinese.GBK},
	{Name: "windows-1252", impl: charmap.Windows1252},
}

// Decode attempts each candidate encoding in order and returns the decoded
// text together with the winning encoding. ErrUndecodable is wrapped in the
// returned error when the chain is exhausted.
func Decode(data []byte) (string, *Encoding, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		rest := data[len(utf8BOM):]
		if utf8.Valid(rest) {
			return string(rest), &Encoding{Name: "utf-8-sig", bom: utf8BOM}, nil
		}
	}
	if utf8.Valid(data) {
		return string(data), UTF8, nil
	}

	if enc, dec := utf16ByBOM(data); enc != nil {
		decoded, err := dec.Bytes(data)
		if err == nil && utf8.Valid(decoded) && !bytes.ContainsRune(decoded, utf8.RuneError) {
			return string(decoded), enc, nil
		}
	}

	for _, candidate := range legacyCandidates {
		decoded, err := candidate.impl.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		text := string(decoded)
		if bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		if candidate.Name == "windows-1252" && containsC1Controls(text) {
			continue
		}
		return text, candidate, nil
	}

	return "", nil, errors.Errorf("decoding text: %w", ErrUndecodable)
}

// Encode serializes text in the given encoding, restoring the BOM when the
// source carried one. A nil encoding means canonical UTF-8.
func Encode(text string, enc *Encoding) ([]byte, error) {
	if enc == nil || enc.impl == nil {
		out := make([]byte, 0, len(enc.bomOrNil())+len(text))
		out = append(out, enc.bomOrNil()...)
		return append(out, text...), nil
	}
	encoded, err := enc.impl.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, errors.Errorf("encoding text as %s: %w", enc.Name, err)
	}
	return encoded, nil
}

func (e *Encoding) bomOrNil() []byte {
	if e == nil {
		return nil
	}
	return e.bom
}

func utf16ByBOM(data []byte) (*Encoding, *encoding.Decoder) {
	if len(data) < 2 {
		return nil, nil
	}
	switch {
	case data[0] == 0xff && data[1] == 0xfe:
		impl := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
		return &Encoding{Name: "utf-16le", impl: impl}, impl.NewDecoder()
	case data[0] == 0xfe && data[1] == 0xff:
		impl := unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
		return &Encoding{Name: "utf-16be", impl: impl}, impl.NewDecoder()
	}
	return nil, nil
}

func containsC1Controls(text string) bool {
	for _, r := range text {
		if r >= 0x80 && r <= 0x9f {
			return true
		}
	}
	return false
}
