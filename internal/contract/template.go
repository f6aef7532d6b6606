package contract

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Fill interleaves fixed segments with runtime constants:
// seg0, const0, seg1, const1, ... until both lists are exhausted. Either
// list may be longer than the other.
func Fill(segments, constants [][]byte) []byte {
	size := 0
	for _, s := range segments {
		size += len(s)
	}
	for _, c := range constants {
		size += len(c)
	}

	out := make([]byte, 0, size)
	for i := 0; i < len(segments) || i < len(constants); i++ {
		if i < len(segments) {
			out = append(out, segments[i]...)
		}
		if i < len(constants) {
			out = append(out, constants[i]...)
		}
	}
	return out
}

// Template is a compiled script with holes. The first hole always holds the
// 32-byte denomination token id, which lets the id be recovered from any
// instantiated script.
type Template struct {
	name     string
	segments [][]byte
}

// newTemplate decodes hex segments. Segments are compiled into the binary,
// so a decode failure is a build defect and panics at init.
func newTemplate(name string, hexSegments ...string) Template {
	segs := make([][]byte, len(hexSegments))
	for i, s := range hexSegments {
		segs[i] = mustHex(s)
	}
	return Template{name: name, segments: segs}
}

// Name returns the template name.
func (t Template) Name() string {
	return t.name
}

// Holes returns how many constants the template expects.
func (t Template) Holes() int {
	return len(t.segments) - 1
}

// Instantiate fills the template holes with constants.
func (t Template) Instantiate(constants ...[]byte) types.Script {
	return types.Script(Fill(t.segments, constants))
}

// TokenID extracts the token id embedded right after the template prefix.
func (t Template) TokenID(script types.Script) (types.TokenID, bool) {
	prefix := t.segments[0]
	if len(script) < len(prefix)+types.HashSize || !bytes.HasPrefix(script, prefix) {
		return types.TokenID{}, false
	}
	var id types.TokenID
	copy(id[:], script[len(prefix):len(prefix)+types.HashSize])
	return id, true
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("contract: corrupt compiled segment: %v", err))
	}
	return b
}
