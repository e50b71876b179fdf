// Package canon implements the deterministic canonical byte serialization
// and content hashing described in spec §4.1: stable field ordering,
// decimals in canonical textual form, timestamps in strict ISO-8601 UTC,
// enums by their stable string tag, and maps in key-sorted order. Two
// structurally equal values always produce the same bytes, and therefore
// the same SHA-256 content hash, across runs and hosts — this is the
// foundation of attestation id determinism and replay determinism (§4.2,
// §4.3 INV-R04).
//
// Domain types implement Canonical() []byte by writing their fields, in a
// fixed order, through a Builder. Builder length-prefixes every field so
// that "a"+"bc" and "ab"+"c" never collide.
package canon

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/primitives"
)

// Canonical is implemented by every value that participates in content
// hashing.
type Canonical interface {
	Canonical() []byte
}

// Builder accumulates canonical bytes for one value's fields, in the order
// the caller writes them.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) writeLenPrefixed(p []byte) *Builder {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(p)))
	b.buf = append(b.buf, lenBuf[:n]...)
	b.buf = append(b.buf, p...)
	return b
}

// Str writes a length-prefixed UTF-8 string field.
func (b *Builder) Str(s string) *Builder {
	return b.writeLenPrefixed([]byte(s))
}

// Bytes writes a length-prefixed raw byte field (e.g. a nested content hash).
func (b *Builder) Bytes(p []byte) *Builder {
	return b.writeLenPrefixed(p)
}

// Tag writes an enum's stable string discriminant.
func (b *Builder) Tag(tag string) *Builder {
	return b.Str(tag)
}

// Decimal writes d in canonical textual form (spec §4.1 "decimal in
// canonical textual form").
func (b *Builder) Decimal(d *decimal.Decimal) *Builder {
	return b.Str(decimal.Text(d))
}

// Timestamp writes ts in strict ISO-8601 UTC form.
func (b *Builder) Timestamp(ts primitives.Timestamp) *Builder {
	return b.Str(ts.ISO8601())
}

// Bool writes a boolean field.
func (b *Builder) Bool(v bool) *Builder {
	if v {
		return b.writeLenPrefixed([]byte{1})
	}
	return b.writeLenPrefixed([]byte{0})
}

// Uint64 writes a fixed-width unsigned integer field.
func (b *Builder) Uint64(v uint64) *Builder {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return b.writeLenPrefixed(buf[:])
}

// Nested writes another Canonical value's bytes as a length-prefixed field,
// so nested structures compose without ambiguity.
func (b *Builder) Nested(c Canonical) *Builder {
	if c == nil {
		return b.writeLenPrefixed(nil)
	}
	return b.writeLenPrefixed(c.Canonical())
}

// List writes an ordered sequence of Canonical values (order is
// significant and preserved as given — callers that need order-independence,
// e.g. unordered sets, must sort before calling List).
func (b *Builder) List(items []Canonical) *Builder {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(items)))
	b.buf = append(b.buf, lenBuf[:n]...)
	for _, it := range items {
		b.Nested(it)
	}
	return b
}

// StringList writes an ordered sequence of strings, preserving order.
func (b *Builder) StringList(items []string) *Builder {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(items)))
	b.buf = append(b.buf, lenBuf[:n]...)
	for _, s := range items {
		b.Str(s)
	}
	return b
}

// StringMap writes a string->string map in key-sorted order (spec §4.1
// "maps serialized in key-sorted order").
func (b *Builder) StringMap(m map[string]string) *Builder {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(keys)))
	b.buf = append(b.buf, lenBuf[:n]...)
	for _, k := range keys {
		b.Str(k)
		b.Str(m[k])
	}
	return b
}

// DecimalMap writes a string->Decimal map in key-sorted order, used for fit
// quality maps (rmse, max error, ...) on Derived attestations.
func (b *Builder) DecimalMap(m map[string]*decimal.Decimal) *Builder {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(keys)))
	b.buf = append(b.buf, lenBuf[:n]...)
	for _, k := range keys {
		b.Str(k)
		b.Decimal(m[k])
	}
	return b
}

// Finish returns the accumulated canonical byte sequence.
func (b *Builder) Finish() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}

// Hash computes the SHA-256 content hash of v's canonical bytes (spec
// §4.1 "The content hash is SHA-256 of those bytes").
func Hash(v Canonical) [32]byte {
	return sha256.Sum256(v.Canonical())
}

// HashBytes computes the SHA-256 of an arbitrary canonical byte slice,
// used when composing an identity payload from several already-hashed
// upstream values (spec §4.2 attestation id derivation).
func HashBytes(p []byte) [32]byte {
	return sha256.Sum256(p)
}

// HexHash renders a content hash as lowercase hex, the wire-stable form
// used by attestation ids and content hashes (spec §6).
func HexHash(h [32]byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 64)
	for i, b := range h {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}
