// Package codec encodes keys and fields for store-backed lookups.
//
// Codec selection is a breaking-change boundary: lookup rows written with one
// codec cannot be decoded with another.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = Msgpack{}
