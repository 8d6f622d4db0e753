package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Key   string `json:"key" msgpack:"key"`
	Field int64  `json:"field" msgpack:"field"`
}

func TestCodecs(t *testing.T) {
	for name, c := range map[string]Codec{"json": JSON{}, "msgpack": Msgpack{}} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, c.Name())

			in := entry{Key: "k1", Field: 42}
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out entry
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "msgpack", Default.Name())

	_, err := JSON{}.Marshal(make(chan int))
	assert.Error(t, err)
}
