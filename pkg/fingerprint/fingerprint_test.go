package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"codigo": 26, "nome": "Distribuído", "extra": []any{1, "x"}}
	b := map[string]any{"nome": "Distribuído", "extra": []any{1, "x"}, "codigo": 26}

	assert.Equal(t, Generate(a), Generate(b))
	assert.Len(t, Generate(a), 64)
}

func TestGenerateSet_OrderIndependent(t *testing.T) {
	first := map[string]any{"code": 26, "name": "Distribuído"}
	second := map[string]any{"code": 51, "name": "Audiência"}

	assert.Equal(t,
		GenerateSet([]map[string]any{first, second}),
		GenerateSet([]map[string]any{second, first}),
	)
	assert.NotEqual(t,
		GenerateSet([]map[string]any{first}),
		GenerateSet([]map[string]any{first, second}),
	)
	assert.Equal(t, GenerateSet(nil), GenerateSet([]map[string]any{}))
}

func TestHasChanged(t *testing.T) {
	assert.False(t, HasChanged("abc", "abc"))
	assert.True(t, HasChanged("", "abc"))
	assert.True(t, HasChanged("abc", "def"))
}
