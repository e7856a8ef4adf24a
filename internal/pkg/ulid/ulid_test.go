package ulid

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsValidAndSorted(t *testing.T) {
	a := New()
	b := New()

	_, err := ulid.ParseStrict(a)
	assert.NoError(t, err)
	assert.Less(t, a, b)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("avatars/", ".PNG")

	require.True(t, strings.HasPrefix(key, "avatars/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	id := strings.TrimSuffix(strings.TrimPrefix(key, "avatars/"), ".png")
	_, err := ulid.ParseStrict(strings.ToUpper(id))
	assert.NoError(t, err)

	assert.NotContains(t, ObjectKey("", ".jpg"), "/")
}
