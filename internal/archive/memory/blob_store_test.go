package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutObjectAndReadBack(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	data := []byte("<html>filing</html>")

	uri, err := store.PutObject(context.Background(), "filings/2026/08/26/acc-1.htm", "text/html", data)
	require.NoError(t, err)
	require.Equal(t, "memory://filings/2026/08/26/acc-1.htm", uri)

	got, ok := store.Object("filings/2026/08/26/acc-1.htm")
	require.True(t, ok)
	require.Equal(t, data, got)

	// Stored bytes are a copy, not an alias.
	data[0] = 'X'
	got, ok = store.Object("filings/2026/08/26/acc-1.htm")
	require.True(t, ok)
	require.Equal(t, byte('<'), got[0])

	_, ok = store.Object("missing")
	require.False(t, ok)
}
