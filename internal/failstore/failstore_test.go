package failstore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_AppendsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed_publishes.jsonl")
	store := NewFile(path)

	ctx := context.Background()
	cause := errors.New("broker unreachable")

	require.NoError(t, store.Record(ctx, "order_created", []byte(`{"order_id":"order_1"}`), 3, cause))
	require.NoError(t, store.Record(ctx, "inventory_processed", []byte(`{"order_id":"order_2"}`), 3, cause))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, entries, 2)
	assert.Equal(t, "order_created", entries[0].RoutingKey)
	assert.JSONEq(t, `{"order_id":"order_1"}`, string(entries[0].Body))
	assert.Equal(t, 3, entries[0].Attempts)
	assert.Contains(t, entries[0].Reason, "broker unreachable")
	assert.False(t, entries[0].FailedAt.IsZero())
	assert.Equal(t, "inventory_processed", entries[1].RoutingKey)
}
