package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/manogna-24/Email-processor/internal/model"
)

func TestUpsertUpdateSetsAllFields(t *testing.T) {
	timestamp := time.Date(2025, 4, 1, 10, 30, 0, 0, time.UTC)
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	record := &model.Record{
		MessageID: "<abc@example.com>",
		Sender:    "alice@example.com",
		Subject:   "Quarterly report",
		Timestamp: timestamp,
	}

	update := upsertUpdate(record, now)

	set, ok := update["$set"].(bson.M)
	require.True(t, ok)

	assert.Equal(t, "<abc@example.com>", set["message_id"])
	assert.Equal(t, "alice@example.com", set["sender"])
	assert.Equal(t, "Quarterly report", set["subject"])
	assert.Equal(t, timestamp, set["timestamp"])
	assert.Equal(t, now, set["processed_at"])
	assert.Len(t, set, 5)
}

func TestUpsertUpdateRefreshesProcessedAt(t *testing.T) {
	record := &model.Record{MessageID: "<abc@example.com>"}

	first := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	firstSet := upsertUpdate(record, first)["$set"].(bson.M)
	secondSet := upsertUpdate(record, second)["$set"].(bson.M)

	assert.Equal(t, first, firstSet["processed_at"])
	assert.Equal(t, second, secondSet["processed_at"])
}

func TestStoreError(t *testing.T) {
	cause := errors.New("server selection timeout")
	err := &StoreError{Op: "ping", Err: cause}

	assert.Equal(t, "store error (ping): server selection timeout", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsStoreError(err))
	assert.True(t, IsStoreError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsStoreError(cause))
}
