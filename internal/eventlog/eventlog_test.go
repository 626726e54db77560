package eventlog

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"ledger/internal/domain/account"
)

func TestDecodeEntry(t *testing.T) {
	t.Run("decodes a well-formed event field", func(t *testing.T) {
		msg := redis.XMessage{
			ID:     "1700000000000-0",
			Values: map[string]interface{}{"event": `{"id":"acc-1","version":2,"type":"deposit","amount":500}`},
		}
		evt, ok := decodeEntry(msg)
		assert.True(t, ok)
		assert.Equal(t, "acc-1", evt.ID)
		assert.Equal(t, int64(2), evt.Version)
		assert.Equal(t, account.EventDeposit, evt.Type)
		assert.Equal(t, int64(500), evt.Amount)
		assert.Equal(t, "1700000000000-0", evt.Timestamp)
	})

	t.Run("rejects a missing event field", func(t *testing.T) {
		msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"other": "x"}}
		_, ok := decodeEntry(msg)
		assert.False(t, ok)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"event": "not json"}}
		_, ok := decodeEntry(msg)
		assert.False(t, ok)
	})
}

func TestGroupName(t *testing.T) {
	assert.Equal(t, "accountStreamGroup", groupName("accountStream"))
}

func TestIsBusyGroupAndNoGroup(t *testing.T) {
	assert.True(t, isBusyGroup(errAsString("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isBusyGroup(errAsString("some other error")))
	assert.True(t, isNoGroup(errAsString("NOGROUP No such key or consumer group")))
	assert.False(t, isNoGroup(errAsString("some other error")))
}

type stringError string

func (e stringError) Error() string { return string(e) }

func errAsString(s string) error { return stringError(s) }
