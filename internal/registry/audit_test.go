package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/parkgate/internal/model"
)

func TestAuditLog_NewestFirst(t *testing.T) {
	l := NewAuditLog(0)
	l.Add(model.AuditEntry{Action: "first"})
	l.Add(model.AuditEntry{Action: "second"})

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Action)
	assert.Equal(t, "first", entries[1].Action)
}

func TestAuditLog_DropsOldest(t *testing.T) {
	l := NewAuditLog(0)
	for i := 0; i < DefaultAuditCapacity+7; i++ {
		l.Add(model.AuditEntry{Action: fmt.Sprintf("a%d", i)})
	}

	entries := l.Entries()
	require.Len(t, entries, DefaultAuditCapacity)
	assert.Equal(t, fmt.Sprintf("a%d", DefaultAuditCapacity+6), entries[0].Action)
	assert.Equal(t, "a7", entries[DefaultAuditCapacity-1].Action)
}

func TestAuditLog_CustomCapacity(t *testing.T) {
	l := NewAuditLog(2)
	l.Add(model.AuditEntry{Action: "1"})
	l.Add(model.AuditEntry{Action: "2"})
	l.Add(model.AuditEntry{Action: "3"})

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, "3", l.Entries()[0].Action)
}

func TestAuditLog_Watch(t *testing.T) {
	l := NewAuditLog(0)
	ch, cancel := l.Watch()
	defer cancel()

	l.Add(model.AuditEntry{Action: "toggle"})
	select {
	case <-ch:
	default:
		t.Fatal("expected notification")
	}
}
