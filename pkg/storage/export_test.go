package storage

import "time"

func (m *MemoryStore) SetClock(now func() time.Time) {
	m.now = now
}
