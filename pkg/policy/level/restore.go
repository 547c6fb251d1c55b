package level

import (
	"context"

	"sentinel-hq/aegis/pkg/audit"
)

// Restore returns the level a process should resume at: the target of the
// most recent level-change event in storage, or fallback when none is
// retained. Level transitions are durable only through the audit chain.
func Restore(ctx context.Context, storage audit.Storage, fallback Level) (Level, error) {
	events, err := storage.Events(ctx)
	if err != nil {
		return fallback, err
	}

	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Category != audit.CategoryLevelChange {
			continue
		}
		name, ok := e.Payload["to"].(string)
		if !ok {
			continue
		}
		lv, err := Parse(name)
		if err != nil {
			continue
		}
		return lv, nil
	}
	return fallback, nil
}
