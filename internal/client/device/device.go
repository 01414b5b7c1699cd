// Package device identifies this client installation. The id tags remote
// writes so the hub can tell devices apart.
package device

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/teamdesk/internal/client/repositories/kv"
)

// Key is the kv slot holding the device id.
const Key = "device_id"

var newID = uuid.NewString

// ID returns the stored device id, creating one on first use. A stored value
// that is not a UUID is replaced.
func ID(ctx context.Context, repo kv.Repository) (string, error) {
	v, ok, err := repo.Get(ctx, Key)
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	if ok {
		if _, err := uuid.Parse(v); err == nil {
			return v, nil
		}
	}

	id := newID()
	if err := repo.Set(ctx, Key, id); err != nil {
		return "", fmt.Errorf("save device id: %w", err)
	}
	return id, nil
}
