// Package remote is the client side of the remote identity registry.
package remote

import (
	"context"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/tree"
)

// Identity addresses one person's remote record.
type Identity struct {
	ORCID       string
	Email       string
	AccessToken string
}

// Entry is one section entry to write. An empty PutCode creates, a set one updates.
type Entry struct {
	Kind    model.Kind
	Section string
	PutCode string
	Payload tree.Map
}

// WriteResult reports the outcome of CreateOrUpdateEntry.
type WriteResult struct {
	PutCode string
	ORCID   string
	Created bool
}

// Registry is the remote identity registry.
type Registry interface {
	// GetRemoteRecord fetches the person's full record. It returns nil and no error when
	// the person has not granted access or has no record.
	GetRemoteRecord(ctx context.Context, id Identity) (*tree.Node, error)
	CreateOrUpdateEntry(ctx context.Context, id Identity, e Entry) (WriteResult, error)
	DeleteEntry(ctx context.Context, id Identity, section, putCode string) error
}
