package contract

import "context"

// AuditLog receives every user and assistant turn for durable, append-only
// transcript storage. Implementations must never mutate prior entries.
type AuditLog interface {
	Append(ctx context.Context, identity string, role Role, content string) error
}
