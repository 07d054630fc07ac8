// Package xid generates prefixed identifiers for persisted records.
package xid

import "github.com/google/uuid"

func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
