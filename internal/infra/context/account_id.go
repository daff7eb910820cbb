package context

import (
	"context"
)

const contextKeyAccountID = contextKey("accountID")

// AccountIDFromContext extracts the authenticated account id from the context.
// Returns the account id and true if present, or empty string and false if not present.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(contextKeyAccountID).(string)

	return accountID, ok
}

// WithAccountID creates a new context with the given account id value.
// This context can be used to track the authenticated account throughout a request.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, contextKeyAccountID, accountID)
}
