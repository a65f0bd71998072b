package services

import (
	"context"
	"strings"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// optionalLabel trims the supplied label and returns nil when nothing remains,
// so empty labels persist as NULL rather than empty strings.
func optionalLabel(label string) *string {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	return &label
}
