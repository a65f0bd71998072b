package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aurorasociety/clubhouse/pkg/crypto"
)

// Code prefixes fixed by the registration URL convention.
const (
	PrimaryCodePrefix = "AURORA"
	LinkCodePrefix    = "AURORA-LINK"
)

const (
	codeSuffixLength = 6
	maxCodeAttempts  = 10
)

// ErrCodeGenerationExhausted indicates the bounded uniqueness retry gave up.
var ErrCodeGenerationExhausted = errors.New("code generator: attempts exhausted")

// ExistsFunc probes the relevant store for a previously issued code. The probe
// is a pre-flight optimisation only; inserts still rely on unique indexes.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// CodeGeneratorOption customises CodeGenerator behaviour.
type CodeGeneratorOption func(*CodeGenerator)

// WithCodeAttempts overrides the retry bound, primarily for tests.
func WithCodeAttempts(attempts int) CodeGeneratorOption {
	return func(g *CodeGenerator) {
		if attempts > 0 {
			g.attempts = attempts
		}
	}
}

// WithSuffixSource replaces the random suffix source, primarily for tests.
func WithSuffixSource(source func(int) (string, error)) CodeGeneratorOption {
	return func(g *CodeGenerator) {
		if source != nil {
			g.suffix = source
		}
	}
}

// CodeGenerator produces human-readable codes of the form PREFIX-XXXXXX with
// X drawn uniformly from [A-Z0-9]. Codes are meant to be shared, so they are
// short rather than unguessable; collisions are expected at scale and handled
// by the retry loop plus storage-level unique constraints.
type CodeGenerator struct {
	attempts int
	suffix   func(int) (string, error)
}

// NewCodeGenerator constructs a CodeGenerator with the default retry bound.
func NewCodeGenerator(opts ...CodeGeneratorOption) *CodeGenerator {
	generator := &CodeGenerator{
		attempts: maxCodeAttempts,
		suffix:   crypto.RandomCodeSuffix,
	}

	for _, opt := range opts {
		opt(generator)
	}

	return generator
}

// Generate returns a candidate code not currently known to the supplied probe.
// Fails with ErrCodeGenerationExhausted after the configured attempt bound.
func (g *CodeGenerator) Generate(ctx context.Context, prefix string, exists ExistsFunc) (string, error) {
	ctx = ensureContext(ctx)

	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", errors.New("code generator: prefix is required")
	}

	for attempt := 0; attempt < g.attempts; attempt++ {
		suffix, err := g.suffix(codeSuffixLength)
		if err != nil {
			return "", fmt.Errorf("code generator: random suffix: %w", err)
		}

		candidate := prefix + "-" + suffix
		if exists == nil {
			return candidate, nil
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", storageError("code generator: existence probe", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", ErrCodeGenerationExhausted
}
