// Package accesscode generates the short human-enterable code and the deep link
// that identify a contract outside the app.
package accesscode

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/chris/escrow-contracts/pkg/metrics"
	"go.uber.org/zap"
)

const (
	// Alphabet excludes O, I, 0 and 1.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// Length is the size of a regular code.
	Length = 6

	// FallbackLength is the size of the unchecked code used once MaxAttempts collide.
	FallbackLength = 8

	// MaxAttempts bounds the uniqueness-checked draws.
	MaxAttempts = 10

	// Scheme is the application identifier used in deep links.
	Scheme = "kiwiapp"
)

// ErrGenerationExhausted marks the fallback path. It is logged, never returned.
var ErrGenerationExhausted = errors.New("access code generation exhausted checked attempts")

// Checker reports whether a code is already held by a contract.
type Checker interface {
	AccessCodeExists(ctx context.Context, code string) (bool, error)
}

// Generator draws access codes from an explicit random source.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	checker Checker
	logger  *zap.Logger
}

// NewGenerator creates a Generator. rng is not safe for concurrent use on its own;
// the Generator serialises access to it.
func NewGenerator(checker Checker, rng *rand.Rand, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{rng: rng, checker: checker, logger: logger}
}

// Generate returns a code not currently held by any contract, checked up to
// MaxAttempts times. When every attempt collides it returns an 8-character code
// that is NOT checked for uniqueness; the storage layer's unique constraint is
// the only guard on that path.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		code := g.draw(Length)
		exists, err := g.checker.AccessCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check access code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
		g.logger.Debug("access code collision", zap.Int("attempt", attempt))
	}

	code := g.draw(FallbackLength)
	metrics.AccessCodeFallbacks.Inc()
	g.logger.Warn("falling back to unchecked long access code",
		zap.Error(ErrGenerationExhausted),
		zap.Int("attempts", MaxAttempts),
		zap.Int("length", FallbackLength),
	)
	return code, nil
}

func (g *Generator) draw(n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := make([]byte, n)
	for i := range b {
		b[i] = Alphabet[g.rng.IntN(len(Alphabet))]
	}
	return string(b)
}

// DeepLink returns the URI a client app resolves to the contract's product page.
func DeepLink(contractID int64) string {
	return fmt.Sprintf("%s://product/%d", Scheme, contractID)
}

// Normalize trims and upper-cases a user-entered code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has a legal length and only alphabet characters.
func Valid(code string) bool {
	if len(code) != Length && len(code) != FallbackLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
