package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ananth-NQI/choptime-backend/internal/utils"
)

// ErrReferenceExhausted is returned when no free reference was found
var ErrReferenceExhausted = errors.New("could not generate a unique order reference")

const (
	referenceDigits   = 5
	referenceAttempts = 10
)

// ReferenceChecker reports whether a reference is already used
type ReferenceChecker interface {
	ReferenceExists(ctx context.Context, reference string) (bool, error)
}

// ReferenceGenerator produces PREFIX-NNNNN order references that are not yet in the store
type ReferenceGenerator struct {
	prefix  string
	checker ReferenceChecker
	random  func() (string, error)
}

// NewReferenceGenerator creates a generator. checker may be nil, then no collision check is done.
func NewReferenceGenerator(prefix string, checker ReferenceChecker) *ReferenceGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "CHP"
	}
	return &ReferenceGenerator{
		prefix:  prefix,
		checker: checker,
		random:  func() (string, error) { return utils.RandomDigits(referenceDigits) },
	}
}

// Next returns a reference that the store does not know yet
func (g *ReferenceGenerator) Next(ctx context.Context) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		digits, err := g.random()
		if err != nil {
			return "", err
		}
		ref := g.prefix + "-" + digits
		if g.checker == nil {
			return ref, nil
		}
		exists, err := g.checker.ReferenceExists(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("failed to check reference %s: %w", ref, err)
		}
		if !exists {
			return ref, nil
		}
	}
	return "", ErrReferenceExhausted
}
