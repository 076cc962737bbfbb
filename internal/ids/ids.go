package ids

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TemporaryPrefix marks identifiers minted locally for records that were never persisted.
const TemporaryPrefix = "tmp-"

// Provider issues identifiers for persisted documents.
type Provider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs a Provider that issues UUIDv7 identifiers.
func NewUUIDProvider() Provider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// IsTemporary reports whether id was produced by a TemporaryGenerator.
func IsTemporary(id string) bool {
	return strings.HasPrefix(id, TemporaryPrefix)
}

// TemporaryGenerator issues time based placeholder identifiers that are strictly
// increasing for the lifetime of the generator, even when the clock stalls or steps back.
type TemporaryGenerator struct {
	mu    sync.Mutex
	clock func() time.Time
	last  int64
}

// NewTemporaryGenerator builds a generator; a nil clock defaults to time.Now.
func NewTemporaryGenerator(clock func() time.Time) *TemporaryGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &TemporaryGenerator{clock: clock}
}

// Next returns the next placeholder identifier.
func (g *TemporaryGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	value := g.clock().UnixNano()
	if value <= g.last {
		value = g.last + 1
	}
	g.last = value
	return TemporaryPrefix + strconv.FormatInt(value, 10)
}
