package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nrednav/cuid2"
)

// UUID issues random v4 UUIDs.
type UUID struct{}

func NewUUID() *UUID { return &UUID{} }

func (g *UUID) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}
	return id.String(), nil
}

func (g *UUID) Validate(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid UUID format: %w", err)
	}
	if parsed.Version() != 4 {
		return fmt.Errorf("expected UUID v4, got v%d", parsed.Version())
	}
	return nil
}

const (
	DefaultNanoIDSize     = 21
	DefaultNanoIDAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	DefaultCUID2Length    = 24
)

// NanoID issues URL-safe random ids.
type NanoID struct {
	size     int
	alphabet string
}

func NewNanoID(size int, alphabet string) (*NanoID, error) {
	if size < 1 || size > 256 {
		return nil, fmt.Errorf("nanoid size must be between 1 and 256, got %d", size)
	}
	if len(alphabet) < 2 {
		return nil, fmt.Errorf("nanoid alphabet must have at least 2 characters, got %d", len(alphabet))
	}
	return &NanoID{size: size, alphabet: alphabet}, nil
}

func (g *NanoID) Generate() (string, error) {
	id, err := gonanoid.Generate(g.alphabet, g.size)
	if err != nil {
		return "", fmt.Errorf("failed to generate NanoID: %w", err)
	}
	return id, nil
}

func (g *NanoID) Validate(id string) error {
	if len(id) != g.size {
		return fmt.Errorf("expected length %d, got %d", g.size, len(id))
	}
	if i := strings.IndexFunc(id, func(r rune) bool { return !strings.ContainsRune(g.alphabet, r) }); i >= 0 {
		return fmt.Errorf("character %q not in alphabet", id[i])
	}
	return nil
}

// CUID2 issues collision-resistant ids.
type CUID2 struct {
	length   int
	generate func() string
}

func NewCUID2(length int) (*CUID2, error) {
	if length < 2 || length > 32 {
		return nil, fmt.Errorf("cuid2 length must be between 2 and 32, got %d", length)
	}
	gen, err := cuid2.Init(cuid2.WithLength(length))
	if err != nil {
		return nil, fmt.Errorf("failed to init CUID2 generator: %w", err)
	}
	return &CUID2{length: length, generate: gen}, nil
}

func (g *CUID2) Generate() (string, error) {
	return g.generate(), nil
}

func (g *CUID2) Validate(id string) error {
	if len(id) != g.length {
		return fmt.Errorf("expected length %d, got %d", g.length, len(id))
	}
	if !cuid2.IsCuid(id) {
		return fmt.Errorf("invalid CUID2 format")
	}
	return nil
}
