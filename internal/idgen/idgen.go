package idgen

import (
	"fmt"
	"strings"
)

// Generator issues identifiers for stored records.
type Generator interface {
	Generate() (string, error)
	// Validate reports why id could not have come from this generator.
	Validate(id string) error
}

// Config selects and tunes a generator.
type Config struct {
	Kind   string // uuid, ulid, ksuid, nanoid, cuid2, snowflake
	NodeID int64  // snowflake machine id
}

// New builds the configured generator. ulid is the default.
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "ulid":
		return NewULID(), nil
	case "uuid":
		return NewUUID(), nil
	case "ksuid":
		return NewKSUID(), nil
	case "nanoid":
		return NewNanoID(DefaultNanoIDSize, DefaultNanoIDAlphabet)
	case "cuid2":
		return NewCUID2(DefaultCUID2Length)
	case "snowflake":
		return NewSnowflake(cfg.NodeID, DefaultSnowflakeEpoch)
	default:
		return nil, fmt.Errorf("unsupported id generator: %s", cfg.Kind)
	}
}

// MustGenerate panics when g fails. Only for generators that cannot fail in practice.
func MustGenerate(g Generator) string {
	id, err := g.Generate()
	if err != nil {
		panic(err)
	}
	return id
}
