package idgen

import (
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/ksuid"
)

// ULID issues lexicographically sortable ids; ids from one process are
// strictly increasing even within a millisecond.
type ULID struct {
	mu      sync.Mutex
	entropy io.Reader
}

func NewULID() *ULID {
	return &ULID{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULID) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

func (g *ULID) Validate(id string) error {
	if len(id) != ulid.EncodedSize {
		return fmt.Errorf("expected length %d, got %d", ulid.EncodedSize, len(id))
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("invalid ULID format: %w", err)
	}
	return nil
}

// KSUID issues K-sortable ids with second precision.
type KSUID struct{}

func NewKSUID() *KSUID { return &KSUID{} }

func (g *KSUID) Generate() (string, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate KSUID: %w", err)
	}
	return id.String(), nil
}

func (g *KSUID) Validate(id string) error {
	if _, err := ksuid.Parse(id); err != nil {
		return fmt.Errorf("invalid KSUID format: %w", err)
	}
	return nil
}

const (
	snowflakeMachineBits  = 10
	snowflakeSequenceBits = 12
	snowflakeMaxMachine   = (1 << snowflakeMachineBits) - 1
	snowflakeMaxSequence  = (1 << snowflakeSequenceBits) - 1

	// DefaultSnowflakeEpoch is 2024-01-01T00:00:00Z in unix ms.
	DefaultSnowflakeEpoch int64 = 1704067200000
)

// Snowflake issues 64-bit ids: 41 bits of ms since epoch, 10 bits of
// machine id, 12 bits of sequence.
type Snowflake struct {
	mu        sync.Mutex
	epoch     int64
	machineID int64
	sequence  int64
	lastTime  int64
	now       func() int64
}

func NewSnowflake(machineID, epoch int64) (*Snowflake, error) {
	if machineID < 0 || machineID > snowflakeMaxMachine {
		return nil, fmt.Errorf("machine_id must be between 0 and %d, got %d", snowflakeMaxMachine, machineID)
	}
	return &Snowflake{
		epoch:     epoch,
		machineID: machineID,
		now:       func() int64 { return time.Now().UnixMilli() },
	}, nil
}

func (g *Snowflake) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now < g.epoch {
		return "", fmt.Errorf("current time is before custom epoch")
	}
	if now < g.lastTime {
		return "", fmt.Errorf("clock moved backwards: current=%d, last=%d", now, g.lastTime)
	}

	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & snowflakeMaxSequence
		if g.sequence == 0 {
			for now <= g.lastTime {
				now = g.now()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now

	id := ((now - g.epoch) << (snowflakeMachineBits + snowflakeSequenceBits)) |
		(g.machineID << snowflakeSequenceBits) |
		g.sequence
	return strconv.FormatInt(id, 10), nil
}

func (g *Snowflake) Validate(id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid snowflake: %q", id)
	}
	ts := (n >> (snowflakeMachineBits + snowflakeSequenceBits)) + g.epoch
	if ts > g.now() {
		return fmt.Errorf("snowflake timestamp is in the future")
	}
	return nil
}
