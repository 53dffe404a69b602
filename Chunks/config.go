package Chunks

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
)

const (
	defaultCompactAfter        = 256
	defaultCompactMinMergeable = 8
	defaultCompactInterval     = time.Second
	defaultInitialSize         = 64
)

// Config for chunks and the world registry.
type Config struct {
	Chunk ChunkConfig `toml:"chunk" json:"chunk"`
	World WorldConfig `toml:"world" json:"world"`
}

// ChunkConfig is the compaction policy of a chunk.
type ChunkConfig struct {
	// CompactAfter is the number of edits after which a chunk is considered for compaction.
	CompactAfter int `toml:"compact-after" json:"compact-after"`
	// CompactMinMergeable is the number of mergeable run pairs, summed over both channels,
	// a due chunk must have to be compacted.
	CompactMinMergeable int `toml:"compact-min-mergeable" json:"compact-min-mergeable"`
}

type WorldConfig struct {
	CompactInterval Duration `toml:"compact-interval" json:"compact-interval"`
	InitialSize     int      `toml:"initial-size" json:"initial-size"`
}

// Duration decodes from strings like "1s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return errors.Trace(err)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func DefaultConfig() *Config {
	return &Config{
		Chunk: ChunkConfig{
			CompactAfter:        defaultCompactAfter,
			CompactMinMergeable: defaultCompactMinMergeable,
		},
		World: WorldConfig{
			CompactInterval: Duration{defaultCompactInterval},
			InitialSize:     defaultInitialSize,
		},
	}
}

// ParseConfig decodes TOML over the defaults.
func ParseConfig(data string) (*Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Annotate(err, "decode config")
	}
	if err := cfg.check(meta); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig decodes the TOML file at path over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Annotatef(err, "decode config file %s", path)
	}
	if err := cfg.check(meta); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) check(meta toml.MetaData) error {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return errors.Errorf("config contains undefined item: %s", strings.Join(keys, ", "))
	}
	return c.Validate()
}

func (c *ChunkConfig) adjust() {
	if c.CompactAfter <= 0 {
		c.CompactAfter = defaultCompactAfter
	}
	if c.CompactMinMergeable < 0 {
		c.CompactMinMergeable = 0
	}
}

func (c *WorldConfig) adjust() {
	if c.CompactInterval.Duration <= 0 {
		c.CompactInterval.Duration = defaultCompactInterval
	}
	if c.InitialSize <= 0 {
		c.InitialSize = defaultInitialSize
	}
}

// Adjust replaces values the chunk and world can't run with by their defaults.
func (c *Config) Adjust() {
	c.Chunk.adjust()
	c.World.adjust()
}

// Validate rejects values the chunk and world can't run with.
func (c *Config) Validate() error {
	if c.Chunk.CompactAfter <= 0 {
		return errors.Errorf("compact-after must be positive, got %d", c.Chunk.CompactAfter)
	}
	if c.Chunk.CompactMinMergeable < 0 {
		return errors.Errorf("compact-min-mergeable must not be negative, got %d", c.Chunk.CompactMinMergeable)
	}
	if c.World.CompactInterval.Duration <= 0 {
		return errors.Errorf("compact-interval must be positive, got %v", c.World.CompactInterval)
	}
	if c.World.InitialSize < 0 {
		return errors.Errorf("initial-size must not be negative, got %d", c.World.InitialSize)
	}
	return nil
}
