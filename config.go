package cmdstream

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/cmdstream/cache"
	"github.com/gogpu/cmdstream/internal/upload"
)

// FlushOrder selects how pending cache flushes are ordered against state
// emission before a draw or dispatch. Every order produces the same final
// register state; they differ only in how much state programming overlaps
// with a pipeline drain.
type FlushOrder uint8

const (
	// FlushOrderAuto emits state before the flush when the pending flush
	// drains the pipeline or the device asks for it, and the flush first
	// otherwise.
	FlushOrderAuto FlushOrder = iota

	// FlushOrderStateFirst always emits state before the flush.
	FlushOrderStateFirst

	// FlushOrderFlushFirst always emits the flush before state.
	FlushOrderFlushFirst
)

var flushOrderNames = [...]string{"auto", "state-first", "flush-first"}

// String returns the configuration spelling of o.
func (o FlushOrder) String() string {
	if int(o) < len(flushOrderNames) {
		return flushOrderNames[o]
	}
	return fmt.Sprintf("FlushOrder(%d)", uint8(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o FlushOrder) MarshalText() ([]byte, error) {
	if int(o) >= len(flushOrderNames) {
		return nil, fmt.Errorf("cmdstream: invalid flush order %d", uint8(o))
	}
	return []byte(flushOrderNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *FlushOrder) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, name := range flushOrderNames {
		if s == name {
			*o = FlushOrder(i)
			return nil
		}
	}
	return fmt.Errorf("cmdstream: unknown flush order %q (want auto, state-first or flush-first)", s)
}

// Config holds device-wide tuning knobs. The zero value is not valid;
// start from DefaultConfig.
type Config struct {
	// UploadMinBlockSize is the smallest transient block the upload ring
	// requests from the backend.
	UploadMinBlockSize uint64 `toml:"upload_min_block_size"`

	// CacheLineSize overrides the backend's line size for the upload
	// padding heuristic. Zero uses the backend value; it must otherwise be
	// a power of two.
	CacheLineSize uint32 `toml:"cache_line_size"`

	// FlushOrder selects the pre-draw flush ordering.
	FlushOrder FlushOrder `toml:"flush_order"`

	// ShaderCacheCapacity is the per-shard entry limit of the shared
	// shader cache.
	ShaderCacheCapacity int `toml:"shader_cache_capacity"`

	// ValidateShaders runs the WGSL validator before SPIR-V generation.
	ValidateShaders bool `toml:"validate_shaders"`

	// MaxDescriptorSets is the number of descriptor table slots per bind point.
	MaxDescriptorSets int `toml:"max_descriptor_sets"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		UploadMinBlockSize:  upload.MinBlockSize,
		CacheLineSize:       0,
		FlushOrder:          FlushOrderAuto,
		ShaderCacheCapacity: cache.DefaultCapacity,
		ValidateShaders:     false,
		MaxDescriptorSets:   8,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.UploadMinBlockSize == 0:
		return fmt.Errorf("cmdstream: upload_min_block_size must be positive")
	case c.CacheLineSize != 0 && c.CacheLineSize&(c.CacheLineSize-1) != 0:
		return fmt.Errorf("cmdstream: cache_line_size %d is not a power of two", c.CacheLineSize)
	case c.FlushOrder > FlushOrderFlushFirst:
		return fmt.Errorf("cmdstream: invalid flush order %d", uint8(c.FlushOrder))
	case c.ShaderCacheCapacity <= 0:
		return fmt.Errorf("cmdstream: shader_cache_capacity must be positive")
	case c.MaxDescriptorSets <= 0 || c.MaxDescriptorSets > maxDescriptorSets:
		return fmt.Errorf("cmdstream: max_descriptor_sets must be in [1, %d]", maxDescriptorSets)
	}
	return nil
}

// ParseConfig decodes a TOML document over DefaultConfig. Keys absent
// from the document keep their default; unknown keys are an error.
func ParseConfig(data string) (Config, error) {
	c := DefaultConfig()
	md, err := toml.Decode(data, &c)
	if err != nil {
		return Config{}, fmt.Errorf("cmdstream: parse config: %w", err)
	}
	return c, checkDecoded(c, md)
}

// LoadConfig reads a TOML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, fmt.Errorf("cmdstream: load config %s: %w", path, err)
	}
	return c, checkDecoded(c, md)
}

func checkDecoded(c Config, md toml.MetaData) error {
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return fmt.Errorf("cmdstream: unknown config keys: %s", strings.Join(names, ", "))
	}
	return c.Validate()
}

// SaveConfig writes c to path as TOML.
func SaveConfig(path string, c Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("cmdstream: encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cmdstream: save config: %w", err)
	}
	return nil
}
