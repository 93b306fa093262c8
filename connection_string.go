package litefile

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardKnop/litefile/internal/litefile"
	"github.com/RichardKnop/litefile/internal/pkg/logging"
)

const (
	uriScheme = "sqlite://"
	memoryDB  = ":memory:"

	// MemoryURI opens an empty in-memory database.
	MemoryURI = uriScheme + memoryDB

	// DefaultMaxCachedPages bounds the page cache of a connection.
	DefaultMaxCachedPages = 256

	compressedSuffix = ".xz"
)

// Mode controls how the database file is opened.
type Mode int

const (
	ModeReadWrite Mode = iota
	ModeReadOnly
	ModeReadWriteCreate
	ModeMemory
)

func (m Mode) String() string {
	switch m {
	case ModeReadOnly:
		return "ro"
	case ModeReadWriteCreate:
		return "rwc"
	case ModeMemory:
		return "memory"
	default:
		return "rw"
	}
}

func parseMode(s string) (Mode, error) {
	switch s {
	case "ro":
		return ModeReadOnly, nil
	case "rw":
		return ModeReadWrite, nil
	case "rwc":
		return ModeReadWriteCreate, nil
	case "memory":
		return ModeMemory, nil
	default:
		return 0, fmt.Errorf("invalid mode parameter: must be 'ro', 'rw', 'rwc' or 'memory', got %q", s)
	}
}

// ConnectionConfig holds parsed connection string parameters
type ConnectionConfig struct {
	FilePath       string                  // Database file path, empty for in-memory databases
	Mode           Mode                    // File open mode (default: rw)
	LogLevel       string                  // Log level (default: warn)
	MaxCachedPages int                     // Maximum number of pages to cache, 0 disables the cache
	Validation     litefile.ValidationMode // Header validation mode (default: strict)
}

// DefaultConnectionConfig returns default configuration
func DefaultConnectionConfig(filePath string) *ConnectionConfig {
	return &ConnectionConfig{
		FilePath:       filePath,
		Mode:           ModeReadWrite,
		LogLevel:       logging.DefaultLevel.String(),
		MaxCachedPages: DefaultMaxCachedPages,
		Validation:     litefile.ValidateStrict,
	}
}

// ParseConnectionString parses a connection string with optional query parameters.
//
// Format: [sqlite://]/path/to/database.db?param1=value1&param2=value2
//
// Supported parameters:
//   - mode=ro|rw|rwc|memory : open read-only, read-write, create when missing, or in memory (default: rw)
//   - log_level=debug|info|warn|error : Set logging level (default: warn)
//   - max_cached_pages=N : Page cache size, 0 disables caching (default: 256)
//   - validation=strict|lenient : Header validation mode (default: strict)
//
// Examples:
//   - ":memory:"                          : Empty in-memory database
//   - "./my.db"                           : Default settings
//   - "sqlite://./my.db?mode=ro"          : Read-only
//   - "./legacy.db?validation=lenient"    : Accept headers written by legacy writers
//   - "./dump.db.xz"                      : Decompressed into memory
func ParseConnectionString(connStr string) (*ConnectionConfig, error) {
	connStr = strings.TrimPrefix(strings.TrimSpace(connStr), uriScheme)

	// Split on first '?' to separate path from query params
	parts := strings.SplitN(connStr, "?", 2)

	config := DefaultConnectionConfig(parts[0])
	if config.FilePath == "" || config.FilePath == memoryDB {
		config.FilePath = ""
		config.Mode = ModeMemory
	}

	if len(parts) == 1 {
		return config, nil
	}

	queryParams, err := url.ParseQuery(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid connection string query parameters: %w", err)
	}

	if modeStr := queryParams.Get("mode"); modeStr != "" {
		mode, err := parseMode(strings.ToLower(modeStr))
		if err != nil {
			return nil, err
		}
		if config.Mode == ModeMemory && mode != ModeMemory {
			return nil, fmt.Errorf("invalid mode parameter: %q needs a file path", modeStr)
		}
		config.Mode = mode
		if mode == ModeMemory {
			config.FilePath = ""
		}
	}

	if logLevel := queryParams.Get("log_level"); logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return nil, fmt.Errorf("invalid log_level parameter: %w", err)
		}
		config.LogLevel = strings.ToLower(logLevel)
	}

	if maxPagesStr := queryParams.Get("max_cached_pages"); maxPagesStr != "" {
		maxPages, err := strconv.Atoi(maxPagesStr)
		if err != nil {
			return nil, fmt.Errorf("invalid max_cached_pages parameter: must be a non-negative integer, got %q", maxPagesStr)
		}
		if maxPages < 0 {
			return nil, fmt.Errorf("invalid max_cached_pages parameter: must be non-negative, got %d", maxPages)
		}
		config.MaxCachedPages = maxPages
	}

	if validationStr := queryParams.Get("validation"); validationStr != "" {
		validation, err := litefile.ParseValidationMode(validationStr)
		if err != nil {
			return nil, fmt.Errorf("invalid validation parameter: %w", err)
		}
		config.Validation = validation
	}

	if config.Compressed() && config.Mode == ModeReadWriteCreate {
		return nil, fmt.Errorf("invalid mode parameter: compressed databases can't be created")
	}

	return config, nil
}

// Compressed reports whether the file is xz compressed and must be
// decompressed into memory before it can be read.
func (c *ConnectionConfig) Compressed() bool {
	return c.Mode != ModeMemory && strings.HasSuffix(strings.ToLower(c.FilePath), compressedSuffix)
}

// URI renders the config back into a connection string, default parameters omitted.
func (c *ConnectionConfig) URI() string {
	if c.Mode == ModeMemory {
		return MemoryURI
	}

	params := url.Values{}
	if c.Mode != ModeReadWrite {
		params.Set("mode", c.Mode.String())
	}
	if c.Validation != litefile.ValidateStrict {
		params.Set("validation", c.Validation.String())
	}

	uri := uriScheme + c.FilePath
	if len(params) > 0 {
		uri += "?" + params.Encode()
	}
	return uri
}

// GetZapLevel converts the log level string to a zap level, unknown levels fall back to DefaultLevel.
func (c *ConnectionConfig) GetZapLevel() zap.AtomicLevel {
	l, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return zap.NewAtomicLevelAt(logging.DefaultLevel)
	}
	return zap.NewAtomicLevelAt(l)
}
