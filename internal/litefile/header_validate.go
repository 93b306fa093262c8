package litefile

import (
	"fmt"
	"strings"
)

// MinUsableSize is the smallest usable page size the format allows. With 512 byte
// pages the reserved region can't exceed 32 bytes.
const MinUsableSize = 480

// ValidationMode controls how a change counter / version-valid-for mismatch is treated.
type ValidationMode int

const (
	// ValidateStrict rejects a header whose change counter differs from version-valid-for.
	ValidateStrict ValidationMode = iota
	// ValidateLenient accepts such a header, the in-header page count and library
	// version are then reported as untrusted. Legacy writers produce this state.
	ValidateLenient
)

func (m ValidationMode) String() string {
	if m == ValidateLenient {
		return "lenient"
	}
	return "strict"
}

// ParseValidationMode accepts "strict" or "lenient".
func ParseValidationMode(s string) (ValidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return ValidateStrict, nil
	case "lenient":
		return ValidateLenient, nil
	default:
		return 0, fmt.Errorf("unknown validation mode %q", s)
	}
}

const (
	reasonUsableSizeTooSmall = "the usable size is not allowed to be less than 480"
	reasonInvalidPageCount   = "the in-header database size is not valid"
	reasonCounterMismatch    = "the change counter must exactly match the version-valid-for number"
	reasonSchemaFormat       = "only schema format 4 is supported"
	reasonFreelistCorrupted  = "free list settings may be corrupted"
	reasonVacuumCorrupted    = "incremental vacuum is enabled but there is no largest root b-tree page"
	reasonChangeCounterZero  = "file change counter may be corrupted"
	reasonCounterBehind      = "the version-valid-for number or the change counter may be corrupted"
)

// Validate checks the cross-field invariants and returns the first one violated.
func (h FileHeader) Validate(mode ValidationMode) error {
	if h.UsableSize() < MinUsableSize {
		return &HeaderValidationError{Reason: reasonUsableSizeTooSmall}
	}

	countersMatch := h.FileChangeCounter == h.VersionValidFor
	if h.PageCount < 1 && (countersMatch || mode == ValidateStrict) {
		return &HeaderValidationError{Reason: reasonInvalidPageCount}
	}
	if !countersMatch && mode == ValidateStrict {
		return &HeaderValidationError{Reason: reasonCounterMismatch}
	}

	if h.SchemaFormat != NewestSchemaFormat {
		return &HeaderValidationError{Reason: reasonSchemaFormat}
	}

	if h.FreelistPageCount == 0 && h.FreelistTrunkPage != 0 {
		return &HeaderValidationError{Reason: reasonFreelistCorrupted}
	}

	// A zero largest root page means neither auto nor incremental vacuum, the
	// incremental flag must then be zero as well. A non-zero largest root page
	// with a zero flag is auto_vacuum=full.
	if h.LargestRootPage == 0 && h.IncrementalVacuum {
		return &HeaderValidationError{Reason: reasonVacuumCorrupted}
	}

	if h.FileChangeCounter < 1 {
		return &HeaderValidationError{Reason: reasonChangeCounterZero}
	}
	if h.FileChangeCounter < h.VersionValidFor {
		return &HeaderValidationError{Reason: reasonCounterBehind}
	}

	return nil
}
