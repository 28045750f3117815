package vybiumriscvzkvm

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/vybium/vybium-riscv-zkvm/internal/vybium-riscv-zkvm/exec"
)

// Bridge is the public interface for the per-cycle extern machine
type Bridge interface {
	// Call answers one named extern request for the given cycle. args and
	// outs carry the request's fixed-arity payload; extra carries its string
	// payload (a table name or a format string).
	Call(cycle int, name, extra string, args, outs []FieldElement) error

	// Sort reorders the named permutation table into canonical order. Invoked
	// at the phase boundary, before any permutation reads.
	Sort(name string)

	// CalcPrefixProducts finalizes every grand-product accumulator
	CalcPrefixProducts()

	// GetState returns the current bridge state
	GetState() *BridgeState
}

// BridgeState represents the current state of the bridge (read-only)
type BridgeState struct {
	// Instruction cycles completed
	InsnCounter uint32

	// Halted flag
	Halted bool

	// Flushing flag; once set, never cleared
	Flushing bool
}

// BridgeConfig represents configuration for the extern bridge
type BridgeConfig struct {
	// Verbosity selects how much per-cycle diagnostics the bridge emits:
	// 0 warnings only, 1 adds per-cycle tracing, 2 and above adds guest log
	// output. Guest log formatting is skipped entirely below level 2.
	Verbosity int

	// LogOutput receives diagnostics; nil means standard error
	LogOutput io.Writer
}

// DefaultBridgeConfig returns a quiet bridge configuration
func DefaultBridgeConfig() *BridgeConfig {
	return &BridgeConfig{Verbosity: 0}
}

// bridgeImpl is the internal implementation of Bridge
type bridgeImpl struct {
	machine *exec.MachineContext
}

// NewBridge creates an extern bridge for one segment
func NewBridge(segment *Segment, config *BridgeConfig) (Bridge, error) {
	if config == nil {
		config = DefaultBridgeConfig()
	}
	if config.Verbosity < 0 {
		return nil, &VMError{
			Code:    ErrInvalidConfig,
			Message: "verbosity must be non-negative",
		}
	}
	if segment == nil || segment.PreImage == nil {
		return nil, &VMError{
			Code:    ErrInvalidInput,
			Message: "segment with a pre-image is required",
		}
	}

	logger := logrus.New()
	if config.LogOutput != nil {
		logger.SetOutput(config.LogOutput)
	}
	switch config.Verbosity {
	case 0:
		logger.SetLevel(logrus.WarnLevel)
	case 1:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.TraceLevel)
	}

	return &bridgeImpl{machine: exec.NewMachineContext(segment, logger)}, nil
}

// Call answers one named extern request
func (b *bridgeImpl) Call(cycle int, name, extra string, args, outs []FieldElement) error {
	if err := b.machine.Call(cycle, name, extra, args, outs); err != nil {
		return &VMError{
			Code:    ErrExternFailure,
			Message: "extern " + name + " failed",
			Cause:   err,
		}
	}
	return nil
}

// Sort reorders the named permutation table into canonical order
func (b *bridgeImpl) Sort(name string) {
	b.machine.Sort(name)
}

// CalcPrefixProducts finalizes every grand-product accumulator
func (b *bridgeImpl) CalcPrefixProducts() {
	b.machine.CalcPrefixProducts()
}

// GetState returns the current bridge state
func (b *bridgeImpl) GetState() *BridgeState {
	return &BridgeState{
		InsnCounter: b.machine.InsnCounter(),
		Halted:      b.machine.IsHalted(),
		Flushing:    b.machine.IsFlushing(),
	}
}
