// vybium-zkvm-replay drives the execution bridge for one segment descriptor:
// it loads the pre-image, drains the page-fault schedule the way the paging
// circuit would, and reports the resulting drain order and attestation digest.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	vybiumriscvzkvm "github.com/vybium/vybium-riscv-zkvm/pkg/vybium-riscv-zkvm"
)

// SegmentDescriptor is the on-disk segment description consumed by the tool.
type SegmentDescriptor struct {
	// ImagePath points at the raw pre-image snapshot. The file is padded to
	// a whole number of pages.
	ImagePath string `json:"image"`

	// Layout overrides; zero values select the production layout.
	PageSize      uint32 `json:"page_size,omitempty"`
	RegisterBase  uint32 `json:"register_base,omitempty"`
	PageTableBase uint32 `json:"page_table_base,omitempty"`

	FaultReads  []uint32 `json:"fault_reads"`
	FaultWrites []uint32 `json:"fault_writes"`

	Syscalls []SyscallDescriptor `json:"syscalls,omitempty"`

	// Exit is one of "terminate", "pause", "split", "system_split".
	Exit      string `json:"exit"`
	SplitInsn uint32 `json:"split_insn,omitempty"`
}

// SyscallDescriptor is one queued syscall result.
type SyscallDescriptor struct {
	ToGuest []uint32  `json:"to_guest"`
	Regs    [2]uint32 `json:"regs"`
}

var exitKinds = map[string]vybiumriscvzkvm.ExitKind{
	"terminate":    vybiumriscvzkvm.ExitTerminate,
	"pause":        vybiumriscvzkvm.ExitPause,
	"split":        vybiumriscvzkvm.ExitSplit,
	"system_split": vybiumriscvzkvm.ExitSystemSplit,
}

var verbosity int

var rootCmd = &cobra.Command{
	Use:   "vybium-zkvm-replay <segment.json>",
	Short: "Replay a zkVM segment's paging schedule through the execution bridge",
	Long: "vybium-zkvm-replay loads a segment descriptor, builds the execution\n" +
		"bridge for it, and drains the page-fault queues in circuit order:\n" +
		"read faults highest page first, then write faults lowest first when\n" +
		"the segment flushes.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replay(args[0])
	},
}

func init() {
	rootCmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0,
		"diagnostics level: 0 quiet, 1 per-cycle tracing, 2+ guest logs")
	rootCmd.SilenceUsage = true
}

func loadDescriptor(path string) (*SegmentDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	var desc SegmentDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parsing descriptor: %w", err)
	}
	if desc.ImagePath == "" {
		return nil, fmt.Errorf("descriptor is missing the image path")
	}
	if _, ok := exitKinds[desc.Exit]; !ok {
		return nil, fmt.Errorf("unknown exit kind %q", desc.Exit)
	}
	return &desc, nil
}

func buildSegment(desc *SegmentDescriptor) (*vybiumriscvzkvm.Segment, error) {
	info := vybiumriscvzkvm.DefaultImageInfo()
	if desc.PageSize != 0 {
		info.PageSize = desc.PageSize
	}
	if desc.RegisterBase != 0 {
		info.RegisterBase = desc.RegisterBase
	}
	if desc.PageTableBase != 0 {
		info.PageTableBase = desc.PageTableBase
	}

	buf, err := os.ReadFile(desc.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if rem := uint32(len(buf)) % info.PageSize; rem != 0 {
		buf = append(buf, make([]byte, info.PageSize-rem)...)
	}
	img, err := vybiumriscvzkvm.NewMemoryImage(buf, info)
	if err != nil {
		return nil, err
	}

	syscalls := make([]vybiumriscvzkvm.SyscallRecord, len(desc.Syscalls))
	for i, s := range desc.Syscalls {
		syscalls[i] = vybiumriscvzkvm.SyscallRecord{ToGuest: s.ToGuest, Regs: s.Regs}
	}

	faults := vybiumriscvzkvm.PageFaults{
		Reads:  vybiumriscvzkvm.NewPageSet(desc.FaultReads),
		Writes: vybiumriscvzkvm.NewPageSet(desc.FaultWrites),
	}
	exit := vybiumriscvzkvm.ExitCode{
		Kind:      exitKinds[desc.Exit],
		SplitInsn: desc.SplitInsn,
	}
	return vybiumriscvzkvm.NewSegment(img, faults, syscalls, exit), nil
}

func replay(descriptorPath string) error {
	desc, err := loadDescriptor(descriptorPath)
	if err != nil {
		return err
	}
	segment, err := buildSegment(desc)
	if err != nil {
		return err
	}

	bridge, err := vybiumriscvzkvm.NewBridge(segment, &vybiumriscvzkvm.BridgeConfig{
		Verbosity: verbosity,
		LogOutput: os.Stderr,
	})
	if err != nil {
		return err
	}

	// A pausing segment flushes its dirty pages, so put the bridge in the
	// flushing state before draining. A system split flushes too, but only
	// once instruction classification reaches the split point.
	if exitKinds[desc.Exit] == vybiumriscvzkvm.ExitPause {
		args := []vybiumriscvzkvm.FieldElement{
			vybiumriscvzkvm.NewFieldElement(1), // PAUSE
			vybiumriscvzkvm.NewFieldElement(0),
		}
		if err := bridge.Call(0, "halt", "", args, nil); err != nil {
			return err
		}
	}

	fmt.Printf("segment: %s\n", descriptorPath)
	fmt.Printf("pre-image digest: 0x%016x\n", segment.PreImageDigest.Value())
	fmt.Println("paging schedule:")

	outs := make([]vybiumriscvzkvm.FieldElement, 3)
	for cycle := 0; ; cycle++ {
		if err := bridge.Call(cycle, "pageInfo", "", nil, outs); err != nil {
			return err
		}
		if outs[2].Value() == 1 {
			break
		}
		dir := "write"
		if outs[0].Value() == 1 {
			dir = "read"
		}
		fmt.Printf("  [%4d] %-5s page %d\n", cycle, dir, outs[1].Value())
	}

	state := bridge.GetState()
	fmt.Printf("done: halted=%v flushing=%v\n", state.Halted, state.Flushing)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
