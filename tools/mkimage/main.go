// Command mkimage packs a flat binary into the segmented, ELF64-like
// executable format kernel/exec loads. It mirrors the teacher's makelogo
// tool in spirit (a small host-side CLI that turns an input asset into a
// form the kernel can consume directly) but produces a binary executable
// image rather than a generated Go source file, and so reaches for cobra
// and pflag for its argument handling instead of the standard flag
// package.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	magic          = 0x464c457f
	machineX8664   = 0x3e
	typeExecutable = 2
	segTypeLoad    = 1

	headerSize = 64
	phSize     = 56
)

// buildImage packs code into a single PT_LOAD segment that covers the whole
// file (header, program header and code) and is mapped at loadVAddr, so the
// code itself starts at loadVAddr+headerSize+phSize. The entry point is
// loadVAddr+entryOffset. The on-disk layout matches kernel/exec's header
// and programHeader structs field for field.
func buildImage(code []byte, loadVAddr uint64, entryOffset uint64) []byte {
	phOff := uint64(headerSize)
	bodyOff := phOff + phSize
	total := bodyOff + uint64(len(code))

	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(hdr[0:], magic)
	hdr[4] = 0 // Bitsize
	hdr[5] = 0 // Endian
	hdr[6] = 0 // IdentABIVersion
	hdr[7] = 0 // TargetPlatform
	hdr[8] = 0 // ABIVersion
	// hdr[9:16] is the 7-byte padding field, left zero.
	binary.LittleEndian.PutUint16(hdr[16:], typeExecutable)
	binary.LittleEndian.PutUint16(hdr[18:], machineX8664)
	binary.LittleEndian.PutUint32(hdr[20:], 0) // Version
	binary.LittleEndian.PutUint64(hdr[24:], loadVAddr+entryOffset)
	binary.LittleEndian.PutUint64(hdr[32:], phOff)
	binary.LittleEndian.PutUint64(hdr[40:], 0) // ShOff
	binary.LittleEndian.PutUint32(hdr[48:], 0) // Flags
	binary.LittleEndian.PutUint16(hdr[52:], headerSize)
	binary.LittleEndian.PutUint16(hdr[54:], phSize)
	binary.LittleEndian.PutUint16(hdr[56:], 1) // Phnum
	binary.LittleEndian.PutUint16(hdr[58:], 0) // Shentsize
	binary.LittleEndian.PutUint16(hdr[60:], 0) // Shnum
	binary.LittleEndian.PutUint16(hdr[62:], 0) // Shstrndx

	ph := make([]byte, phSize)
	binary.LittleEndian.PutUint32(ph[0:], segTypeLoad)
	binary.LittleEndian.PutUint32(ph[4:], 0x7) // Flags, unused by the loader
	binary.LittleEndian.PutUint64(ph[8:], 0)   // Off
	binary.LittleEndian.PutUint64(ph[16:], loadVAddr)
	binary.LittleEndian.PutUint64(ph[24:], loadVAddr) // PAddr, unused
	binary.LittleEndian.PutUint64(ph[32:], total)
	binary.LittleEndian.PutUint64(ph[40:], total)
	binary.LittleEndian.PutUint64(ph[48:], 0x1000) // Align

	out := make([]byte, 0, total)
	out = append(out, hdr...)
	out = append(out, ph...)
	out = append(out, code...)
	return out
}

func newRootCmd() *cobra.Command {
	var (
		loadAddr    uint64
		entryOffset uint64
		output      string
	)

	cmd := &cobra.Command{
		Use:   "mkimage <flat-binary>",
		Short: "pack a flat binary into a sharkos executable image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			image := buildImage(code, loadAddr, entryOffset)

			if output == "-" {
				_, err = os.Stdout.Write(image)
				return err
			}
			return os.WriteFile(output, image, 0o644)
		},
	}

	flags := cmd.Flags()
	flags.Uint64Var(&loadAddr, "load-addr", 0x1000_0000, "virtual address the segment is loaded at")
	flags.Uint64Var(&entryOffset, "entry-offset", 0, "offset from load-addr of the first instruction to execute")
	flags.StringVarP(&output, "out", "o", "-", "output file, or - for stdout")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
