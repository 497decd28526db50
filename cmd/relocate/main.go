// Command relocate drives the full pipeline: load a flat program image, run
// its init/play routines under the emulator, classify the resulting memory
// access map, and emit relocatable 6510 assembly. Argument handling follows
// the teacher's cmd/rom_analyzer -- hand-parsed os.Args, no flag package.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/sidblaster/sidblaster-go/pkg/analyzer"
	"github.com/sidblaster/sidblaster-go/pkg/disasm"
	"github.com/sidblaster/sidblaster-go/pkg/emulator"
	"github.com/sidblaster/sidblaster-go/pkg/logger"
	"github.com/sidblaster/sidblaster-go/pkg/memory"
	"github.com/sidblaster/sidblaster-go/pkg/sidimage"
)

func usage() {
	fmt.Println("Usage: relocate <raw_file> <load_addr_hex> <init_addr_hex> <play_addr_hex> <new_base_hex> [speed_word_hex]")
	fmt.Println("  raw_file must already have any PSID/RSID header stripped.")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 6 {
		usage()
	}

	rawFile := os.Args[1]
	loadAddr := parseHexArg(os.Args[2], "load address")
	initAddr := parseHexArg(os.Args[3], "init address")
	playAddr := parseHexArg(os.Args[4], "play address")
	newBase := parseHexArg(os.Args[5], "new base")

	var speedWord uint16
	if len(os.Args) > 6 {
		speedWord = parseHexArg(os.Args[6], "speed word")
	}

	data, err := os.ReadFile(rawFile)
	if err != nil {
		log.Fatalf("failed to read %s: %v", rawFile, err)
	}

	img, err := sidimage.New(loadAddr, data)
	if err != nil {
		log.Fatalf("failed to build program image: %v", err)
	}

	mem := memory.New()
	img.LoadInto(mem)

	driver := emulator.New(mem)
	report, err := driver.Run(emulator.RunOptions{
		Entry:          emulator.EntryPoints{Init: initAddr, Play: playAddr},
		Standard:       emulator.PAL,
		SpeedWord:      speedWord,
		SnapshotAround: false,
	})
	if err != nil {
		log.Fatalf("emulation run failed: %v", err)
	}

	logger.LogInfo("calls per frame: %d", report.CallsPerFrame)
	logger.LogInfo("cycles per frame: min=%d max=%d mean=%.1f", report.Stats.Min, report.Stats.Max, report.Stats.Mean)
	for _, w := range report.Warnings {
		logger.LogWarn("%s", w)
	}

	a := analyzer.New(mem, img.LoadAddress, img.Size())
	a.Classify()

	emitter := disasm.New(mem, a, disasm.EntryPoints{CIATimerSymbol: "player_set_timer"})
	text, trim, err := emitter.Emit(img.LoadAddress, img.Size(), newBase)
	if err != nil {
		log.Fatalf("emission failed: %v", err)
	}
	if trim.TrimmedCount > 0 {
		logger.LogInfo("trimmed %d trailing zero bytes from $%04X", trim.TrimmedCount, trim.TrimmedFrom)
	}

	fmt.Print(text)
}

func parseHexArg(s, label string) uint16 {
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		log.Fatalf("invalid %s %q: %v", label, s, err)
	}
	return uint16(v)
}
