// Command memview runs a program image through the emulator and analyzer,
// then opens an SDL window showing the resulting Code/Data/LabelTarget map
// of the full 64 KiB address space. Optional inspection tool; nothing under
// pkg/cpu, pkg/memory, pkg/emulator, pkg/analyzer, or pkg/disasm imports it.
package main

import (
	"log"
	"os"
	"strconv"

	"github.com/sidblaster/sidblaster-go/pkg/analyzer"
	"github.com/sidblaster/sidblaster-go/pkg/emulator"
	"github.com/sidblaster/sidblaster-go/pkg/logger"
	"github.com/sidblaster/sidblaster-go/pkg/memory"
	"github.com/sidblaster/sidblaster-go/pkg/sidimage"
	"github.com/sidblaster/sidblaster-go/pkg/visualizer"
)

func usage() {
	println("Usage: memview <raw_file> <load_addr_hex> <init_addr_hex> <play_addr_hex>")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 5 {
		usage()
	}

	rawFile := os.Args[1]
	loadAddr := parseHexArg(os.Args[2], "load address")
	initAddr := parseHexArg(os.Args[3], "init address")
	playAddr := parseHexArg(os.Args[4], "play address")

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
	if _, err := driver.Run(emulator.RunOptions{
		Entry:    emulator.EntryPoints{Init: initAddr, Play: playAddr},
		Standard: emulator.PAL,
	}); err != nil {
		log.Fatalf("emulation run failed: %v", err)
	}

	a := analyzer.New(mem, img.LoadAddress, img.Size())
	a.Classify()

	view, err := visualizer.New()
	if err != nil {
		log.Fatalf("failed to open visualizer window: %v", err)
	}
	defer view.Destroy()

	if err := view.RenderOnce(a); err != nil {
		log.Fatalf("failed to render memory map: %v", err)
	}

	logger.LogInfo("press Escape or close the window to exit")
	view.PumpUntilClosed()
}

func parseHexArg(s, label string) uint16 {
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		log.Fatalf("invalid %s %q: %v", label, s, err)
	}
	return uint16(v)
}
