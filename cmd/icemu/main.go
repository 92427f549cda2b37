package main

import (
	"os"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jochembroekhoff/ICEmu/config"
	"github.com/jochembroekhoff/ICEmu/emulator"
	"github.com/jochembroekhoff/ICEmu/hooks"
	"github.com/jochembroekhoff/ICEmu/idempotency"
	loader "github.com/jochembroekhoff/ICEmu/loader/elf"
)

var (
	flag_config_files []string
	flag_plugin_args  []string
	flag_dump_hex     bool
	flag_dump_bin     bool
	flag_dump_reg     bool
	flag_dump_prefix  string
	flag_thumb        bool
	flag_verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "icemu <elf-file>",
	Short: "ARM firmware emulator with idempotency analysis",
	Long: `icemu runs an ARM-class firmware image under emulation and feeds the
instruction and memory event stream into the idempotency analysis, which
partitions the trace into maximal idempotent regions and dumps one CSV of
region boundaries per detector variant.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flag_verbose {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}
		if err := run(args[0]); err != nil {
			log.WithFields(log.Fields{"error": err, "stack": err.ErrorStack()}).Error("icemu failed")
			return err.Err
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringSliceVarP(&flag_config_files, "config-file", "c", nil, "json config file (can be passed multiple times, later files win)")
	rootCmd.Flags().StringSliceVarP(&flag_plugin_args, "plugin-arg", "a", nil, "argument passed through to the analyses")
	rootCmd.Flags().BoolVarP(&flag_dump_hex, "dump-hex", "x", false, "dump hex file of the memory regions at completion")
	rootCmd.Flags().BoolVarP(&flag_dump_bin, "dump-bin", "b", false, "dump bin file of the memory regions at completion")
	rootCmd.Flags().BoolVarP(&flag_dump_reg, "dump-reg", "r", false, "dump file with the register values at completion")
	rootCmd.Flags().StringVar(&flag_dump_prefix, "dump-prefix", "dump-", "dump file prefix")
	rootCmd.Flags().BoolVar(&flag_thumb, "thumb", true, "start the core in Thumb mode")
	rootCmd.Flags().BoolVarP(&flag_verbose, "verbose", "v", false, "debug logging")
}

func run(elf_file string) *errors.Error {
	cfg := config.New()
	for _, f := range flag_config_files {
		if err := cfg.Add(f); err != nil {
			return err
		}
	}

	image, err := loader.Load(elf_file)
	if err != nil {
		return err
	}

	em, err := emulator.NewEmulator(image.Segments, emulator.Config{
		MaxInstructionCount: cfg.MaxInstructions(),
		MaxTime:             cfg.MaxTime(),
		MaxPages:            cfg.MaxPages(),
		Arch:                &emulator.ArchARM{Thumb: flag_thumb},
		Env:                 emulator.NewRandEnv(0),
	})
	if err != nil {
		return err
	}
	defer em.Close()

	env := &hooks.Env{
		Registers:  em,
		Symbols:    image.Symbols,
		PluginArgs: flag_plugin_args,
	}

	// Analyses are registered explicitly. An analysis whose
	// construction fails is reported and left unregistered; the
	// emulation itself still runs.
	analyzer, err := idempotency.NewAnalyzer(env, idempotency.Options{MaxRegionSize: cfg.MaxRegionSize()})
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Idempotency analysis not registered")
	} else {
		analyzer.Register(em.Hooks())
	}

	if estack, ok := image.Symbols.ByName("_estack"); ok {
		if err := em.SetSP(estack); err != nil {
			return err
		}
	}

	if err := em.Run(image.Entry); err != nil {
		return err
	}

	if analyzer != nil {
		analyzer.Flush()
	}

	if flag_dump_hex {
		if err := em.DumpHex(flag_dump_prefix); err != nil {
			return err
		}
	}
	if flag_dump_bin {
		if err := em.DumpBin(flag_dump_prefix); err != nil {
			return err
		}
	}
	if flag_dump_reg {
		if err := em.DumpRegs(flag_dump_prefix); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
