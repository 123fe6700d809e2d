// Package cmd provides the command-line interface for icebox.
package cmd

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/Skyrano/icebox/layout"
	"github.com/Skyrano/icebox/memory"
	"github.com/Skyrano/icebox/nt"
	"github.com/Skyrano/icebox/record"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "icebox",
	Short: "Icebox inspects guest memory snapshots taken from Windows " +
		"virtual machines.",
	Long: `Icebox inspects guest memory snapshots taken from Windows ` +
		`virtual machines. It replays the guest kernel's address ` +
		`translation against the snapshot, so pages can be located and ` +
		`read without running the guest.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().String("build", "win10-21h2",
		"guest OS build the snapshot was taken from")
	rootCmd.PersistentFlags().String("offsets", "",
		"dotenv file overriding kernel structure field offsets")
	rootCmd.PersistentFlags().String("kernel-dtb", "",
		"directory table base of the guest kernel address space")
	rootCmd.PersistentFlags().String("limit-mask", "",
		"physical memory truncation mask recorded by the hypervisor")
	rootCmd.PersistentFlags().String("record", "",
		"record every translation into this SQLite database")
	rootCmd.PersistentFlags().Bool("trace", false,
		"log every translation to stderr")
}

// buildTranslator loads the snapshot and assembles a translation engine
// from the persistent flags.
func buildTranslator(
	cmd *cobra.Command,
	dumpPath string,
) (*nt.Translator, *nt.Session, error) {
	storage, err := memory.LoadDump(dumpPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}

	buildName, _ := cmd.Flags().GetString("build")
	offsets, ok := layout.Profile(buildName)
	if !ok {
		return nil, nil, fmt.Errorf(
			"unknown guest build %q, known builds: %v",
			buildName, layout.Builds())
	}

	if envPath, _ := cmd.Flags().GetString("offsets"); envPath != "" {
		if err := offsets.ApplyEnvFile(envPath); err != nil {
			return nil, nil, fmt.Errorf("applying offsets: %w", err)
		}
	}

	builder := nt.MakeBuilder().
		WithPhysicalMemory(storage).
		WithFieldResolver(offsets)

	if dbPath, _ := cmd.Flags().GetString("record"); dbPath != "" {
		recorder := record.NewRecorder(dbPath)
		builder = builder.WithTracer(record.NewDBTracer(recorder))
	} else if traced, _ := cmd.Flags().GetBool("trace"); traced {
		logger := log.New(os.Stderr, "", log.LstdFlags)
		builder = builder.WithTracer(record.NewLogTracer(logger))
	}

	session := &nt.Session{}
	if dtbStr, _ := cmd.Flags().GetString("kernel-dtb"); dtbStr != "" {
		dtb, err := strconv.ParseUint(dtbStr, 0, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid kernel-dtb %q", dtbStr)
		}
		session.KernelDTB = nt.DTB(dtb)
	}

	if maskStr, _ := cmd.Flags().GetString("limit-mask"); maskStr != "" {
		limitMask, err := strconv.ParseUint(maskStr, 0, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid limit-mask %q", maskStr)
		}
		session.PhysicalMemoryLimitMask = limitMask
	}

	return builder.Build("Translator"), session, nil
}

func parseAddrFlag(cmd *cobra.Command, name string) (uint64, error) {
	str, _ := cmd.Flags().GetString(name)
	if str == "" {
		return 0, fmt.Errorf("flag --%s is required", name)
	}

	v, err := strconv.ParseUint(str, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, str)
	}

	return v, nil
}
