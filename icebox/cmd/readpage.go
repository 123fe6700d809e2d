package cmd

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Skyrano/icebox/nt"
)

var readPageCmd = &cobra.Command{
	Use:   "readpage [snapshot]",
	Short: "Read one page of guest memory.",
	Long: "`readpage --dtb [dtb] --addr [addr] snapshot.raw` reads the " +
		"4 KiB page containing the address and prints it as a hex dump, " +
		"or writes the raw bytes to a file with --out.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		translator, session, err := buildTranslator(cmd, args[0])
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		dtb, err := parseAddrFlag(cmd, "dtb")
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		addr, err := parseAddrFlag(cmd, "addr")
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		data, err := translator.ReadPage(
			session, nil, nt.DTB(dtb), nt.VirtualAddress(addr))
		if err != nil {
			log.Fatalf("Error reading page at 0x%x: %v", addr, err)
		}

		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			fmt.Print(hex.Dump(data))
			return
		}

		if err := os.WriteFile(outPath, data, 0644); err != nil {
			log.Fatalf("Error writing %s: %v", outPath, err)
		}
	},
}

func init() {
	rootCmd.AddCommand(readPageCmd)
	readPageCmd.Flags().String("dtb", "",
		"directory table base of the address space")
	readPageCmd.Flags().String("addr", "",
		"guest virtual address of the page")
	readPageCmd.Flags().String("out", "",
		"write the raw page bytes to this file")
}
