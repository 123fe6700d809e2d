package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/Skyrano/icebox/nt"
)

var translateCmd = &cobra.Command{
	Use:   "translate [snapshot]",
	Short: "Translate a guest virtual address to a physical address.",
	Long: "`translate --dtb [dtb] --addr [addr] snapshot.raw` walks the " +
		"page tables found in the snapshot and reports where the address " +
		"resolves to.",
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

		res := translator.Translate(
			session, nil, nt.DTB(dtb), nt.VirtualAddress(addr))

		switch res.State {
		case nt.TranslationMapped:
			fmt.Printf("0x%x -> 0x%x\n", addr, res.PAddr)
		default:
			fmt.Printf("0x%x -> %s\n", addr, res.State)
		}
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().String("dtb", "",
		"directory table base of the address space")
	translateCmd.Flags().String("addr", "",
		"guest virtual address to translate")
}
