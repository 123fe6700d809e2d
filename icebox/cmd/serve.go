package cmd

import (
	"fmt"
	"log"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/Skyrano/icebox/monitoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve [snapshot]",
	Short: "Serve the snapshot over an HTTP inspection API.",
	Long: "`serve snapshot.raw` loads the snapshot and starts an HTTP " +
		"server, so addresses can be translated and pages read from a " +
		"browser or from scripts.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		translator, session, err := buildTranslator(cmd, args[0])
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		monitor := monitoring.NewMonitor()
		monitor.RegisterTranslator(translator)
		monitor.RegisterSession(session)

		if portNumber, _ := cmd.Flags().GetInt("port"); portNumber != 0 {
			monitor.WithPortNumber(portNumber)
		}

		port := monitor.StartServer()

		if open, _ := cmd.Flags().GetBool("open"); open {
			url := fmt.Sprintf("http://localhost:%d/api/state", port)
			if err := browser.OpenURL(url); err != nil {
				log.Printf("Error opening browser: %v", err)
			}
		}

		select {}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "port to serve the inspection API on")
	serveCmd.Flags().Bool("open", false,
		"open the inspection API in a browser")
}
