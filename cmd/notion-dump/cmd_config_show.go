/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Output current config",
	Long: `
Is something not working for you?  Have a look whether your config is as you expect.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Note, you can only talk about persistent flags here.  Command-specific ones won't be
		// visible.
		fmt.Printf("Dump current config state:\n\n")

		fmt.Printf("  Config file: %s\n", Config)
		fmt.Printf("  Debug: %v\n", Debug)
		fmt.Printf("  Verbose: %v\n", Verbose)
		fmt.Printf("  LogFile: %s\n", LogFile)
		fmt.Printf("  AuthTokenCmd: %v\n", AuthTokenCmd)
		fmt.Printf("  DatabaseID: %s\n", DatabaseID)
		fmt.Printf("  LocalStore: %s\n", LocalStore)
		fmt.Printf("  IndexFilename: %s\n", IndexFilename)
		fmt.Println()

		parsed, err := yaml.Marshal(ParsedConfig)
		if err != nil {
			return fmt.Errorf("config: couldn't marshal parsed config: %w", err)
		}
		fmt.Printf("  Parsed YAML:\n%s\n", parsed)

		return nil
	},
}

func init() {
	configCmd.AddCommand(showCmd)
}
