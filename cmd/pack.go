package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smazurov/camnode/pkg/evk"
)

// CreatePackCmd creates the pack command.
func CreatePackCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pack <config.toml>",
		Short: "Pack a text camera description into the binary format",
		Long: `Parses a text camera description and writes it back in the binary container, ` +
			`the format mode switching requires. The single text mode becomes mode 0.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			input := args[0]
			file, err := evk.LoadConfigFile(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "parse %s: %v\n", input, err)
				os.Exit(1)
			}
			if file.Binary {
				fmt.Fprintf(os.Stderr, "%s is already binary\n", input)
				os.Exit(1)
			}

			data, err := evk.MarshalBinaryConfig(file.Modes)
			if err != nil {
				fmt.Fprintf(os.Stderr, "pack %s: %v\n", input, err)
				os.Exit(1)
			}

			out := output
			if out == "" {
				out = strings.TrimSuffix(input, ".toml") + ".evkb"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "write %s: %v\n", out, err)
				os.Exit(1)
			}
			fmt.Printf("wrote %s: %d mode(s), %d bytes\n", out, len(file.Modes), len(data))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: input with .evkb extension)")

	return cmd
}
