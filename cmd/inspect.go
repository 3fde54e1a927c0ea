package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/camnode/pkg/evk"
)

// CreateInspectCmd creates the inspect command.
func CreateInspectCmd() *cobra.Command {
	var showRegisters bool

	cmd := &cobra.Command{
		Use:   "inspect <config-file>",
		Short: "Show the contents of a camera description file",
		Long:  `Parses a text or binary camera description and prints its modes, controls and register sequences.`,
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			path := args[0]
			file, err := evk.LoadConfigFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "parse %s: %v\n", path, err)
				os.Exit(1)
			}

			kind := "text"
			if file.Binary {
				kind = "binary"
			}
			fmt.Printf("%s: %s, %d mode(s)\n", path, kind, len(file.Modes))

			for _, mode := range file.Modes {
				cfg := mode.Config
				name := cfg.Name
				if name == "" {
					name = "(unnamed)"
				}
				fmt.Printf("\nmode %d: %s\n", mode.ID, name)
				fmt.Printf("  %dx%d @ %d bit, format %s\n", cfg.Width, cfg.Height, cfg.BitWidth, cfg.Format)
				fmt.Printf("  i2c %s chip 0x%02x\n", cfg.I2CMode, cfg.I2CAddr)
				fmt.Printf("  %d register write(s), %d control(s)\n", len(mode.Registers), len(mode.Controls))

				for _, ctrl := range mode.Controls {
					fmt.Printf("  control %-20s %-20s [%d..%d] step %d default %d reg 0x%x\n",
						ctrl.Name, ctrl.Func, ctrl.Min, ctrl.Max, ctrl.Step, ctrl.Default, ctrl.Reg)
				}

				if showRegisters {
					for _, op := range mode.Registers {
						if op.Delay > 0 {
							fmt.Printf("  reg 0x%04x = 0x%04x (settle %s)\n", op.Addr, op.Value, op.Delay)
						} else {
							fmt.Printf("  reg 0x%04x = 0x%04x\n", op.Addr, op.Value)
						}
					}
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&showRegisters, "registers", "r", false, "Dump the register init sequences")

	return cmd
}
