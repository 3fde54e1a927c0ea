package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/camnode/pkg/evk"
)

// CreateListCmd creates the list command.
func CreateListCmd() *cobra.Command {
	var simulate bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List attached camera boards",
		Long: `Scans the USB bus for EVK bridge boards and prints one line per device. ` +
			`Serial numbers are read during open, so entries here carry the bus path instead.`,
		Run: func(_ *cobra.Command, _ []string) {
			enum, closeEnum := newEnumerator(simulate)
			defer func() { _ = closeEnum() }()

			devices, err := enum.Enumerate()
			if err != nil {
				fmt.Fprintf(os.Stderr, "enumerate: %v\n", err)
				os.Exit(1)
			}
			if len(devices) == 0 {
				fmt.Println("no devices found")
				return
			}

			fmt.Printf("%-4s %-9s %-8s %-10s %-12s %s\n", "IDX", "VID:PID", "USB", "SPEED", "PATH", "SERIAL")
			for i, dev := range devices {
				serial := dev.Serial
				if serial == "" {
					serial = "-"
				}
				fmt.Printf("%-4d %04x:%04x %-8s %-10s %-12s %s\n",
					i, dev.VendorID, dev.ProductID,
					evk.USBTypeName(dev.USBType), dev.Speed, dev.Path, serial)
			}
		},
	}

	cmd.Flags().BoolVar(&simulate, "simulate", false, "List a simulated board instead of scanning USB")

	return cmd
}
