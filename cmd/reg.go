package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/pkg/evk"
)

// CreateRegCmd creates the reg command with its read and write
// subcommands.
func CreateRegCmd() *cobra.Command {
	var configFile string
	var serial string
	var devicePath string
	var simulate bool
	var chip string
	var i2cMode string

	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Read and write sensor registers",
		Long: `Accesses sensor registers over the bridge's I2C plane. With --config the ` +
			`I2C mode and chip address come from the description file; --chip and --i2c-mode ` +
			`address an arbitrary chip directly.`,
	}

	open := func() (*evk.Camera, func(), evk.I2CMode, uint32, bool) {
		logging.Initialize(logging.Config{Level: "warn", Format: "text"})
		logger := logging.GetLogger("reg")

		direct := chip != ""
		if direct && i2cMode == "" {
			logger.Error("--chip requires --i2c-mode")
			os.Exit(1)
		}
		if !direct && configFile == "" {
			logger.Error("either --config or --chip/--i2c-mode is required")
			os.Exit(1)
		}

		var mode evk.I2CMode
		var chipAddr uint32
		if direct {
			var err error
			mode, err = evk.ParseI2CMode(i2cMode)
			if err != nil {
				logger.Error("Bad i2c mode", "error", err)
				os.Exit(1)
			}
			addr, err := strconv.ParseUint(chip, 0, 8)
			if err != nil {
				logger.Error("Bad chip address", "chip", chip, "error", err)
				os.Exit(1)
			}
			chipAddr = uint32(addr)
		}

		enum, closeEnum := newEnumerator(simulate)
		dev, err := selectDevice(enum, serial, devicePath)
		if err != nil {
			_ = closeEnum()
			logger.Error("Failed to select device", "error", err)
			os.Exit(1)
		}

		param := evk.DefaultOpenParam()
		param.Device = dev
		param.ConfigFile = configFile
		param.Logger = logging.GetLogger("evk")
		cam, err := evk.Open(param)
		if err != nil {
			_ = closeEnum()
			logger.Error("Failed to open camera", "device", dev.String(), "error", err)
			os.Exit(1)
		}
		cleanup := func() {
			_ = cam.Close()
			_ = closeEnum()
		}
		return cam, cleanup, mode, chipAddr, direct
	}

	parseReg := func(s string) uint32 {
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad register address %q: %v\n", s, err)
			os.Exit(1)
		}
		return uint32(v)
	}

	readCmd := &cobra.Command{
		Use:   "read <register>",
		Short: "Read one sensor register",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			reg := parseReg(args[0])
			cam, cleanup, mode, chipAddr, direct := open()
			defer cleanup()

			var val uint32
			var err error
			if direct {
				val, err = cam.ReadReg(mode, chipAddr, reg)
			} else {
				mode = cam.Config().I2CMode
				val, err = cam.ReadSensorReg(reg)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "read 0x%x: %v\n", reg, err)
				os.Exit(1)
			}
			fmt.Printf("0x%0*x = 0x%0*x\n", mode.AddrBits()/4, reg, mode.DataBits()/4, val)
		},
	}

	writeCmd := &cobra.Command{
		Use:   "write <register> <value>",
		Short: "Write one sensor register",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			reg := parseReg(args[0])
			val := parseReg(args[1])
			cam, cleanup, mode, chipAddr, direct := open()
			defer cleanup()

			var err error
			if direct {
				err = cam.WriteReg(mode, chipAddr, reg, val)
			} else {
				mode = cam.Config().I2CMode
				err = cam.WriteSensorReg(reg, val)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "write 0x%x: %v\n", reg, err)
				os.Exit(1)
			}
			fmt.Printf("0x%0*x = 0x%0*x\n", mode.AddrBits()/4, reg, mode.DataBits()/4, val)
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Camera description file supplying the I2C personality")
	cmd.PersistentFlags().StringVar(&serial, "serial", "", "Select the device with this serial number")
	cmd.PersistentFlags().StringVar(&devicePath, "device", "", "Select the device at this bus path")
	cmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use a simulated board")
	cmd.PersistentFlags().StringVar(&chip, "chip", "", "I2C chip address, e.g. 0x34 (bypasses the description file)")
	cmd.PersistentFlags().StringVar(&i2cMode, "i2c-mode", "", "I2C width mode: 8_8, 8_16, 16_8, 16_16 or 16_32")

	cmd.AddCommand(readCmd)
	cmd.AddCommand(writeCmd)

	return cmd
}
