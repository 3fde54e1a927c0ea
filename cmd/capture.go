package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/pkg/evk"
)

// CreateCaptureCmd creates the capture command.
func CreateCaptureCmd() *cobra.Command {
	var configFile string
	var extConfigFile string
	var serial string
	var devicePath string
	var simulate bool
	var count int
	var timeout time.Duration
	var outputDir string
	var modeID uint32
	var buffers int
	var memRAM bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture frames to disk",
		Long: `Opens a camera, programs it from the description file and writes the ` +
			`requested number of raw frames to the output directory, one file per frame.`,
		Run: func(cmd *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: logLevel, Format: "text"})
			logger := logging.GetLogger("capture")

			if configFile == "" {
				logger.Error("no camera description file, use --config")
				os.Exit(1)
			}

			enum, closeEnum := newEnumerator(simulate)
			defer func() { _ = closeEnum() }()

			dev, err := selectDevice(enum, serial, devicePath)
			if err != nil {
				logger.Error("Failed to select device", "error", err)
				os.Exit(1)
			}

			param := evk.DefaultOpenParam()
			param.Device = dev
			param.ConfigFile = configFile
			param.ExtConfigFile = extConfigFile
			param.Logger = logging.GetLogger("evk")
			param.BufferCount = buffers
			if memRAM {
				param.MemType = evk.MemTypeRAM
			}

			cam, err := evk.Open(param)
			if err != nil {
				logger.Error("Failed to open camera", "device", dev.String(), "error", err)
				os.Exit(1)
			}
			defer func() { _ = cam.Close() }()

			if err := cam.Init(); err != nil {
				logger.Error("Failed to initialize camera", "error", err)
				os.Exit(1)
			}
			if cmd.Flags().Changed("mode") {
				if err := cam.SwitchMode(modeID); err != nil {
					logger.Error("Failed to switch mode", "mode", modeID, "error", err)
					os.Exit(1)
				}
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				logger.Error("Failed to create output directory", "dir", outputDir, "error", err)
				os.Exit(1)
			}

			if err := cam.Start(); err != nil {
				logger.Error("Failed to start capture", "error", err)
				os.Exit(1)
			}

			written := 0
			for written < count {
				frame, err := cam.Capture(timeout)
				if err != nil {
					logger.Error("Capture failed", "captured", written, "error", err)
					break
				}
				name := filepath.Join(outputDir, fmt.Sprintf("frame_%06d.raw", frame.Seq))
				werr := os.WriteFile(name, frame.Data[:frame.Size], 0o644)
				if ferr := cam.FreeImage(frame); ferr != nil {
					logger.Warn("Failed to return frame buffer", "error", ferr)
				}
				if werr != nil {
					logger.Error("Failed to write frame", "file", name, "error", werr)
					break
				}
				written++
			}

			if err := cam.Stop(); err != nil {
				logger.Warn("Failed to stop capture", "error", err)
			}

			stats := cam.Stats()
			fmt.Printf("wrote %d frames to %s (%d delivered, %d dropped, %d faults, %d fps, %.1f MB/s)\n",
				written, outputDir, stats.Frames, stats.Drops, stats.Faults,
				stats.FPS, float64(stats.Bandwidth)/1e6)
			if written < count {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Camera description file (text or binary)")
	cmd.Flags().StringVar(&extConfigFile, "ext-config", "", "Extension description overlaid onto the main one")
	cmd.Flags().StringVar(&serial, "serial", "", "Select the device with this serial number")
	cmd.Flags().StringVar(&devicePath, "device", "", "Select the device at this bus path, e.g. 3-1.4")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Capture from a simulated board")
	cmd.Flags().IntVar(&count, "count", 10, "Number of frames to capture")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Per-frame capture timeout")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory for frame files")
	cmd.Flags().Uint32Var(&modeID, "mode", 0, "Switch to this mode before starting (binary descriptions)")
	cmd.Flags().IntVar(&buffers, "buffers", 0, "Frame buffer count (0 uses the default)")
	cmd.Flags().BoolVar(&memRAM, "ram", false, "Stage transfers in board RAM instead of DMA")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}
