package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// boardLEDs maps a device-tree model substring to the board's role ->
// kernel LED name table. First match wins.
var boardLEDs = []struct {
	model string
	leds  map[string]string
}{
	{"NanoPC-T6", map[string]string{"user": "usr_led", "system": "sys_led"}},
	{"Orange Pi", map[string]string{"blue": "blue_led", "system": "green_led"}},
	{"Raspberry Pi", map[string]string{"system": "ACT"}},
}

// New picks the controller for the board the daemon runs on, falling
// back to a no-op when the model is unknown or has no LED table.
func New(logger *slog.Logger) Controller {
	model := detectBoard()
	for _, board := range boardLEDs {
		if strings.Contains(model, board.model) {
			if logger != nil {
				logger.Info("Board LEDs detected", "board_model", model)
			}
			return newSysfs(board.leds)
		}
	}
	if logger != nil {
		logger.Info("No LED support for this board, LED control disabled", "board_model", model)
	}
	return newNoop(logger)
}

// detectBoard reads the device-tree model string, "unknown" when the
// host has none.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	// The model string is NUL-terminated in the device tree.
	return strings.TrimRight(string(data), "\x00")
}
