package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camnode/internal/api/models"
	"github.com/smazurov/camnode/pkg/evk"
)

// parseHex parses a register address or value. The 0x prefix is
// optional; bare digits are read as hex, matching sensor datasheets.
func parseHex(s string) (uint32, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" {
		return 0, fmt.Errorf("empty hex value")
	}
	v, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q", s)
	}
	return uint32(v), nil
}

// registerRegisterRoutes registers sensor/board register and userdata
// endpoints.
func (s *Server) registerRegisterRoutes() {
	// Read a register
	huma.Register(s.api, huma.Operation{
		OperationID: "read-camera-register",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{camera_id}/registers/{reg}",
		Summary:     "Read Register",
		Description: "Read a sensor register, or any I2C chip on the board when chip and i2c_mode are given",
		Tags:        []string{"registers"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *struct {
		CameraIDInput
		Reg     string `path:"reg" example:"0x3500" doc:"Register address in hex"`
		Chip    string `query:"chip" example:"0x6c" doc:"I2C chip address, empty for the configured sensor"`
		I2CMode string `query:"i2c_mode" enum:",8_8,8_16,16_8,16_16,16_32" example:"16_8" doc:"Address/data width mode, required when chip is set"`
	}) (*models.RegisterResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}

		reg, err := parseHex(input.Reg)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		var value uint32
		if input.Chip == "" {
			value, err = session.Camera().ReadSensorReg(reg)
		} else {
			chip, mode, convErr := chipAndMode(input.Chip, input.I2CMode)
			if convErr != nil {
				return nil, convErr
			}
			value, err = session.Camera().ReadReg(mode, chip, reg)
		}
		if err != nil {
			return nil, s.mapCameraError(err)
		}

		return &models.RegisterResponse{
			Body: models.RegisterData{
				Reg:   fmt.Sprintf("0x%04x", reg),
				Value: fmt.Sprintf("0x%04x", value),
				Chip:  input.Chip,
			},
		}, nil
	})

	// Write a register
	huma.Register(s.api, huma.Operation{
		OperationID: "write-camera-register",
		Method:      http.MethodPut,
		Path:        "/api/cameras/{camera_id}/registers/{reg}",
		Summary:     "Write Register",
		Description: "Write a sensor register, or any I2C chip on the board when chip and i2c_mode are given",
		Tags:        []string{"registers"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *struct {
		CameraIDInput
		Reg  string `path:"reg" example:"0x3500" doc:"Register address in hex"`
		Body models.WriteRegisterRequestData
	}) (*models.RegisterResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}

		reg, err := parseHex(input.Reg)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		value, err := parseHex(input.Body.Value)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		if input.Body.Chip == "" {
			err = session.Camera().WriteSensorReg(reg, value)
		} else {
			chip, mode, convErr := chipAndMode(input.Body.Chip, input.Body.I2CMode)
			if convErr != nil {
				return nil, convErr
			}
			err = session.Camera().WriteReg(mode, chip, reg, value)
		}
		if err != nil {
			return nil, s.mapCameraError(err)
		}

		return &models.RegisterResponse{
			Body: models.RegisterData{
				Reg:   fmt.Sprintf("0x%04x", reg),
				Value: fmt.Sprintf("0x%04x", value),
				Chip:  input.Body.Chip,
			},
		}, nil
	})

	// Read userdata
	huma.Register(s.api, huma.Operation{
		OperationID: "read-camera-userdata",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{camera_id}/userdata",
		Summary:     "Read Userdata",
		Description: "Read from the 1 KiB board userdata window",
		Tags:        []string{"registers"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *struct {
		CameraIDInput
		Addr   string `query:"addr" example:"0x0000" doc:"Offset into the userdata window, defaults to 0"`
		Length int    `query:"length" minimum:"0" maximum:"1024" example:"64" doc:"Bytes to read, defaults to the rest of the window"`
	}) (*models.UserdataResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}

		var addr uint32
		if input.Addr != "" {
			addr, err = parseHex(input.Addr)
			if err != nil {
				return nil, huma.Error400BadRequest(err.Error())
			}
		}

		length := input.Length
		if length <= 0 {
			if addr >= evk.UserdataSize {
				return nil, huma.Error400BadRequest(fmt.Sprintf("addr 0x%04x beyond userdata window", addr))
			}
			length = int(evk.UserdataSize - addr)
		}

		data := make([]byte, length)
		if err := session.Camera().ReadUserData(addr, data); err != nil {
			return nil, s.mapCameraError(err)
		}

		return &models.UserdataResponse{
			Body: models.UserdataData{
				Addr:   fmt.Sprintf("0x%04x", addr),
				Length: length,
				Data:   data,
			},
		}, nil
	})

	// Write userdata
	huma.Register(s.api, huma.Operation{
		OperationID: "write-camera-userdata",
		Method:      http.MethodPut,
		Path:        "/api/cameras/{camera_id}/userdata",
		Summary:     "Write Userdata",
		Description: "Write into the 1 KiB board userdata window",
		Tags:        []string{"registers"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *struct {
		CameraIDInput
		Body models.WriteUserdataRequestData
	}) (*models.UserdataResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}

		var addr uint32
		if input.Body.Addr != "" {
			addr, err = parseHex(input.Body.Addr)
			if err != nil {
				return nil, huma.Error400BadRequest(err.Error())
			}
		}
		if len(input.Body.Data) == 0 {
			return nil, huma.Error400BadRequest("data must not be empty")
		}

		if err := session.Camera().WriteUserData(addr, input.Body.Data); err != nil {
			return nil, s.mapCameraError(err)
		}

		return &models.UserdataResponse{
			Body: models.UserdataData{
				Addr:   fmt.Sprintf("0x%04x", addr),
				Length: len(input.Body.Data),
				Data:   input.Body.Data,
			},
		}, nil
	})
}

// chipAndMode resolves the chip address plus I2C mode pair used for
// raw register access. Both must be given together.
func chipAndMode(chip, i2cMode string) (uint32, evk.I2CMode, error) {
	if i2cMode == "" {
		return 0, 0, huma.Error400BadRequest("i2c_mode is required when chip is set")
	}
	addr, err := parseHex(chip)
	if err != nil {
		return 0, 0, huma.Error400BadRequest(err.Error())
	}
	mode, err := evk.ParseI2CMode(i2cMode)
	if err != nil {
		return 0, 0, huma.Error400BadRequest(err.Error())
	}
	return addr, mode, nil
}
