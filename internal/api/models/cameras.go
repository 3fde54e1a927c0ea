package models

import "time"

// CameraInfo represents one camera session with snake_case fields
type CameraInfo struct {
	CameraID   string    `json:"camera_id" example:"7b1d6f2e-9c41-4a5a-8f0d-3e2b1c9d7a55" doc:"Unique camera session identifier"`
	DeviceID   string    `json:"device_id" example:"1-3.2" doc:"Stable device identifier"`
	State      string    `json:"state" example:"started" doc:"Lifecycle state (closed, opened, initialized, started, stopped)"`
	ConfigFile string    `json:"config_file,omitempty" example:"ov9281.cfg" doc:"Camera description file the session was opened with"`
	Profile    string    `json:"profile,omitempty" example:"bench-mono" doc:"Profile that opened the camera, for auto-opened sessions"`
	Mode       *ModeInfo `json:"mode,omitempty" doc:"Active sensor mode"`
	USBType    string    `json:"usb_type,omitempty" example:"USB3.0" doc:"Board USB generation"`
	StartTime  time.Time `json:"start_time,omitempty" doc:"When capture was last started"`
}

type CameraListData struct {
	Cameras []CameraInfo `json:"cameras" doc:"List of camera sessions"`
	Count   int          `json:"count" example:"1" doc:"Number of camera sessions"`
}

type CameraListResponse struct {
	Body CameraListData
}

type CameraResponse struct {
	Body CameraInfo
}

// OpenCameraRequestData asks the daemon to open a device as a new camera session.
type OpenCameraRequestData struct {
	DeviceID    string `json:"device_id" minLength:"1" example:"1-3.2" doc:"Stable device identifier from the device list"`
	ConfigFile  string `json:"config_file,omitempty" example:"ov9281.cfg" doc:"Camera description file, resolved against the daemon config directory"`
	BufferCount int    `json:"buffer_count,omitempty" minimum:"0" maximum:"64" example:"4" doc:"Frame buffers to allocate (0 for the default)"`
	Init        bool   `json:"init,omitempty" example:"true" doc:"Initialize the sensor immediately after opening"`
}

type OpenCameraRequest struct {
	Body OpenCameraRequestData
}

// CameraActionData is the result of a lifecycle verb (init, start, stop).
type CameraActionData struct {
	CameraID string `json:"camera_id" example:"7b1d6f2e-9c41-4a5a-8f0d-3e2b1c9d7a55" doc:"Camera session identifier"`
	State    string `json:"state" example:"started" doc:"Lifecycle state after the action"`
	Message  string `json:"message" example:"capture started" doc:"Status message"`
}

type CameraActionResponse struct {
	Body CameraActionData
}

// Capture statistics models
type StatsData struct {
	CameraID    string        `json:"camera_id" example:"7b1d6f2e-9c41-4a5a-8f0d-3e2b1c9d7a55" doc:"Camera session identifier"`
	State       string        `json:"state" example:"started" doc:"Lifecycle state"`
	Frames      uint64        `json:"frames" example:"1843" doc:"Frames delivered since capture start"`
	Bytes       uint64        `json:"bytes" example:"943718400" doc:"Payload bytes delivered since capture start"`
	Drops       uint64        `json:"drops" example:"3" doc:"Frames recycled because no free buffer was available"`
	Faults      uint64        `json:"faults" example:"0" doc:"Transfer errors, timeouts and length mismatches"`
	Outstanding int           `json:"outstanding" example:"1" doc:"Buffers currently held by callers"`
	Queued      int           `json:"queued" example:"2" doc:"Output queue depth"`
	FPS         int           `json:"fps" example:"60" doc:"Frames per second over the last window"`
	Bandwidth   int           `json:"bandwidth" example:"63700992" doc:"Bytes per second over the last window"`
	Uptime      time.Duration `json:"uptime,omitempty" example:"3600000000000" doc:"Capture uptime in nanoseconds"`
	StartTime   time.Time     `json:"start_time,omitempty" doc:"When capture was started"`
}

type StatsResponse struct {
	Body StatsData
}

// Sensor mode models
type ModeInfo struct {
	ModeID   uint32 `json:"mode_id" example:"0" doc:"Mode identifier from the description file"`
	Name     string `json:"name,omitempty" example:"OV9281_1280x800" doc:"Configuration name"`
	Width    uint32 `json:"width" example:"1280" doc:"Frame width in pixels"`
	Height   uint32 `json:"height" example:"800" doc:"Frame height in pixels"`
	BitWidth uint8  `json:"bit_width" example:"10" doc:"Pixel bit depth"`
	Format   string `json:"format" example:"raw/bg" doc:"Pixel format"`
	Active   bool   `json:"active" example:"true" doc:"Whether this mode is currently selected"`
}

type ModesData struct {
	Modes []ModeInfo `json:"modes" doc:"Modes carried by the camera description file"`
	Count int        `json:"count" example:"3" doc:"Number of modes"`
}

type ModesResponse struct {
	Body ModesData
}

// Control models
type ControlInfo struct {
	Name    string `json:"name" example:"Exposure" doc:"Display label"`
	Func    string `json:"func" example:"setExposure" doc:"Stable control identifier"`
	Min     int64  `json:"min" example:"0" doc:"Minimum accepted value"`
	Max     int64  `json:"max" example:"65535" doc:"Maximum accepted value"`
	Step    int64  `json:"step" example:"1" doc:"Step size of the value grid"`
	Default int64  `json:"default" example:"1000" doc:"Default value"`
	Reg     string `json:"reg" example:"0x3500" doc:"Sensor register the control writes to"`
}

type ControlsData struct {
	Controls []ControlInfo `json:"controls" doc:"Controls registered on the camera"`
	Count    int           `json:"count" example:"4" doc:"Number of controls"`
}

type ControlsResponse struct {
	Body ControlsData
}

type SetControlRequestData struct {
	Value int64 `json:"value" example:"1200" doc:"New control value"`
}

type SetControlRequest struct {
	Body SetControlRequestData
}

type SetControlData struct {
	Func  string `json:"func" example:"setExposure" doc:"Control identifier"`
	Value int64  `json:"value" example:"1200" doc:"Value written"`
}

type SetControlResponse struct {
	Body SetControlData
}

// Register access models. Addresses and values travel as hex strings
// ("0x3500") but plain decimal is accepted on input.
type RegisterData struct {
	Reg   string `json:"reg" example:"0x3500" doc:"Register address"`
	Value string `json:"value" example:"0x00ff" doc:"Register value"`
	Chip  string `json:"chip,omitempty" example:"0x6c" doc:"I2C chip address, empty for the configured sensor"`
}

type RegisterResponse struct {
	Body RegisterData
}

type WriteRegisterRequestData struct {
	Value   string `json:"value" pattern:"^(0[xX])?[0-9a-fA-F]+$" example:"0x00ff" doc:"Value to write"`
	Chip    string `json:"chip,omitempty" pattern:"^(0[xX])?[0-9a-fA-F]+$" example:"0x6c" doc:"I2C chip address, empty for the configured sensor"`
	I2CMode string `json:"i2c_mode,omitempty" enum:"8_8,8_16,16_8,16_16,16_32" example:"16_8" doc:"Address/data width mode, required when chip is set"`
}

type WriteRegisterRequest struct {
	Body WriteRegisterRequestData
}

// Userdata models. Data is base64 on the wire.
type UserdataData struct {
	Addr   string `json:"addr" example:"0x0000" doc:"Offset into the userdata window"`
	Length int    `json:"length" example:"64" doc:"Number of bytes"`
	Data   []byte `json:"data" doc:"Userdata bytes, base64-encoded"`
}

type UserdataResponse struct {
	Body UserdataData
}

type WriteUserdataRequestData struct {
	Addr string `json:"addr,omitempty" pattern:"^(0[xX])?[0-9a-fA-F]+$" example:"0x0000" doc:"Offset into the userdata window"`
	Data []byte `json:"data" doc:"Bytes to write, base64-encoded"`
}

type WriteUserdataRequest struct {
	Body WriteUserdataRequestData
}

// FrameResponse carries one grabbed frame as a raw body.
type FrameResponse struct {
	ContentType string `header:"Content-Type"`
	FrameSeq    string `header:"X-Frame-Seq"`
	Body        []byte
}
