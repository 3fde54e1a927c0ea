package models

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
)

// ImageFormat selects the wire encoding of a grabbed frame.
type ImageFormat string

// Single source of truth - all definitions here
const (
	ImageFormatPGM ImageFormat = "pgm"
	ImageFormatRaw ImageFormat = "raw"
)

// Content type per image format - single source of truth
var imageFormatContentTypes = map[ImageFormat]string{
	ImageFormatPGM: "image/x-portable-graymap",
	ImageFormatRaw: "application/octet-stream",
}

// Implement SchemaProvider for dynamic enum validation
func (ImageFormat) Schema(r huma.Registry) *huma.Schema {
	// Generate enum values dynamically from our map
	enumValues := make([]any, 0, len(imageFormatContentTypes))
	for format := range imageFormatContentTypes {
		enumValues = append(enumValues, string(format))
	}

	return &huma.Schema{
		Type:        huma.TypeString,
		Enum:        enumValues,
		Description: "Frame encoding for single-frame grabs",
	}
}

// Utility methods derived from the map
func (f ImageFormat) ContentType() (string, error) {
	if ct, exists := imageFormatContentTypes[f]; exists {
		return ct, nil
	}
	return "", fmt.Errorf("unsupported image format: %s", f)
}

func (f ImageFormat) IsValid() bool {
	_, exists := imageFormatContentTypes[f]
	return exists
}

// DeviceInfo represents one enumerated camera device with snake_case fields
type DeviceInfo struct {
	DeviceID  string `json:"device_id" example:"1-3.2" doc:"Stable device identifier"`
	VendorID  string `json:"vendor_id" example:"04b4" doc:"USB vendor ID in hex"`
	ProductID string `json:"product_id" example:"00f3" doc:"USB product ID in hex"`
	Serial    string `json:"serial,omitempty" example:"EVK2203A0041" doc:"Device serial number"`
	USBType   string `json:"usb_type" example:"USB3.0" doc:"Board USB generation"`
	Speed     string `json:"speed" example:"super (5 Gbit/s)" doc:"Negotiated link speed"`
	Open      bool   `json:"open" example:"false" doc:"Whether a camera session holds the device"`
	CameraID  string `json:"camera_id,omitempty" doc:"Camera session holding the device, if open"`
}

// Device API response models
type DeviceData struct {
	Devices []DeviceInfo `json:"devices" doc:"List of attached camera devices"`
	Count   int          `json:"count" example:"2" doc:"Number of devices found"`
}

type DeviceResponse struct {
	Body DeviceData
}
