package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camnode/internal/api/models"
	"github.com/smazurov/camnode/pkg/evk"
)

// defaultGrabTimeout caps how long a frame grab waits when the server
// options do not set one. Slow sensors run below 10 fps, so a couple
// of frame intervals need headroom.
const defaultGrabTimeout = 2 * time.Second

// registerFrameRoutes registers the single-frame grab endpoint.
func (s *Server) registerFrameRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "grab-frame",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{camera_id}/frame",
		Summary:     "Grab Frame",
		Description: "Grab the most recent frame from a started camera as raw payload or a PGM image",
		Tags:        []string{"cameras"},
		Errors:      []int{400, 401, 404, 409, 500, 504},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		CameraIDInput
		Format models.ImageFormat `query:"format" example:"pgm" doc:"Frame encoding"`
	}) (*models.FrameResponse, error) {
		format := input.Format
		if format == "" {
			format = models.ImageFormatPGM
		}
		if !format.IsValid() {
			return nil, huma.Error400BadRequest(fmt.Sprintf("unsupported format: %s", format))
		}

		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}

		timeout := s.options.GrabTimeout
		if timeout <= 0 {
			timeout = defaultGrabTimeout
		}
		grab, err := session.Grab(ctx, timeout)
		if err != nil {
			return nil, s.mapCameraError(err)
		}

		contentType, err := format.ContentType()
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		body := grab.Data
		if format == models.ImageFormatPGM {
			body, err = encodePGM(grab.Format, grab.Data)
			if err != nil {
				return nil, huma.Error500InternalServerError("frame encoding failed", err)
			}
		}

		return &models.FrameResponse{
			ContentType: contentType,
			FrameSeq:    strconv.FormatUint(uint64(grab.Seq), 10),
			Body:        body,
		}, nil
	})
}

// encodePGM wraps a raw grayscale payload in a binary PGM (P5) header.
// Sensors deliver multi-byte pixels little-endian; PGM wants the most
// significant byte first, so 10/12/16-bit data is byte-swapped.
func encodePGM(format evk.FrameFormat, data []byte) ([]byte, error) {
	if format.Width == 0 || format.Height == 0 {
		return nil, fmt.Errorf("frame format has no geometry")
	}
	expected := format.Size()
	if len(data) < expected {
		return nil, fmt.Errorf("frame payload %d bytes, format needs %d", len(data), expected)
	}

	maxval := (1 << format.BitWidth) - 1
	if maxval > 65535 {
		maxval = 65535
	}
	header := fmt.Sprintf("P5\n%d %d\n%d\n", format.Width, format.Height, maxval)

	out := make([]byte, 0, len(header)+expected)
	out = append(out, header...)

	if format.BytesPerPixel() == 1 {
		return append(out, data[:expected]...), nil
	}
	for i := 0; i+1 < expected; i += 2 {
		out = append(out, data[i+1], data[i])
	}
	return out, nil
}
