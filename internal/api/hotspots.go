package api

import (
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/roomlens/roomlens-go/internal/detector"
	"github.com/roomlens/roomlens-go/internal/errors"
	"github.com/roomlens/roomlens-go/internal/geometry"
	"github.com/roomlens/roomlens-go/internal/hotspot"
	"github.com/roomlens/roomlens-go/internal/taxonomy"
)

type hotspotsRequest struct {
	ImageID  string `json:"imageId"`
	ImageURL string `json:"imageUrl"`
	// ImageData carries base64-encoded image bytes when the caller holds
	// them already; ImageURL alone is enough otherwise.
	ImageData string `json:"imageData,omitempty"`

	Container struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"container"`
	Mirrored bool `json:"mirrored"`

	AllowedCategories []taxonomy.AllowedCategory `json:"allowedCategories,omitempty"`
}

type hotspotsResponse struct {
	Hotspots []hotspot.Hotspot `json:"hotspots"`
	Image    struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"image"`
	InferenceTimeMs int64 `json:"inferenceTimeMs"`
}

func (c *Controller) handleHotspots(ctx echo.Context) error {
	var req hotspotsRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ImageID == "" && req.ImageURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "imageId or imageUrl is required")
	}
	if req.Container.Width <= 0 || req.Container.Height <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "container dimensions must be positive")
	}

	src := detector.ImageSource{ID: req.ImageID, URL: req.ImageURL}
	if req.ImageData != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageData)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "imageData is not valid base64")
		}
		src.Data = data
	}

	result, err := c.analyzer.Analyze(ctx.Request().Context(), src)
	if err != nil {
		switch {
		case errors.Is(err, detector.ErrSuperseded):
			return echo.NewHTTPError(http.StatusConflict, "superseded by a newer request for this image")
		case errors.IsNotReady(err):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "detection model is not ready")
		default:
			c.log.Error("hotspot analysis failed",
				"image", src.Key(),
				"request_id", ctx.Response().Header().Get(echo.HeaderXRequestID),
				"error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "analysis failed")
		}
	}

	hotspots := c.resolver.Resolve(result.Detections, hotspot.Request{
		ImageSize:     result.ImageSize,
		ContainerSize: geometry.Size{Width: req.Container.Width, Height: req.Container.Height},
		Mirrored:      req.Mirrored,
		Catalog:       c.getCatalog(ctx.Request().Context()),
		Allowed:       req.AllowedCategories,
	})

	resp := hotspotsResponse{
		Hotspots:        hotspots,
		InferenceTimeMs: result.InferenceTime.Milliseconds(),
	}
	resp.Image.Width = result.ImageSize.Width
	resp.Image.Height = result.ImageSize.Height
	return ctx.JSON(http.StatusOK, resp)
}
