package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deepteams/photon/frame"
)

// parseSize parses "WxH".
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return w, h, nil
}

func parseResize(s string) (frame.Resize, error) {
	w, h, err := parseSize(s)
	if err != nil {
		return frame.Resize{}, err
	}
	if w <= 0 || h <= 0 {
		return frame.Resize{}, fmt.Errorf("invalid resize %q: dimensions must be positive", s)
	}
	return frame.Resize{Width: w, Height: h}, nil
}

// parseCrop parses "WxH+X+Y".
func parseCrop(s string) (frame.Crop, error) {
	parts := strings.Split(s, "+")
	if len(parts) != 3 {
		return frame.Crop{}, fmt.Errorf("invalid crop %q, want WxH+X+Y", s)
	}
	w, h, err := parseSize(parts[0])
	if err != nil {
		return frame.Crop{}, err
	}
	x, err := strconv.Atoi(parts[1])
	if err != nil {
		return frame.Crop{}, fmt.Errorf("invalid crop %q: %w", s, err)
	}
	y, err := strconv.Atoi(parts[2])
	if err != nil {
		return frame.Crop{}, fmt.Errorf("invalid crop %q: %w", s, err)
	}
	return frame.Crop{X0: x, Y0: y, X1: x + w, Y1: y + h}, nil
}

// parseBorder parses "WxH:#color". The color defaults to opaque black.
func parseBorder(s string) (frame.Border, error) {
	size, hex, hasColor := strings.Cut(s, ":")
	w, h, err := parseSize(size)
	if err != nil {
		return frame.Border{}, err
	}
	b := frame.Border{Width: w, Height: h}
	b.Color.A = 0xff
	if hasColor {
		if b.Color, err = frame.ParseHexColor(hex); err != nil {
			return frame.Border{}, err
		}
	}
	return b, nil
}

// buildOps turns the geometry settings into frame operations, applied as
// crop, resize, rotate, border.
func buildOps(crop, resize string, rotate int, border string) ([]frame.Op, error) {
	var ops []frame.Op
	if crop != "" {
		op, err := parseCrop(crop)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if resize != "" {
		op, err := parseResize(resize)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if rotate%360 != 0 {
		if rotate%90 != 0 {
			return nil, fmt.Errorf("%w: %d", frame.ErrUnsupportedRotation, rotate)
		}
		ops = append(ops, frame.Rotate{Degrees: rotate})
	}
	if border != "" {
		op, err := parseBorder(border)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}
