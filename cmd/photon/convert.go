package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deepteams/photon"
	"github.com/deepteams/photon/encoder"
)

func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [flags] <input>...",
		Short: "Convert images to another format",
		Long: `Convert one or more images. Each input is written next to itself, or
into --output-dir, with the extension of the target format.

Encoder options are passed as --option key=value, e.g.
  --option webp:lossless=true --option webp:method=4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd.Context(), args)
		},
	}

	f := cmd.Flags()
	f.StringP("format", "f", encoder.FormatWebP, "target format: gif, webp, avif, jpeg, png, bmp, tiff")
	f.IntP("quality", "q", 80, "quality 0-100")
	f.StringToString("option", nil, "encoder option key=value (repeatable)")
	f.String("resize", "", "scale the canvas to WxH")
	f.Int("rotate", 0, "rotate clockwise by a multiple of 90 degrees")
	f.String("crop", "", "keep the canvas region WxH+X+Y")
	f.String("border", "", "add a border WxH:#color")
	f.StringP("output-dir", "o", "", "directory for converted files (default: next to the input)")
	f.IntP("concurrency", "j", runtime.NumCPU(), "files converted in parallel")

	a.mustBindPFlag("format", f.Lookup("format"))
	a.mustBindPFlag("quality", f.Lookup("quality"))
	a.mustBindPFlag("options", f.Lookup("option"))
	a.mustBindPFlag("resize", f.Lookup("resize"))
	a.mustBindPFlag("rotate", f.Lookup("rotate"))
	a.mustBindPFlag("crop", f.Lookup("crop"))
	a.mustBindPFlag("border", f.Lookup("border"))
	a.mustBindPFlag("output_dir", f.Lookup("output-dir"))
	a.mustBindPFlag("concurrency", f.Lookup("concurrency"))
	return cmd
}

// request builds the conversion request from the merged configuration.
func (a *app) request() (photon.Request, error) {
	ops, err := buildOps(
		a.v.GetString("crop"),
		a.v.GetString("resize"),
		a.v.GetInt("rotate"),
		a.v.GetString("border"),
	)
	if err != nil {
		return photon.Request{}, err
	}
	quality := a.v.GetInt("quality")
	if quality < 0 || quality > 100 {
		return photon.Request{}, fmt.Errorf("quality %d out of range 0-100", quality)
	}
	return photon.Request{
		Format:  photon.NormalizeFormat(a.v.GetString("format")),
		Quality: quality,
		Options: a.v.GetStringMapString("options"),
		Ops:     ops,
	}, nil
}

func (a *app) runConvert(ctx context.Context, inputs []string) error {
	req, err := a.request()
	if err != nil {
		return err
	}
	outDir := a.v.GetString("output_dir")
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, a.v.GetInt("concurrency")))
	for _, in := range inputs {
		g.Go(func() error {
			return a.convertFile(ctx, in, outputPath(in, outDir, req.Format), req)
		})
	}
	return g.Wait()
}

// outputPath replaces the extension of in with the one of format.
func outputPath(in, outDir, format string) string {
	ext := "." + format
	if format == encoder.FormatJPEG {
		ext = ".jpg"
	}
	name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ext
	if outDir == "" {
		outDir = filepath.Dir(in)
	}
	return filepath.Join(outDir, name)
}

func (a *app) convertFile(ctx context.Context, in, out string, req photon.Request) error {
	if filepath.Clean(in) == filepath.Clean(out) {
		return fmt.Errorf("%s: refusing to overwrite the input", in)
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := photon.Convert(ctx, data, req, photon.WithLogger(a.log.With(zap.String("input", in))))
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return err
	}
	a.log.Info("converted",
		zap.String("input", in),
		zap.String("output", out),
		zap.Stringer("decoder", res.Decoder),
		zap.Stringer("encoder", res.Encoder),
		zap.Int("frames", res.Frames),
		zap.Int("bytes", len(res.Data)),
		zap.Duration("took", time.Since(start)))
	return nil
}
