package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepteams/photon/decoder"
	"github.com/deepteams/photon/frame"
	"github.com/deepteams/photon/mux"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <input>",
		Short: "Describe an image as the decoders see it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return a.writeInfo(cmd.OutOrStdout(), args[0], data)
		},
	}
}

// summary is what a full pass over a decoder reports.
type summary struct {
	frames        int
	width, height int
	loops         int
	duration      int
}

func summarize(dec decoder.Decoder) summary {
	var s summary
	f := frame.New()
	for dec.NextFrame(f) {
		if s.frames == 0 {
			s.loops = f.Loops
		}
		if f.CanvasWidth > 0 {
			s.width, s.height = f.CanvasWidth, f.CanvasHeight
		}
		s.frames++
		s.duration += f.Delay
	}
	return s
}

func (a *app) writeInfo(w io.Writer, name string, data []byte) error {
	dec, err := decoder.Probe(data, decoder.WithLogger(a.log))
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}
	s := summarize(dec)
	_, hasICC := dec.ICCProfile()

	caps := dec.Kind().Capabilities()
	var capNames []string
	if caps.Animation {
		capNames = append(capNames, "animation")
	}
	if caps.OptimizedFrames {
		capNames = append(capNames, "optimized frames")
	}
	if len(capNames) == 0 {
		capNames = append(capNames, "none")
	}

	fmt.Fprintf(w, "File:         %s\n", name)
	fmt.Fprintf(w, "Decoder:      %s\n", dec.Kind())
	fmt.Fprintf(w, "Capabilities: %s\n", strings.Join(capNames, ", "))
	fmt.Fprintf(w, "Canvas:       %d x %d\n", s.width, s.height)
	fmt.Fprintf(w, "Frames:       %d\n", s.frames)
	if caps.Animation {
		loop := "infinite"
		if s.loops > 0 {
			loop = fmt.Sprintf("%d", s.loops)
		}
		fmt.Fprintf(w, "Loop count:   %s\n", loop)
		fmt.Fprintf(w, "Duration:     %d ms\n", s.duration)
	}
	fmt.Fprintf(w, "ICC profile:  %v\n", hasICC)

	if bytes.HasPrefix(data, []byte("RIFF")) {
		dmx, err := mux.NewDemuxer(data)
		if err != nil {
			return fmt.Errorf("info: %w", err)
		}
		feat := dmx.Features()
		fmt.Fprintf(w, "Container:    %s\n", feat.Format)
		fmt.Fprintf(w, "Alpha:        %v\n", feat.HasAlpha)
		fmt.Fprintf(w, "EXIF:         %v\n", feat.HasEXIF)
		fmt.Fprintf(w, "XMP:          %v\n", feat.HasXMP)
	}
	fmt.Fprintf(w, "Size:         %d bytes\n", len(data))
	return nil
}
