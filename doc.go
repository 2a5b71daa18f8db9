// Package photon converts still and animated images between formats.
//
// Convert probes the input with the decoders of package decoder, applies
// geometric operations to every frame as it is decoded and feeds the frames
// to the encoder of package encoder that best preserves the animation:
//
//	res, err := photon.Convert(ctx, data, photon.Request{
//		Format:  "webp",
//		Quality: 80,
//		Ops:     []frame.Op{frame.Resize{Width: 320, Height: 240}},
//	})
//
// GIF output keeps the source palettes when the input is a GIF and no
// operation alters colors. When a pixel cannot be matched against its
// palette the conversion restarts with a full-frame GIF encoder that builds
// fresh palettes.
//
// Color management and EXIF handling are left to the caller through the
// ColorTransformer and OrientationWriter interfaces.
package photon
