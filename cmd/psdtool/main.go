// Command psdtool inspects, exports, and assembles PSD documents.
package main

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"

	_ "image/jpeg"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	xdraw "golang.org/x/image/draw"
	"gopkg.in/yaml.v2"

	psd "github.com/paintforge/go-psd"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "psdtool",
		Short: "Inspect, export, and assemble PSD documents",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newInfoCommand())
	cmd.AddCommand(newExtractCommand())
	cmd.AddCommand(newBuildCommand())
	return cmd
}

func newInfoCommand() *cobra.Command {
	var fast bool

	cmd := &cobra.Command{
		Use:   "info <file.psd>",
		Short: "Print document structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			if fast {
				m, err := psd.DecodeMetadata(data)
				if err != nil {
					return err
				}
				fmt.Printf("%dx%d  version %d  %d channels  %d-bit  %s\n",
					m.Width, m.Height, m.Version, m.Channels, m.Depth, m.ColorMode)
				return nil
			}

			doc, err := psd.Decode(data)
			if err != nil {
				return err
			}
			fmt.Printf("%dx%d  %s  %d layers\n", doc.Width, doc.Height, doc.ColorMode, len(doc.Layers))
			for i, l := range doc.Layers {
				visible := "visible"
				if !l.Visible {
					visible = "hidden"
				}
				fmt.Printf("%3d  %-15s %-10s opacity %3d  %-7s  [%d,%d %dx%d]  %q\n",
					i, l.Type, l.BlendMode, l.Opacity, visible,
					l.Bounds.Left, l.Bounds.Top, l.Width(), l.Height(), l.Name)
				if l.Mask != nil {
					fmt.Printf("     mask [%d,%d %dx%d] fill %d\n",
						l.Mask.Bounds.Left, l.Mask.Bounds.Top,
						l.Mask.Bounds.Width(), l.Mask.Bounds.Height(), l.Mask.DefaultFill)
				}
				if l.Text != "" {
					fmt.Printf("     text %q\n", l.Text)
				}
				if len(l.VectorMask) > 0 {
					fmt.Printf("     vector mask, %d vertices\n", len(l.VectorMask))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fast, "fast", false, "read only the header")
	return cmd
}

func newExtractCommand() *cobra.Command {
	var (
		output string
		layer  int
		maxDim int
	)

	cmd := &cobra.Command{
		Use:   "extract <file.psd>",
		Short: "Export the composite or one layer as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := psd.Decode(data)
			if err != nil {
				return err
			}

			var img *image.NRGBA
			if layer < 0 {
				img = doc.CompositeImage()
			} else {
				if layer >= len(doc.Layers) {
					return fmt.Errorf("layer %d out of range (document has %d)", layer, len(doc.Layers))
				}
				img = doc.Layers[layer].Image()
			}
			img = scaleToFit(img, maxDim)

			logrus.Debugf("writing %dx%d png to %s", img.Rect.Dx(), img.Rect.Dy(), output)
			out, err := os.Create(output)
			if err != nil {
				return err
			}
			defer out.Close()
			return png.Encode(out, img)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.png", "output PNG path")
	cmd.Flags().IntVar(&layer, "layer", -1, "layer index to export (-1 for composite)")
	cmd.Flags().IntVar(&maxDim, "max-dim", 0, "scale down so the longest side fits (0 keeps full size)")
	return cmd
}

// scaleToFit downscales img so its longest side fits maxDim.
func scaleToFit(img *image.NRGBA, maxDim int) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// manifest describes a document to assemble: a canvas and a flat list of
// layers sourced from raster image files, bottom of the stack first.
type manifest struct {
	Width  int             `yaml:"width"`
	Height int             `yaml:"height"`
	Layers []manifestLayer `yaml:"layers"`
}

type manifestLayer struct {
	Name    string `yaml:"name"`
	Source  string `yaml:"source"`
	Left    int    `yaml:"left"`
	Top     int    `yaml:"top"`
	Opacity *uint8 `yaml:"opacity"`
	Visible *bool  `yaml:"visible"`
	Blend   string `yaml:"blend"`
}

func newBuildCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build <manifest.yaml>",
		Short: "Assemble a PSD document from a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var m manifest
			if err := yaml.Unmarshal(raw, &m); err != nil {
				return fmt.Errorf("parsing manifest: %w", err)
			}
			if m.Width <= 0 || m.Height <= 0 {
				return fmt.Errorf("manifest canvas %dx%d is invalid", m.Width, m.Height)
			}

			doc := &psd.Document{
				Width:     m.Width,
				Height:    m.Height,
				ColorMode: psd.ColorModeRGB,
			}
			composite := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))

			for _, ml := range m.Layers {
				layer, img, err := loadLayer(ml)
				if err != nil {
					return fmt.Errorf("layer %q: %w", ml.Name, err)
				}
				logrus.Debugf("layer %q: %dx%d at (%d,%d)", ml.Name, layer.Width(), layer.Height(), ml.Left, ml.Top)
				doc.Layers = append(doc.Layers, layer)
				if layer.Visible {
					offset := image.Pt(ml.Left, ml.Top)
					draw.Draw(composite, img.Bounds().Add(offset), img, img.Bounds().Min, draw.Over)
				}
			}
			doc.CompositeRGBA = composite.Pix

			data, err := psd.Encode(doc)
			if err != nil {
				return err
			}
			logrus.Infof("writing %d layers, %d bytes to %s", len(doc.Layers), len(data), output)
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.psd", "output PSD path")
	return cmd
}

// loadLayer reads a manifest layer's source image and rasterizes it into a
// straight-RGBA layer positioned on the canvas.
func loadLayer(ml manifestLayer) (*psd.Layer, *image.NRGBA, error) {
	f, err := os.Open(ml.Source)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, nil, err
	}
	b := src.Bounds()
	img := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)

	layer := &psd.Layer{
		Name: ml.Name,
		Bounds: psd.Rect{
			Top:    int32(ml.Top),
			Left:   int32(ml.Left),
			Bottom: int32(ml.Top + b.Dy()),
			Right:  int32(ml.Left + b.Dx()),
		},
		Opacity:   255,
		Visible:   true,
		BlendMode: psd.BlendNormal,
		RGBA:      img.Pix,
	}
	if ml.Opacity != nil {
		layer.Opacity = *ml.Opacity
	}
	if ml.Visible != nil {
		layer.Visible = *ml.Visible
	}
	if ml.Blend != "" {
		layer.BlendMode = psd.BlendMode(ml.Blend)
	}
	return layer, img, nil
}
