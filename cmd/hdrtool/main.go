// Command hdrtool converts between HDR image formats, tone maps for
// display, and works with JPEG gain map containers.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	hdrforge "github.com/bhouston/hdrforge"
	"github.com/bhouston/hdrforge/jpegr"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "convert":
		err = runConvert(os.Args[2:])
	case "tonemap":
		err = runTonemap(os.Args[2:])
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "detect":
		err = runDetect(os.Args[2:])
	case "split":
		err = runSplit(os.Args[2:])
	case "join":
		err = runJoin(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: hdrtool <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  convert -in input.{exr,hdr,tif} -out output.{exr,hdr} [-compression zip] [-colorspace rec2020]")
	fmt.Fprintln(os.Stderr, "  tonemap -in input.{exr,hdr} -out output.png [-tone aces] [-exposure 1.0]")
	fmt.Fprintln(os.Stderr, "  encode  -in input.{exr,hdr} -out output.jpg [-q 90] [-format ultrahdr] [-tone aces] [-scale 1]")
	fmt.Fprintln(os.Stderr, "  decode  -in input.jpg -out output.{exr,hdr}")
	fmt.Fprintln(os.Stderr, "  detect  -in input.jpg")
	fmt.Fprintln(os.Stderr, "  split   -in input.jpg -primary-out p.jpg -gainmap-out g.jpg [-meta-out meta.json]")
	fmt.Fprintln(os.Stderr, "  join    -meta meta.json -primary p.jpg -gainmap g.jpg -out output.jpg")
}

func readImage(path string) (*hdrforge.FloatImage, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exr":
		return hdrforge.ReadEXR(data)
	case ".hdr", ".pic", ".rgbe":
		return hdrforge.ReadHDR(data, nil)
	case ".tif", ".tiff":
		return hdrforge.DecodeTIFF(data)
	case ".jpg", ".jpeg":
		return hdrforge.ReadJPEGGainMap(data)
	default:
		return nil, fmt.Errorf("unsupported input format %q", filepath.Ext(path))
	}
}

func writeImage(path string, img *hdrforge.FloatImage, compression string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exr":
		data, err = hdrforge.WriteEXR(img, &hdrforge.EXRWriteOptions{Compression: compressionCode(compression)})
	case ".hdr", ".pic", ".rgbe":
		data, err = hdrforge.WriteHDR(img)
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(path), data, 0o644)
}

func compressionCode(name string) int {
	switch strings.ToLower(name) {
	case "", "zip":
		return hdrforge.EXRCompressionZIP
	case "none":
		return hdrforge.EXRCompressionNone
	case "rle":
		return hdrforge.EXRCompressionRLE
	case "zips":
		return hdrforge.EXRCompressionZIPS
	case "piz":
		return hdrforge.EXRCompressionPIZ
	case "pxr24":
		return hdrforge.EXRCompressionPXR24
	default:
		return -1
	}
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	inPath := fs.String("in", "", "input image")
	outPath := fs.String("out", "", "output image")
	compression := fs.String("compression", "zip", "EXR compression: none, rle, zips, zip, piz, pxr24")
	colorspace := fs.String("colorspace", "", "convert to: rec709, p3, rec2020")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("missing required arguments")
	}
	img, err := readImage(*inPath)
	if err != nil {
		return err
	}
	if *colorspace != "" {
		target, err := spaceNamed(*colorspace)
		if err != nil {
			return err
		}
		if err := hdrforge.ConvertLinearColorSpace(img, target); err != nil {
			return err
		}
	}
	return writeImage(*outPath, img, *compression)
}

func spaceNamed(name string) (hdrforge.ColorSpace, error) {
	switch strings.ToLower(name) {
	case "rec709", "709", "srgb":
		return hdrforge.LinearRec709, nil
	case "p3", "display-p3":
		return hdrforge.LinearP3, nil
	case "rec2020", "2020":
		return hdrforge.LinearRec2020, nil
	default:
		return hdrforge.LinearRec709, fmt.Errorf("unknown color space %q", name)
	}
}

func runTonemap(args []string) error {
	fs := flag.NewFlagSet("tonemap", flag.ContinueOnError)
	inPath := fs.String("in", "", "input HDR image")
	outPath := fs.String("out", "", "output PNG")
	tone := fs.String("tone", "aces", "tone mapper: aces, reinhard, neutral, agx")
	exposure := fs.Float64("exposure", 1, "exposure multiplier")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("missing required arguments")
	}
	img, err := readImage(*inPath)
	if err != nil {
		return err
	}
	rgb, err := hdrforge.ApplyToneMapping(img, &hdrforge.ToneMapOptions{Tone: *tone, Exposure: *exposure})
	if err != nil {
		return err
	}
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i := 0; i < img.Width*img.Height; i++ {
		out.Pix[4*i] = rgb[3*i]
		out.Pix[4*i+1] = rgb[3*i+1]
		out.Pix[4*i+2] = rgb[3*i+2]
		out.Pix[4*i+3] = 0xFF
	}
	f, err := os.Create(filepath.Clean(*outPath))
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out)
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	inPath := fs.String("in", "", "input HDR image")
	outPath := fs.String("out", "", "output JPEG")
	quality := fs.Int("q", 90, "JPEG quality")
	format := fs.String("format", "ultrahdr", "container layout: ultrahdr, adobe-gainmap")
	tone := fs.String("tone", "aces", "tone mapper for the SDR base")
	scale := fs.Int("scale", 1, "gain map downscale factor")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("missing required arguments")
	}
	img, err := readImage(*inPath)
	if err != nil {
		return err
	}
	res, err := hdrforge.EncodeGainMap(img, &hdrforge.GainMapEncodeOptions{ToneMapping: *tone})
	if err != nil {
		return err
	}
	if *scale > 1 {
		res, err = hdrforge.ResizeEncoding(res, img.Width / *scale, img.Height / *scale)
		if err != nil {
			return err
		}
	}
	data, err := hdrforge.WriteJPEGGainMap(res, &hdrforge.JPEGGainMapWriteOptions{Quality: *quality, Format: *format})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(*outPath), data, 0o644)
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	inPath := fs.String("in", "", "input gain map JPEG")
	outPath := fs.String("out", "", "output HDR image")
	compression := fs.String("compression", "zip", "EXR compression")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("missing required arguments")
	}
	data, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	img, err := hdrforge.ReadJPEGGainMap(data)
	if err != nil {
		return err
	}
	return writeImage(*outPath, img, *compression)
}

func runDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("missing required arguments")
	}
	f, err := os.Open(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	defer f.Close()
	ok, err := jpegr.IsGainMapContainer(f)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(os.Stdout, "gainmap")
	} else {
		fmt.Fprintln(os.Stdout, "plain")
	}
	return nil
}

func runSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	inPath := fs.String("in", "", "input gain map JPEG")
	primaryOut := fs.String("primary-out", "", "primary output JPEG")
	gainmapOut := fs.String("gainmap-out", "", "gain map output JPEG")
	metaOut := fs.String("meta-out", "", "metadata bundle JSON output")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *primaryOut == "" || *gainmapOut == "" {
		return errors.New("missing required arguments")
	}
	data, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	file, bundle, err := jpegr.Split(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Clean(*primaryOut), file.PrimaryJPEG, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Clean(*gainmapOut), file.GainMapJPEG, 0o644); err != nil {
		return err
	}
	if *metaOut != "" {
		payload, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Clean(*metaOut), payload, 0o644)
	}
	return nil
}

func runJoin(args []string) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	metaPath := fs.String("meta", "", "metadata bundle JSON")
	primaryPath := fs.String("primary", "", "primary JPEG")
	gainmapPath := fs.String("gainmap", "", "gain map JPEG")
	outPath := fs.String("out", "", "output JPEG")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *metaPath == "" || *primaryPath == "" || *gainmapPath == "" || *outPath == "" {
		return errors.New("missing required arguments")
	}
	primary, err := os.ReadFile(filepath.Clean(*primaryPath))
	if err != nil {
		return err
	}
	gm, err := os.ReadFile(filepath.Clean(*gainmapPath))
	if err != nil {
		return err
	}
	metaData, err := os.ReadFile(filepath.Clean(*metaPath))
	if err != nil {
		return err
	}
	var bundle jpegr.MetadataBundle
	if err := json.Unmarshal(metaData, &bundle); err != nil {
		return err
	}
	out, err := jpegr.Join(primary, gm, &bundle)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(*outPath), out, 0o644)
}
