package hdrforge_test

import (
	"fmt"

	hdrforge "github.com/bhouston/hdrforge"
)

func ExampleWriteEXR() {
	img := hdrforge.NewFloatImage(2, 1, hdrforge.LinearRec709)
	img.Set(0, 0, 1.0, 0.5, 0.25, 1.0)
	img.Set(1, 0, 4.0, 2.0, 1.0, 1.0)

	data, err := hdrforge.WriteEXR(img, &hdrforge.EXRWriteOptions{Compression: hdrforge.EXRCompressionZIP})
	if err != nil {
		panic(err)
	}

	back, err := hdrforge.ReadEXR(data)
	if err != nil {
		panic(err)
	}
	r, g, b, _ := back.At(0, 0)
	fmt.Printf("%.2f %.2f %.2f\n", r, g, b)
	// Output: 1.00 0.50 0.25
}

func ExampleEncodeGainMap() {
	img := hdrforge.NewFloatImage(4, 4, hdrforge.LinearRec709)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, float32(x), float32(y), 1, 1)
		}
	}

	res, err := hdrforge.EncodeGainMap(img, &hdrforge.GainMapEncodeOptions{ToneMapping: "reinhard"})
	if err != nil {
		panic(err)
	}
	fmt.Println(len(res.SDR), len(res.GainMap))
	// Output: 64 64
}

func ExampleApplyToneMapping() {
	img := hdrforge.NewFloatImage(1, 1, hdrforge.LinearRec709)
	img.Set(0, 0, 0, 0, 0, 1)

	rgb, err := hdrforge.ApplyToneMapping(img, &hdrforge.ToneMapOptions{Tone: "aces"})
	if err != nil {
		panic(err)
	}
	fmt.Println(rgb[0], rgb[1], rgb[2])
	// Output: 0 0 0
}
