package jpegr

import (
	"bytes"
	"math"
	"testing"

	"github.com/bhouston/hdrforge/gainmap"
	"github.com/google/go-cmp/cmp"
)

func testMetadata() *gainmap.Metadata {
	return &gainmap.Metadata{
		Gamma:          [3]float64{1, 1, 1},
		OffsetSDR:      [3]float64{1.0 / 64, 1.0 / 64, 1.0 / 64},
		OffsetHDR:      [3]float64{1.0 / 64, 1.0 / 64, 1.0 / 64},
		GainMapMin:     [3]float64{0, 0, 0},
		GainMapMax:     [3]float64{2, 2, 2},
		HDRCapacityMin: 0,
		HDRCapacityMax: 2,
	}
}

func testResult(w, h int) *gainmap.Result {
	res := &gainmap.Result{
		Width:    w,
		Height:   h,
		SDR:      make([]uint8, 4*w*h),
		GainMap:  make([]uint8, 4*w*h),
		Metadata: *testMetadata(),
	}
	for i := 0; i < w*h; i++ {
		res.SDR[4*i] = uint8(40 * (i % 6))
		res.SDR[4*i+1] = uint8(255 - 7*(i%32))
		res.SDR[4*i+2] = 128
		res.SDR[4*i+3] = 255
		res.GainMap[4*i] = uint8(17 * (i % 15))
		res.GainMap[4*i+1] = res.GainMap[4*i]
		res.GainMap[4*i+2] = res.GainMap[4*i]
		res.GainMap[4*i+3] = 255
	}
	return res
}

func metadataClose(a, b *gainmap.Metadata, tol float64) bool {
	near := func(x, y float64) bool { return math.Abs(x-y) <= tol }
	for c := 0; c < 3; c++ {
		if !near(a.Gamma[c], b.Gamma[c]) || !near(a.OffsetSDR[c], b.OffsetSDR[c]) ||
			!near(a.OffsetHDR[c], b.OffsetHDR[c]) || !near(a.GainMapMin[c], b.GainMapMin[c]) ||
			!near(a.GainMapMax[c], b.GainMapMax[c]) {
			return false
		}
	}
	return near(a.HDRCapacityMin, b.HDRCapacityMin) && near(a.HDRCapacityMax, b.HDRCapacityMax)
}

func TestUltraHDRAssembly(t *testing.T) {
	res := testResult(4, 4)
	data, err := Write(res, &WriteOptions{Quality: 95})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Fatalf("output does not start with SOI: % X", data[:4])
	}

	app1, _, err := appSegments(data)
	if err != nil {
		t.Fatalf("appSegments: %v", err)
	}
	xmp := findXMP(app1)
	if xmp == nil {
		t.Fatal("no XMP APP1 segment in header")
	}
	if !bytes.Contains(xmp, []byte(containerNamespaceURI)) {
		t.Fatal("container XMP missing Google container namespace")
	}

	f, err := Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Format != FormatUltraHDR {
		t.Fatalf("format: got %v want ultrahdr", f.Format)
	}
	w, h, err := Dimensions(f.PrimaryJPEG)
	if err != nil || w != 4 || h != 4 {
		t.Fatalf("primary dimensions: %dx%d, err %v", w, h, err)
	}
	if !metadataClose(f.Metadata, &res.Metadata, 1e-6) {
		t.Fatalf("metadata mismatch:\ngot  %+v\nwant %+v", f.Metadata, res.Metadata)
	}

	decoded, err := f.DecodeResult()
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if decoded.Width != 4 || decoded.Height != 4 {
		t.Fatalf("decoded dimensions: %dx%d", decoded.Width, decoded.Height)
	}
}

func TestAdobeAssembly(t *testing.T) {
	res := testResult(4, 4)
	data, err := Write(res, &WriteOptions{Format: FormatAdobe})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Format != FormatAdobe {
		t.Fatalf("format: got %v want adobe-gainmap", f.Format)
	}
	if !metadataClose(f.Metadata, &res.Metadata, 1e-6) {
		t.Fatalf("metadata mismatch: %+v", f.Metadata)
	}
	// Adobe layout leaves the primary untouched: no MPF, no container XMP.
	_, app2, err := appSegments(data)
	if err != nil {
		t.Fatalf("appSegments: %v", err)
	}
	for _, seg := range app2 {
		if bytes.HasPrefix(seg, mpfSig) {
			t.Fatal("adobe layout must not carry MPF")
		}
	}
}

func TestDuplicateEXIFRejected(t *testing.T) {
	res := testResult(4, 4)
	exif := append(append([]byte(nil), exifSig...), 1, 2, 3, 4)
	data, err := Write(res, &WriteOptions{EXIF: exif})
	if err != nil {
		t.Fatalf("Write with EXIF: %v", err)
	}
	f, err := Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	// The primary now carries EXIF; supplying it again must fail.
	gm, err := encodeBaselineJPEG(res.GainMap, res.Width, res.Height, 90)
	if err != nil {
		t.Fatalf("encode gain map: %v", err)
	}
	if _, err := Assemble(f.PrimaryJPEG, gm, &res.Metadata, &WriteOptions{EXIF: exif}); err != ErrDuplicateEXIF {
		t.Fatalf("got %v want ErrDuplicateEXIF", err)
	}
}

func TestXMPScalarAndSeq(t *testing.T) {
	uniformMeta := testMetadata()
	payload := buildGainMapXMP(uniformMeta)
	if bytes.Contains(payload, []byte("<rdf:Seq>")) {
		t.Fatal("uniform metadata should serialize as scalar attributes")
	}
	parsed, err := parseGainMapXMP(payload)
	if err != nil {
		t.Fatalf("parseGainMapXMP: %v", err)
	}
	if !metadataClose(parsed, uniformMeta, 1e-9) {
		t.Fatalf("scalar round trip mismatch: %+v", parsed)
	}

	perChannel := testMetadata()
	perChannel.GainMapMax = [3]float64{2, 2.5, 3}
	perChannel.Gamma = [3]float64{1, 1.2, 1.4}
	payload = buildGainMapXMP(perChannel)
	if !bytes.Contains(payload, []byte("<rdf:Seq>")) {
		t.Fatal("per-channel metadata should serialize as rdf:Seq")
	}
	parsed, err = parseGainMapXMP(payload)
	if err != nil {
		t.Fatalf("parseGainMapXMP: %v", err)
	}
	if !metadataClose(parsed, perChannel, 1e-6) {
		t.Fatalf("seq round trip mismatch:\ngot  %+v\nwant %+v", parsed, perChannel)
	}
}

func TestISORoundTrip(t *testing.T) {
	meta := testMetadata()
	meta.GainMapMin = [3]float64{-0.5, -0.25, 0}
	meta.GainMapMax = [3]float64{2, 2.5, 3.75}

	body, err := encodeISO(meta)
	if err != nil {
		t.Fatalf("encodeISO: %v", err)
	}
	parsed, err := decodeISO(body)
	if err != nil {
		t.Fatalf("decodeISO: %v", err)
	}
	if !metadataClose(parsed, meta, 1e-6) {
		t.Fatalf("iso round trip mismatch:\ngot  %+v\nwant %+v", parsed, meta)
	}
}

func TestMPFRoundTrip(t *testing.T) {
	payload := buildMPF(1000, 500, 900)
	idx, err := parseMPF(payload)
	if err != nil {
		t.Fatalf("parseMPF: %v", err)
	}
	want := &mpfIndex{primarySize: 1000, secondarySize: 500, secondaryOffset: 900}
	if diff := cmp.Diff(want, idx, cmp.AllowUnexported(mpfIndex{})); diff != "" {
		t.Fatalf("mpf mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitJoin(t *testing.T) {
	res := testResult(8, 8)
	data, err := Write(res, nil)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, bundle, err := Split(data)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if err := bundle.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	rejoined, err := Join(f.PrimaryJPEG, f.GainMapJPEG, bundle)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	f2, err := Read(rejoined)
	if err != nil {
		t.Fatalf("Read rejoined: %v", err)
	}
	if f2.Format != FormatUltraHDR {
		t.Fatalf("rejoined format: got %v", f2.Format)
	}
	if !metadataClose(f2.Metadata, f.Metadata, 1e-6) {
		t.Fatalf("metadata changed through split/join")
	}
}

func TestDetect(t *testing.T) {
	res := testResult(4, 4)
	data, err := Write(res, nil)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err := IsGainMapContainer(bytes.NewReader(data))
	if err != nil || !ok {
		t.Fatalf("container not detected: ok=%v err=%v", ok, err)
	}

	plain, err := encodeBaselineJPEG(res.SDR, 4, 4, 90)
	if err != nil {
		t.Fatalf("encode plain: %v", err)
	}
	ok, err = IsGainMapContainer(bytes.NewReader(plain))
	if err != nil || ok {
		t.Fatalf("plain JPEG misdetected: ok=%v err=%v", ok, err)
	}
}

func TestRebasePreservesHDR(t *testing.T) {
	res := testResult(8, 8)
	data, err := Write(res, &WriteOptions{Quality: 100})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	rebased, err := Rebase(data, f.PrimaryJPEG, &WriteOptions{Quality: 100})
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if _, err := Read(rebased); err != nil {
		t.Fatalf("Read rebased: %v", err)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read([]byte{1, 2, 3}); err != ErrNotJPEG {
		t.Fatalf("got %v want ErrNotJPEG", err)
	}
}
