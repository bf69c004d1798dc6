package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"

	"github.com/photocamera/watermark"
	"github.com/photocamera/watermark/camera"
	"github.com/photocamera/watermark/meta"
	"github.com/photocamera/watermark/meta/exiftoolmeta"
	"github.com/photocamera/watermark/render"
	"github.com/photocamera/watermark/session"
	"github.com/photocamera/watermark/store"
)

var _ = fmt.Print

var (
	inPath      = flag.String("in", "", "photo to watermark")
	outPath     = flag.String("out", "", "output file, defaults to <in>-watermarked.jpg")
	albumDir    = flag.String("album", "", "save into this directory under a time based name instead of -out")
	quality     = flag.Int("quality", 95, "JPEG quality of the output")
	useExiftool = flag.Bool("exiftool", false, "read metadata with the exiftool binary instead of the built in EXIF reader")
	force       = flag.Bool("force", false, "watermark photos that do not name a camera model")
	maxWidth    = flag.Int("max-width", 0, "scale the result down to at most this many pixels wide, 0 keeps the full size")
	timeout     = flag.Duration("timeout", time.Minute, "give up after this long")
	version     = flag.Bool("version", false, "print the version and exit")
)

func default_output(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + "-watermarked.jpg"
}

// shrink scales img down to max_width keeping its aspect ratio.
func shrink(img image.Image, max_width int) image.Image {
	b := img.Bounds()
	if max_width <= 0 || b.Dx() <= max_width || b.Dy() == 0 {
		return img
	}
	scale := float64(b.Dx()) / float64(max_width)
	y := max(1, int(float64(b.Dy())/scale))
	klog.V(1).Infof("scaling %dx%d result to %dx%d", b.Dx(), b.Dy(), max_width, y)
	return transform.Resize(img, max_width, y, transform.Lanczos)
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if *version {
		fmt.Println(watermark.Version)
		return
	}
	if *inPath == "" {
		klog.Exitf("usage: %s -in photo.jpg [-out result.jpg | -album dir]", os.Args[0])
	}
	raw, err := os.ReadFile(*inPath)
	if err != nil {
		klog.Exitf("read %s: %v", *inPath, err)
	}

	opts := []session.Option{}
	if *useExiftool {
		l, err := exiftoolmeta.New()
		if err != nil {
			klog.Exitf("exiftool: %v", err)
		}
		defer func() {
			if err := l.Close(); err != nil {
				klog.Errorf("Failed to close exiftool: %v", err)
			}
		}()
		opts = append(opts,
			session.WithExtractor(camera.NewExtractor(camera.WithLoader(l))),
			session.WithDecodeOptions(watermark.MetadataLoader(meta.Loader(l))))
	}
	var album *store.Album
	if *albumDir != "" {
		if album, err = store.NewAlbum(*albumDir, store.WithEncodeOptions(watermark.JPEGQuality(*quality))); err != nil {
			klog.Exitf("album: %v", err)
		}
		opts = append(opts, session.WithAlbum(album))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	s := session.New(opts...)
	s.Select(raw)
	st, err := s.Wait(ctx)
	if err != nil {
		klog.Exitf("%s: %v", *inPath, err)
	}
	klog.Infof("%s: %s", *inPath, st.Info)

	img, err := s.Watermark(ctx)
	forced := false
	switch {
	case errors.Is(err, session.ErrNoCameraModel) && *force:
		klog.Warningf("%s does not name a camera model, watermarking anyway", *inPath)
		var ok bool
		if img, ok = render.Render(st.Image, st.Info, false); !ok {
			klog.Exitf("%s: %v", *inPath, session.ErrNotDrawn)
		}
		forced = true
	case err != nil:
		klog.Exitf("%s: %v", *inPath, err)
	}

	final := shrink(img, *maxWidth)
	if album != nil {
		var r store.Result
		if forced || final != img {
			// the session only holds the full size photos it watermarked itself
			r = <-store.SaveAsync(ctx, album, final)
		} else {
			r = <-s.SaveAsync(ctx)
		}
		if r.Err != nil {
			klog.Exitf("save: %v", r.Err)
		}
		fmt.Println("Watermarked photo saved to:", r.Path)
		return
	}
	output := *outPath
	if output == "" {
		output = default_output(*inPath)
	}
	if err = watermark.Save(final, output, watermark.JPEGQuality(*quality)); err != nil {
		klog.Exitf("save %s: %v", output, err)
	}
	fmt.Println("Watermarked photo saved to:", output)
}
