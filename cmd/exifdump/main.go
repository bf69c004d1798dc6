package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/photocamera/watermark"
	"github.com/photocamera/watermark/camera"
	"github.com/photocamera/watermark/meta"
	"github.com/photocamera/watermark/meta/exiftoolmeta"
	"github.com/photocamera/watermark/types"
)

var _ = fmt.Print

var useExiftool = flag.Bool("exiftool", false, "read metadata with the exiftool binary instead of the built in EXIF reader")

type report struct {
	File        string          `json:"file"`
	Format      types.Format    `json:"format"`
	Width       uint32          `json:"width"`
	Height      uint32          `json:"height"`
	Frames      int             `json:"frames"`
	Orientation int             `json:"orientation,omitempty"`
	Camera      camera.Labels   `json:"camera"`
	Properties  meta.Properties `json:"properties,omitempty"`
	Error       string          `json:"error,omitempty"`
}

func dump(path string, et *exiftoolmeta.Loader) (r report, err error) {
	r.File = path
	img, err := watermark.OpenAll(path)
	if err != nil {
		return r, err
	}
	md := img.Metadata
	r.Format, r.Width, r.Height = md.Format, md.PixelWidth, md.PixelHeight
	r.Frames, r.Orientation = img.Frames, img.Orientation
	if et != nil {
		p, err := et.LoadFile(path)
		if err != nil {
			r.Error = err.Error()
		} else {
			md.SetProperties(p)
		}
	}
	if p, err := md.Properties(); err == nil {
		r.Properties = p
	} else if r.Error == "" {
		r.Error = err.Error()
	}
	r.Camera = camera.FromData(md).Labels()
	return r, nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()
	if flag.NArg() == 0 {
		klog.Exitf("usage: %s [-exiftool] photo [photo ...]", os.Args[0])
	}
	var et *exiftoolmeta.Loader
	if *useExiftool {
		var err error
		if et, err = exiftoolmeta.New(); err != nil {
			klog.Exitf("exiftool: %v", err)
		}
		defer et.Close()
	}
	reports := make([]report, 0, flag.NArg())
	failed := 0
	for _, path := range flag.Args() {
		r, err := dump(path, et)
		if err != nil {
			klog.Errorf("%s: %v", path, err)
			failed++
			continue
		}
		reports = append(reports, r)
	}
	b, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		klog.Exitf("encode: %v", err)
	}
	os.Stdout.Write(append(b, '\n'))
	if failed > 0 {
		klog.Flush()
		os.Exit(1)
	}
}
