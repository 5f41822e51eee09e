// Package camera estimates joint positions from a live camera using the
// OpenPose COCO body model.
package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/hiral-chawra/Protofito/pkg/pose"
	"github.com/hiral-chawra/Protofito/pkg/source"
)

// COCO body part indices in the OpenPose output. Only the right side is tracked.
var cocoParts = map[pose.JointName]int{
	pose.Shoulder: 2,
	pose.Elbow:    3,
	pose.Wrist:    4,
	pose.Hip:      8,
	pose.Knee:     9,
	pose.Ankle:    10,
}

// OpenPose reads camera frames and locates each joint at the peak of its
// heat map. Joints below the confidence threshold are left out of the frame.
type OpenPose struct {
	cfg source.CameraConfig

	mu      sync.Mutex
	capture *gocv.VideoCapture
	net     gocv.Net
	img     gocv.Mat
	closed  bool
}

// NewOpenPose opens the camera and loads the Caffe model.
func NewOpenPose(cfg source.CameraConfig) (*OpenPose, error) {
	for _, path := range []string{cfg.ModelPath, cfg.ProtoPath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("model file not found: %s", path)
		}
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ProtoPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load pose model %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	capture, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		net.Close()
		return nil, fmt.Errorf("open camera %d: %w", cfg.Device, err)
	}

	return &OpenPose{
		cfg:     cfg,
		capture: capture,
		net:     net,
		img:     gocv.NewMat(),
	}, nil
}

// Next captures one image and returns the estimated joints.
func (o *OpenPose) Next(ctx context.Context) (pose.JointFrame, error) {
	if err := ctx.Err(); err != nil {
		return pose.JointFrame{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return pose.JointFrame{}, source.ErrClosed
	}

	if ok := o.capture.Read(&o.img); !ok {
		return pose.JointFrame{}, fmt.Errorf("camera %d: read failed", o.cfg.Device)
	}
	if o.img.Empty() {
		return pose.JointFrame{}, fmt.Errorf("camera %d: empty image", o.cfg.Device)
	}

	return o.estimate(o.img, time.Now())
}

func (o *OpenPose) estimate(img gocv.Mat, ts time.Time) (pose.JointFrame, error) {
	size := image.Pt(o.cfg.InputSize, o.cfg.InputSize)
	blob := gocv.BlobFromImage(img, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	o.net.SetInput(blob, "")
	prob := o.net.Forward("")
	defer prob.Close()

	// Output shape: [1, parts, rows, cols]
	dims := prob.Size()
	if len(dims) != 4 {
		return pose.JointFrame{}, fmt.Errorf("unexpected pose output shape %v", dims)
	}
	rows, cols := dims[2], dims[3]

	frame := pose.NewFrame(ts)
	for joint, part := range cocoParts {
		if part >= dims[1] {
			continue
		}
		heatmap, err := prob.FromPtr(rows, cols, gocv.MatTypeCV32F, 0, part)
		if err != nil {
			return pose.JointFrame{}, fmt.Errorf("heat map %s: %w", joint, err)
		}
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(heatmap)
		heatmap.Close()

		if float64(maxVal) < o.cfg.MinConfidence {
			continue
		}
		frame.Set(joint, scalePeak(maxLoc, cols, rows, img.Cols(), img.Rows()))
	}
	return frame, nil
}

// scalePeak maps a heat-map cell to image pixel coordinates.
func scalePeak(loc image.Point, mapW, mapH, imgW, imgH int) pose.Point2D {
	return pose.Pt(
		float64(loc.X)*float64(imgW)/float64(mapW),
		float64(loc.Y)*float64(imgH)/float64(mapH),
	)
}

// Close releases the camera and the network.
func (o *OpenPose) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.img.Close()
	o.net.Close()
	return o.capture.Close()
}

// Name returns the source type name.
func (o *OpenPose) Name() string {
	return string(source.KindCamera)
}
