package capture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/rpsbattle/internal/detector"
)

var (
	boneColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	jointColor = color.RGBA{R: 255, G: 0, B: 85, A: 0}
)

// Annotate draws the hand skeleton onto frame in place. Landmark coordinates are normalized
// to the frame size. A nil hand leaves the frame untouched.
func Annotate(frame *gocv.Mat, hand *detector.HandLandmarks) {
	if frame == nil || frame.Empty() || hand == nil {
		return
	}

	w, h := float64(frame.Cols()), float64(frame.Rows())
	var px [detector.NumLandmarks]image.Point
	for i, p := range hand.Points {
		px[i] = image.Pt(int(p.X*w), int(p.Y*h))
	}

	for _, c := range detector.Connections {
		gocv.Line(frame, px[c[0]], px[c[1]], boneColor, 2)
	}
	for _, p := range px {
		gocv.Circle(frame, p, 4, jointColor, -1)
	}
}

// EncodeJPEG encodes frame for the preview stream.
func EncodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
