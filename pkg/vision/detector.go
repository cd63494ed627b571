// Package vision runs the OpenCV side of the gaze pipeline: camera capture,
// cascade face and eye detection, and pupil localisation.
package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/Veraticus/focus-tracker/pkg/gaze"
	"gocv.io/x/gocv"
)

const (
	FaceCascadeFile = "haarcascade_frontalface_default.xml"
	EyeCascadeFile  = "haarcascade_eye.xml"

	faceScaleFactor  = 1.3
	faceMinNeighbors = 5
	pupilBlurKernel  = 7
	pupilThresholdUp = 20
)

var (
	// ErrCascadeNotFound is returned when no directory holds both cascades.
	ErrCascadeNotFound = errors.New("haar cascade files not found")
	// ErrCascadeLoad is returned when OpenCV rejects a cascade file.
	ErrCascadeLoad = errors.New("failed to load haar cascade")
)

// DefaultCascadeDirs are the usual OpenCV install locations.
var DefaultCascadeDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/usr/local/share/opencv/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
	"data",
}

// Palette holds the overlay colours.
type Palette struct {
	Face  color.RGBA
	Eye   color.RGBA
	Text  color.RGBA
	Alert color.RGBA
	Pupil color.RGBA
}

// DefaultPalette returns the standard overlay colours.
func DefaultPalette() Palette {
	return Palette{
		Face:  color.RGBA{R: 229, G: 152, B: 155, A: 255},
		Eye:   color.RGBA{R: 181, G: 131, B: 141, A: 255},
		Text:  color.RGBA{R: 229, G: 152, B: 155, A: 255},
		Alert: color.RGBA{R: 181, G: 131, B: 141, A: 255},
		Pupil: color.RGBA{R: 109, G: 104, B: 117, A: 255},
	}
}

// FindCascadeDir returns the first candidate directory containing both
// cascade files. Empty candidates are skipped.
func FindCascadeDir(candidates ...string) (string, error) {
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if fileExists(filepath.Join(dir, FaceCascadeFile)) && fileExists(filepath.Join(dir, EyeCascadeFile)) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w in %v", ErrCascadeNotFound, candidates)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Pupil is a located pupil in eye-region coordinates.
type Pupil struct {
	Center image.Point
	Radius int
}

// Detector finds faces, eyes and pupils in BGR frames.
type Detector struct {
	face      gocv.CascadeClassifier
	eye       gocv.CascadeClassifier
	estimator *gaze.Estimator
	palette   Palette
}

// NewDetector loads both cascades from dir.
func NewDetector(dir string, estimator *gaze.Estimator, palette Palette) (*Detector, error) {
	face := gocv.NewCascadeClassifier()
	if !face.Load(filepath.Join(dir, FaceCascadeFile)) {
		_ = face.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascadeLoad, FaceCascadeFile)
	}

	eye := gocv.NewCascadeClassifier()
	if !eye.Load(filepath.Join(dir, EyeCascadeFile)) {
		_ = face.Close()
		_ = eye.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascadeLoad, EyeCascadeFile)
	}

	return &Detector{
		face:      face,
		eye:       eye,
		estimator: estimator,
		palette:   palette,
	}, nil
}

// Estimator returns the gaze estimator used by the detector.
func (d *Detector) Estimator() *gaze.Estimator {
	return d.estimator
}

// ProcessFrame estimates gaze for a BGR frame. The returned Mat is an
// annotated copy owned by the caller.
func (d *Detector) ProcessFrame(frame gocv.Mat) (gocv.Mat, gaze.Estimate) {
	out := frame.Clone()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	faces := d.face.DetectMultiScaleWithParams(gray, faceScaleFactor, faceMinNeighbors, 0, image.Point{}, image.Point{})
	if len(faces) == 0 {
		est := d.estimator.NoFace()
		d.caption(&out, "No face detected", d.palette.Text)
		return out, est
	}

	f := faces[0]
	gocv.Rectangle(&out, f, d.palette.Face, 2)

	// Eyes sit in the upper half of the face.
	upper := image.Rect(f.Min.X, f.Min.Y, f.Max.X, f.Min.Y+f.Dy()/2).Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	faceGray := gray.Region(upper)
	defer faceGray.Close()

	eyes := d.eye.DetectMultiScale(faceGray)
	ratios := make([]float64, 0, len(eyes))
	for _, e := range eyes {
		abs := e.Add(upper.Min)
		gocv.Rectangle(&out, abs, d.palette.Eye, 1)

		eyeGray := faceGray.Region(e)
		pupil, ok := DetectPupil(eyeGray)
		eyeGray.Close()
		if !ok {
			continue
		}

		gocv.Circle(&out, pupil.Center.Add(abs.Min), pupil.Radius, d.palette.Pupil, 2)
		ratios = append(ratios, gaze.Ratio(pupil.Center.X, e.Dx()))
	}

	est := d.estimator.Observe(len(eyes), ratios)
	if est.Status == gaze.StatusTracked {
		d.caption(&out, "Gaze: "+string(est.Direction), d.palette.Text)
	} else {
		d.caption(&out, "Eyes not detected", d.palette.Alert)
	}
	return out, est
}

func (d *Detector) caption(img *gocv.Mat, text string, c color.RGBA) {
	gocv.PutText(img, text, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, c, 2)
}

// DetectPupil locates the pupil in a grayscale eye region. The darkest blob
// after equalisation and a dynamic threshold is taken as the pupil.
func DetectPupil(eyeGray gocv.Mat) (Pupil, bool) {
	if eyeGray.Empty() {
		return Pupil{}, false
	}

	eq := gocv.NewMat()
	defer eq.Close()
	gocv.EqualizeHist(eyeGray, &eq)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(eq, &blur, image.Pt(pupilBlurKernel, pupilBlurKernel), 0, 0, gocv.BorderDefault)

	minVal, _, _, _ := gocv.MinMaxLoc(blur)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(blur, &mask, minVal+pupilThresholdUp, 255, gocv.ThresholdBinaryInv)

	contours := gocv.FindContours(mask, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return Pupil{}, false
	}

	idx := make([]int, contours.Size())
	areas := make([]float64, contours.Size())
	for i := range idx {
		idx[i] = i
		areas[i] = gocv.ContourArea(contours.At(i))
	}
	sort.SliceStable(idx, func(a, b int) bool { return areas[idx[a]] > areas[idx[b]] })

	x, y, r := gocv.MinEnclosingCircle(contours.At(idx[0]))
	if !gaze.AcceptPupil(float64(r), eyeGray.Rows()) {
		return Pupil{}, false
	}
	return Pupil{Center: image.Pt(int(x), int(y)), Radius: int(r)}, true
}

// Close releases the cascade classifiers.
func (d *Detector) Close() error {
	return errors.Join(d.face.Close(), d.eye.Close())
}
