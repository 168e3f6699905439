package detection

import (
	"image"
	"log"
	"sync"

	"gocv.io/x/gocv"
)

// Box is a single prediction above the confidence threshold.
type Box struct {
	X          int
	Y          int
	W          int
	H          int
	Confidence float32
	ClassID    int
	ClassName  string
}

// Detector wraps one pretrained object-detection model. Implementations are
// loaded once at startup and shared read-only across requests.
type Detector interface {
	// Detect returns all boxes above the confidence threshold in the image
	// at the given path, possibly none. An unavailable detector returns an
	// empty result rather than an error.
	Detect(imagePath string) ([]Box, error)
	Available() bool
}

// DNNDetector runs a DNN object-detection model through gocv. A detector
// that fails to load stays permanently unavailable and reports no boxes,
// so classification degrades to "no detection" instead of failing.
type DNNDetector struct {
	name    string
	net     gocv.Net
	enabled bool

	// OpenCV Net forward passes are not documented thread-safe, so
	// concurrent requests are serialized per detector.
	mu sync.Mutex

	classNames    []string
	inputSize     int
	confThreshold float32
}

// NewDNNDetector loads the model at modelPath. configPath may be empty for
// single-file formats such as ONNX. classNames maps class indices to labels
// and may be nil when the model has no usable class table.
func NewDNNDetector(name, modelPath, configPath string, classNames []string, inputSize int, confThreshold float32) *DNNDetector {
	d := &DNNDetector{
		name:          name,
		classNames:    classNames,
		inputSize:     inputSize,
		confThreshold: confThreshold,
	}

	if modelPath == "" {
		log.Printf("detection(%s): model path is empty, detector disabled", name)
		return d
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		log.Printf("detection(%s): ERROR - ReadNet returned an empty network for %s, detector disabled", name, modelPath)
		return d
	}
	log.Printf("detection(%s): successfully loaded model from %s", name, modelPath)

	cudaBackendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	cudaTargetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)

	if cudaBackendErr == nil && cudaTargetErr == nil {
		log.Printf("detection(%s): set backend/target to CUDA", name)
	} else {
		if cudaBackendErr != nil {
			log.Printf("detection(%s): CUDA backend not available: %v. Using default backend.", name, cudaBackendErr)
		}
		if cudaTargetErr != nil {
			log.Printf("detection(%s): CUDA target not available: %v. Using default target.", name, cudaTargetErr)
		}
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
		log.Printf("detection(%s): set backend/target to CPU (default)", name)
	}

	d.net = net
	d.enabled = true
	return d
}

func (d *DNNDetector) Available() bool {
	return d != nil && d.enabled
}

func (d *DNNDetector) Close() {
	if d != nil && d.enabled {
		d.net.Close()
		log.Printf("detection(%s): closed network", d.name)
		d.enabled = false
	}
}

// Detect reads the image at imagePath and runs one forward pass. A disabled
// detector returns no boxes and no error.
func (d *DNNDetector) Detect(imagePath string) ([]Box, error) {
	if !d.Available() {
		return nil, nil
	}

	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		log.Printf("detection(%s): failed to read image file %s", d.name, imagePath)
		return nil, nil
	}
	defer img.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	imgHeight := float32(img.Rows())
	imgWidth := float32(img.Cols())

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.parseOutput(output, imgWidth, imgHeight), nil
}

// parseOutput walks the [1,1,N,7] detection matrix where each row is
// [image_id, class_id, confidence, xmin, ymin, xmax, ymax] in normalized
// coordinates, and keeps rows above the confidence threshold.
func (d *DNNDetector) parseOutput(output gocv.Mat, imgWidth, imgHeight float32) []Box {
	var boxes []Box

	sizes := output.Size()
	if len(sizes) < 3 {
		log.Printf("detection(%s): unexpected output matrix dimensions: %v", d.name, sizes)
		return boxes
	}

	numDetections := sizes[len(sizes)-2]
	rowLen := sizes[len(sizes)-1]
	if numDetections == 0 || rowLen < 7 {
		return boxes
	}

	data := output.Reshape(1, numDetections)
	defer data.Close()

	for i := 0; i < numDetections; i++ {
		confidence := data.GetFloatAt(i, 2)
		if confidence < d.confThreshold {
			continue
		}

		classID := int(data.GetFloatAt(i, 1))

		xMin := data.GetFloatAt(i, 3) * imgWidth
		yMin := data.GetFloatAt(i, 4) * imgHeight
		xMax := data.GetFloatAt(i, 5) * imgWidth
		yMax := data.GetFloatAt(i, 6) * imgHeight

		xMin = max(0, xMin)
		yMin = max(0, yMin)
		xMax = min(imgWidth, xMax)
		yMax = min(imgHeight, yMax)

		if xMax <= xMin || yMax <= yMin {
			continue
		}

		boxes = append(boxes, Box{
			X:          int(xMin),
			Y:          int(yMin),
			W:          int(xMax - xMin),
			H:          int(yMax - yMin),
			Confidence: confidence,
			ClassID:    classID,
			ClassName:  d.className(classID),
		})
	}

	return boxes
}

func (d *DNNDetector) className(classID int) string {
	if classID >= 0 && classID < len(d.classNames) {
		return d.classNames[classID]
	}
	return ""
}

// BestBox returns the highest-confidence box, or false when there are none.
func BestBox(boxes []Box) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	best := boxes[0]
	for _, b := range boxes[1:] {
		if b.Confidence > best.Confidence {
			best = b
		}
	}
	return best, true
}
