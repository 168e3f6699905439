package detection

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// DrawBoxes writes an annotated copy of the image at srcPath to destPath
// with every detection box and its label drawn on.
func DrawBoxes(srcPath string, boxes []Box, destPath string) error {
	img := gocv.IMRead(srcPath, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("failed to read image file for annotation: %s", srcPath)
	}
	defer img.Close()

	red := color.RGBA{255, 0, 0, 0}
	thickness := 2

	for _, box := range boxes {
		rect := image.Rect(box.X, box.Y, box.X+box.W, box.Y+box.H)
		gocv.Rectangle(&img, rect, red, thickness)

		label := fmt.Sprintf("%.2f", box.Confidence)
		if box.ClassName != "" {
			label = fmt.Sprintf("%s %.2f", box.ClassName, box.Confidence)
		}
		gocv.PutText(&img, label, image.Pt(rect.Min.X, rect.Min.Y-5), gocv.FontHersheySimplex, 0.5, red, 1)
	}

	if ok := gocv.IMWrite(destPath, img); !ok {
		return fmt.Errorf("failed to write annotated image to %s", destPath)
	}
	return nil
}
