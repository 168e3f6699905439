package detection

import (
	"fmt"
	"log"

	"github.com/civiceye/civiceyebackend/utils"
)

// Pipeline routes an image through the pothole and waste detectors in fixed
// priority order and produces a single normalized outcome. The pothole
// check always runs first: a pothole match wins even when the waste model
// would also match the same image.
type Pipeline struct {
	pothole Detector
	waste   Detector
	store   Storage

	// annotate renders the boxed copy of a matched image. swappable in tests
	annotate func(srcPath string, boxes []Box, destPath string) error
}

// NewPipeline builds a pipeline around two loaded detector instances. The
// detectors are shared read-only resources owned by the caller.
func NewPipeline(pothole, waste Detector, store Storage) *Pipeline {
	return &Pipeline{
		pothole:  pothole,
		waste:    waste,
		store:    store,
		annotate: DrawBoxes,
	}
}

// Classify runs the detectors against the image and returns the outcome, or
// nil when neither model matches. The scratch copy written for the
// detectors is removed on every exit path.
func (p *Pipeline) Classify(imageData []byte, originalFilename string) (*Outcome, error) {
	names := utils.NewStoredNames(originalFilename)

	scratchPath, err := p.store.SaveScratch(names.Scratch, imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to write scratch copy: %w", err)
	}
	defer func() {
		if remErr := p.store.Remove(scratchPath); remErr != nil {
			log.Printf("pipeline: failed to remove scratch file %s: %v", scratchPath, remErr)
		}
	}()

	// pothole detection runs first unconditionally
	potholeBoxes, err := p.pothole.Detect(scratchPath)
	if err != nil {
		return nil, fmt.Errorf("pothole detection failed: %w", err)
	}
	if len(potholeBoxes) > 0 {
		severity := ""
		if best, ok := BestBox(potholeBoxes); ok {
			severity = best.ClassName
		}
		outcome := NewPotholeOutcome(severity)
		if err := p.persist(outcome, names, imageData, scratchPath, potholeBoxes); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	wasteBoxes, err := p.waste.Detect(scratchPath)
	if err != nil {
		return nil, fmt.Errorf("waste detection failed: %w", err)
	}
	if len(wasteBoxes) > 0 {
		best, _ := BestBox(wasteBoxes)
		outcome := NewWasteOutcome(best.ClassID)
		if err := p.persist(outcome, names, imageData, scratchPath, wasteBoxes); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	return nil, nil
}

// persist saves the original upload into the matched category's storage
// area and writes the annotated copy alongside it.
func (p *Pipeline) persist(outcome *Outcome, names utils.StoredNames, imageData []byte, scratchPath string, boxes []Box) error {
	imagePath, err := p.store.SaveOriginal(outcome.Category, names.Original, imageData)
	if err != nil {
		return fmt.Errorf("failed to store original image: %w", err)
	}

	outcome.ImageName = names.Original
	outcome.ImagePath = imagePath

	detectedPath, err := p.store.DetectedPath(outcome.Category, names.Detected)
	if err != nil {
		return fmt.Errorf("failed to resolve detected image path: %w", err)
	}

	// annotation failure is tolerated: the detection itself stands
	if err := p.annotate(scratchPath, boxes, detectedPath); err != nil {
		log.Printf("pipeline: failed to write annotated image for %s: %v", names.Original, err)
		return nil
	}

	outcome.DetectedImageName = names.Detected
	outcome.DetectedImagePath = detectedPath
	return nil
}
