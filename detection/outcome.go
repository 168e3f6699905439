package detection

import "fmt"

const (
	CategoryPothole = "pothole"
	CategoryWaste   = "waste"
)

const (
	RoadDepartment  = "Road Department"
	WasteDepartment = "Waste Management Department"
)

// UnknownLabel is the stable marker used when the detector supplies no class
// metadata for a box.
const UnknownLabel = "Unknown"

// wasteClassNames maps waste model class indices to category names. The
// order is fixed by the trained model.
var wasteClassNames = map[int]string{
	0: "Glass",
	1: "Metal",
	2: "Paper",
	3: "Plastic",
	4: "Residual",
}

// WasteCategoryForClass maps a waste model class index to its category name.
// Unknown indices map to the stable Unknown label.
func WasteCategoryForClass(classID int) string {
	if name, ok := wasteClassNames[classID]; ok {
		return name
	}
	return UnknownLabel
}

// Outcome is the normalized result of classifying one image: a pothole
// finding with a severity, or a waste finding with its category flags.
// A nil *Outcome means no detection, which is a valid non-error result.
type Outcome struct {
	// pothole | waste
	Category string

	// pothole only
	Severity string

	// waste only
	WasteCategory string
	Recyclable    bool
	Decomposable  bool

	Status string

	// filenames and paths filled in by the pipeline after storage
	ImageName         string
	ImagePath         string
	DetectedImageName string
	DetectedImagePath string
}

// NewPotholeOutcome builds the pothole variant. Severity comes from detector
// metadata; callers pass UnknownLabel when the model supplies none.
func NewPotholeOutcome(severity string) *Outcome {
	if severity == "" {
		severity = UnknownLabel
	}
	return &Outcome{
		Category: CategoryPothole,
		Severity: severity,
		Status:   "Pothole detected",
	}
}

// NewWasteOutcome builds the waste variant from the detected class index.
func NewWasteOutcome(classID int) *Outcome {
	category := WasteCategoryForClass(classID)
	return &Outcome{
		Category:      CategoryWaste,
		WasteCategory: category,
		Recyclable:    category != "Residual",
		Decomposable:  category == "Paper",
		Status:        fmt.Sprintf("%s detected", category),
	}
}

// DepartmentName returns the routing department for this outcome.
func (o *Outcome) DepartmentName() string {
	if o.Category == CategoryPothole {
		return RoadDepartment
	}
	return WasteDepartment
}

// TagName returns the single classifier tag derived from this outcome:
// the severity string for potholes, the waste category for waste.
func (o *Outcome) TagName() string {
	if o.Category == CategoryPothole {
		return o.Severity
	}
	return o.WasteCategory
}
