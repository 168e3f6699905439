package models

import "time"

const (
	CategoryPothole = "pothole"
	CategoryWaste   = "waste"
)

// Detection represents one classified submission: a pothole or waste report
// with its geolocation, routing department and classifier output.
type Detection struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"user_id" gorm:"not null;index"`
	User   User `json:"-" gorm:"foreignKey:UserID"`

	// pothole | waste
	Category string `json:"category" gorm:"size:20;not null;index"`

	ImageName         string `json:"image_name" gorm:"size:200;not null"`
	ImagePath         string `json:"image_path" gorm:"size:300;not null"`
	DetectedImagePath string `json:"detected_image_path" gorm:"size:300"`

	Latitude  float64 `json:"latitude" gorm:"not null"`
	Longitude float64 `json:"longitude" gorm:"not null"`
	Location  string  `json:"location" gorm:"size:255;not null"`

	// capture time, sourced from EXIF when the upload carries it
	Timestamp time.Time `json:"-"`

	// exactly one of the two is set, matching Category
	PotholeSeverity *string `json:"pothole_severity,omitempty" gorm:"size:20"`
	WasteCategory   *string `json:"waste_category,omitempty" gorm:"size:50"`

	Department      string `json:"department" gorm:"size:100;not null"`
	DetectionStatus string `json:"detection_status" gorm:"size:50;not null"`

	Departments []DetectionDepartment `json:"-" gorm:"foreignKey:DetectionID"`
	Tags        []DetectionTag        `json:"-" gorm:"foreignKey:DetectionID"`
	Images      []StoredImage         `json:"-" gorm:"foreignKey:DetectionID"`
}

func (Detection) TableName() string {
	return "detections"
}

// TagNames collects the names of all linked tags. Requires Tags.Tag to be
// preloaded.
func (d *Detection) TagNames() []string {
	names := make([]string, 0, len(d.Tags))
	for _, dt := range d.Tags {
		names = append(names, dt.Tag.Name)
	}
	return names
}

// Serialize returns the response representation of the detection, with the
// fixed timestamp format and the linked tag names flattened to a list.
func (d *Detection) Serialize() map[string]interface{} {
	return map[string]interface{}{
		"id":                  d.ID,
		"user_id":             d.UserID,
		"category":            d.Category,
		"image_name":          d.ImageName,
		"image_path":          d.ImagePath,
		"detected_image_path": d.DetectedImagePath,
		"latitude":            d.Latitude,
		"longitude":           d.Longitude,
		"location":            d.Location,
		"pothole_severity":    d.PotholeSeverity,
		"waste_category":      d.WasteCategory,
		"department":          d.Department,
		"timestamp":           d.Timestamp.Format(TimeFormat),
		"detection_status":    d.DetectionStatus,
		"tags":                d.TagNames(),
	}
}

// Department is a named routing target, deduplicated by name and created
// lazily on first reference.
type Department struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

func (Department) TableName() string {
	return "department"
}

// Tag is a named classifier label (severity level or waste category),
// deduplicated by name and created lazily on first reference.
type Tag struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
	// waste | pothole
	Type string `json:"type" gorm:"size:20"`
}

func (Tag) TableName() string {
	return "tag"
}

// DetectionDepartment links a detection to the department routed to handle it.
type DetectionDepartment struct {
	DetectionID  uint       `json:"detection_id" gorm:"primaryKey"`
	DepartmentID uint       `json:"department_id" gorm:"primaryKey"`
	Department   Department `json:"department" gorm:"foreignKey:DepartmentID"`
}

func (DetectionDepartment) TableName() string {
	return "detection_department"
}

// DetectionTag links a detection to a classifier tag.
type DetectionTag struct {
	DetectionID uint `json:"detection_id" gorm:"primaryKey"`
	TagID       uint `json:"tag_id" gorm:"primaryKey"`
	Tag         Tag  `json:"tag" gorm:"foreignKey:TagID"`
}

func (DetectionTag) TableName() string {
	return "detection_tag"
}

// StoredImage records the on-disk names of an uploaded file and its
// annotated variant; its lifetime is bound to the parent detection.
type StoredImage struct {
	ID                string `json:"id" gorm:"primaryKey;size:36"`
	DetectionID       uint   `json:"detection_id" gorm:"not null;index"`
	UploadedFilename  string `json:"uploaded_filename" gorm:"size:300"`
	AnnotatedFilename string `json:"annotated_filename" gorm:"size:300"`
	Timestamp         string `json:"timestamp" gorm:"size:50"`
}

func (StoredImage) TableName() string {
	return "image"
}
