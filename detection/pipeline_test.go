package detection

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	boxes  []Box
	err    error
	calls  int
	lastIn string
}

func (f *fakeDetector) Detect(imagePath string) ([]Box, error) {
	f.calls++
	f.lastIn = imagePath
	return f.boxes, f.err
}

func (f *fakeDetector) Available() bool { return true }

func newTestStorage(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	base := t.TempDir()
	store, err := NewLocalStorage(base,
		map[string]string{
			CategoryPothole: filepath.Join(base, "pothole", "original"),
			CategoryWaste:   filepath.Join(base, "waste", "original"),
		},
		map[string]string{
			CategoryPothole: filepath.Join(base, "pothole", "detected"),
			CategoryWaste:   filepath.Join(base, "waste", "detected"),
		},
	)
	require.NoError(t, err)
	return store, base
}

// listFiles returns all regular files under dir, relative to it.
func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			files = append(files, rel)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func stubAnnotator(t *testing.T) func(string, []Box, string) error {
	t.Helper()
	return func(srcPath string, boxes []Box, destPath string) error {
		return os.WriteFile(destPath, []byte("annotated"), 0644)
	}
}

func TestClassifyPotholeTakesPriority(t *testing.T) {
	store, base := newTestStorage(t)

	// both detectors would match; the pothole result must win
	pothole := &fakeDetector{boxes: []Box{{Confidence: 0.8, ClassName: "High"}}}
	waste := &fakeDetector{boxes: []Box{{Confidence: 0.95, ClassID: 0}}}

	p := NewPipeline(pothole, waste, store)
	p.annotate = stubAnnotator(t)

	outcome, err := p.Classify([]byte("image-bytes"), "road.jpg")
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, CategoryPothole, outcome.Category)
	assert.Equal(t, "High", outcome.Severity)
	assert.Equal(t, 1, pothole.calls)
	assert.Equal(t, 0, waste.calls, "waste detector must not run after a pothole match")

	// original landed in the pothole area, annotated copy alongside it
	assert.FileExists(t, outcome.ImagePath)
	assert.FileExists(t, outcome.DetectedImagePath)
	assert.Contains(t, outcome.ImagePath, filepath.Join("pothole", "original"))
	assert.Contains(t, outcome.DetectedImagePath, filepath.Join("pothole", "detected"))

	// scratch copy is gone
	for _, f := range listFiles(t, base) {
		assert.NotContains(t, f, "temp_")
	}
}

func TestClassifyWasteWhenPotholeMisses(t *testing.T) {
	store, _ := newTestStorage(t)

	pothole := &fakeDetector{}
	waste := &fakeDetector{boxes: []Box{
		{Confidence: 0.6, ClassID: 4},
		{Confidence: 0.9, ClassID: 2},
	}}

	p := NewPipeline(pothole, waste, store)
	p.annotate = stubAnnotator(t)

	outcome, err := p.Classify([]byte("image-bytes"), "trash.jpg")
	require.NoError(t, err)
	require.NotNil(t, outcome)

	// the highest-confidence box decides the class
	assert.Equal(t, CategoryWaste, outcome.Category)
	assert.Equal(t, "Paper", outcome.WasteCategory)
	assert.True(t, outcome.Recyclable)
	assert.True(t, outcome.Decomposable)
	assert.Equal(t, "Paper detected", outcome.Status)
	assert.Equal(t, 1, pothole.calls)
	assert.Equal(t, 1, waste.calls)
}

func TestClassifyNoDetectionLeavesNoFiles(t *testing.T) {
	store, base := newTestStorage(t)

	p := NewPipeline(&fakeDetector{}, &fakeDetector{}, store)
	p.annotate = stubAnnotator(t)

	outcome, err := p.Classify([]byte("image-bytes"), "nothing.jpg")
	require.NoError(t, err)
	assert.Nil(t, outcome)

	assert.Empty(t, listFiles(t, base), "no storage files may remain after a no-detection result")
}

func TestClassifyDetectorErrorCleansScratch(t *testing.T) {
	store, base := newTestStorage(t)

	pothole := &fakeDetector{err: errors.New("inference blew up")}
	p := NewPipeline(pothole, &fakeDetector{}, store)
	p.annotate = stubAnnotator(t)

	outcome, err := p.Classify([]byte("image-bytes"), "bad.jpg")
	require.Error(t, err)
	assert.Nil(t, outcome)

	assert.Empty(t, listFiles(t, base), "scratch file must be removed on every exit path")
}

func TestClassifyAnnotationFailureTolerated(t *testing.T) {
	store, _ := newTestStorage(t)

	pothole := &fakeDetector{boxes: []Box{{Confidence: 0.7}}}
	p := NewPipeline(pothole, &fakeDetector{}, store)
	p.annotate = func(string, []Box, string) error {
		return errors.New("draw failed")
	}

	outcome, err := p.Classify([]byte("image-bytes"), "road.jpg")
	require.NoError(t, err)
	require.NotNil(t, outcome)

	// the detection stands; only the annotated copy is missing
	assert.Equal(t, UnknownLabel, outcome.Severity)
	assert.FileExists(t, outcome.ImagePath)
	assert.Empty(t, outcome.DetectedImagePath)
}

func TestClassifyWithDisabledPotholeDetector(t *testing.T) {
	store, base := newTestStorage(t)

	// a detector whose model never loaded reports no boxes, so the waste
	// detector still gets its turn
	pothole := NewDNNDetector("pothole", "", "", nil, 640, 0.5)
	require.False(t, pothole.Available())
	waste := &fakeDetector{boxes: []Box{{Confidence: 0.8, ClassID: 0}}}

	p := NewPipeline(pothole, waste, store)
	p.annotate = stubAnnotator(t)

	outcome, err := p.Classify([]byte("image-bytes"), "trash.jpg")
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, CategoryWaste, outcome.Category)
	assert.Equal(t, "Glass", outcome.WasteCategory)
	assert.Equal(t, 1, waste.calls)

	// with both detectors disabled the result degrades to no detection
	p = NewPipeline(pothole, NewDNNDetector("waste", "", "", nil, 640, 0.5), store)
	outcome, err = p.Classify([]byte("image-bytes"), "trash.jpg")
	require.NoError(t, err)
	assert.Nil(t, outcome)

	for _, f := range listFiles(t, base) {
		assert.NotContains(t, f, "temp_")
	}
}

func TestClassifyScratchUsesUniqueNames(t *testing.T) {
	store, _ := newTestStorage(t)

	var scratchNames []string
	pothole := &fakeDetector{boxes: []Box{{Confidence: 0.7}}}
	p := NewPipeline(pothole, &fakeDetector{}, store)
	p.annotate = func(srcPath string, boxes []Box, destPath string) error {
		scratchNames = append(scratchNames, filepath.Base(srcPath))
		return os.WriteFile(destPath, []byte("annotated"), 0644)
	}

	for i := 0; i < 2; i++ {
		_, err := p.Classify([]byte("image-bytes"), "same-name.jpg")
		require.NoError(t, err)
	}

	require.Len(t, scratchNames, 2)
	assert.NotEqual(t, scratchNames[0], scratchNames[1], "concurrent uploads of the same filename must not collide")
}
