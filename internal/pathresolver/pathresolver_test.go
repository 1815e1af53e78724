package pathresolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mvkhanh/keyframesearch/internal/models"
)

func TestPath_ZeroPadsGroupVideoKeyframe(t *testing.T) {
	r := New("/data")
	kf := models.Keyframe{GroupNum: 1, VideoNum: 2, KeyframeNum: 7}
	assert.Equal(t, "/data/Keyframes_L01/L01_V002/007.jpg", r.Path(kf))
}

func TestPath_MultiDigitValues(t *testing.T) {
	r := New("/data")
	kf := models.Keyframe{GroupNum: 25, VideoNum: 123, KeyframeNum: 4567}
	assert.Equal(t, "/data/Keyframes_L25/L25_V123/4567.jpg", r.Path(kf))
}

func TestPath_ExistenceNotChecked(t *testing.T) {
	r := New("/nonexistent-root")
	kf := models.Keyframe{GroupNum: 1, VideoNum: 1, KeyframeNum: 1}
	// Path must be returned even though nothing exists on disk.
	assert.NotEmpty(t, r.Path(kf))
}
