// Package pathresolver derives the on-disk keyframe JPEG path from a
// keyframe's (group_num, video_num, keyframe_num) coordinates. It is pure
// and side-effect-free: it never checks whether the file actually exists,
// that is the concern of whatever serves the image.
package pathresolver

import (
	"fmt"
	"path/filepath"

	"github.com/mvkhanh/keyframesearch/internal/models"
)

// Resolver formats keyframe paths under a fixed data root.
type Resolver struct {
	DataRoot string
}

// New creates a Resolver rooted at dataRoot.
func New(dataRoot string) *Resolver {
	return &Resolver{DataRoot: dataRoot}
}

// Path returns the deterministic path for a keyframe:
// DATA_ROOT/Keyframes_L{group:02}/L{group:02}_V{video:03}/{keyframe:03}.jpg
func (r *Resolver) Path(kf models.Keyframe) string {
	groupDir := fmt.Sprintf("Keyframes_L%02d", kf.GroupNum)
	videoDir := fmt.Sprintf("L%02d_V%03d", kf.GroupNum, kf.VideoNum)
	fileName := fmt.Sprintf("%03d.jpg", kf.KeyframeNum)
	return filepath.Join(r.DataRoot, groupDir, videoDir, fileName)
}
