package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/techblogs/skillfeed/client"
	"github.com/techblogs/skillfeed/model"
	Logger "github.com/techblogs/skillfeed/utils/log"
)

const (
	// MaxFilesPerPost caps a post's media sequence.
	MaxFilesPerPost = 3
	// MaxVideoSeconds is inclusive: a 30.0s video is accepted.
	MaxVideoSeconds = 30.0

	previewMaxDim = 320
)

var contentTypeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".qt":   "video/quicktime",
}

// Draft is one pending file of an in-progress create/edit form, together
// with its locally generated preview. The preview resource belongs to the
// owning DraftSet and is released when the draft is removed or the set is
// closed.
type Draft struct {
	Id          string
	Path        string
	FileName    string
	ContentType string
	Kind        model.MediaType
	Duration    float64

	previewPath string
	// generated previews are files owned by the set, source-referencing
	// previews (videos) are only dropped
	previewGenerated bool
}

// PreviewPath returns the preview reference, empty once released.
func (d *Draft) PreviewPath() string {
	return d.previewPath
}

// DraftSet owns the pending files of exactly one create/edit form. It is
// not safe for concurrent mutation, matching the single-dialog UI it backs.
type DraftSet struct {
	dir    string
	drafts []*Draft

	closeOnce sync.Once
}

func NewDraftSet() (*DraftSet, error) {
	dir, err := os.MkdirTemp("", "skillfeed-previews-")
	if err != nil {
		return nil, errors.Wrap(err, "create preview dir")
	}
	return &DraftSet{dir: dir}, nil
}

func (s *DraftSet) Count() int {
	return len(s.drafts)
}

func (s *DraftSet) Drafts() []*Draft {
	return s.drafts
}

// Add validates and accepts a batch of newly selected files. The whole
// batch is rejected when the combined count would exceed the cap, when any
// file's type is outside the allowed set, or when any video's probed
// duration exceeds the cap. Duration probes run concurrently and are
// jointly awaited. Rejection performs no state change.
func (s *DraftSet) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if len(s.drafts)+len(paths) > MaxFilesPerPost {
		return &client.ValidationError{Reason: "maximum 3 files allowed"}
	}

	candidates := make([]*Draft, 0, len(paths))
	for _, path := range paths {
		contentType, ok := contentTypeByExt[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return &client.ValidationError{
				Reason: "only images (JPEG, PNG, GIF) and videos (MP4, QuickTime) are allowed",
			}
		}
		kind := model.MediaTypeImage
		if strings.HasPrefix(contentType, "video/") {
			kind = model.MediaTypeVideo
		}
		candidates = append(candidates, &Draft{
			Id:          uuid.NewString(),
			Path:        path,
			FileName:    filepath.Base(path),
			ContentType: contentType,
			Kind:        kind,
		})
	}

	if err := s.probeVideos(ctx, candidates); err != nil {
		return err
	}

	for i, d := range candidates {
		if err := s.generatePreview(d); err != nil {
			// all-or-nothing: release previews already generated for the
			// rejected batch
			for _, g := range candidates[:i] {
				g.releasePreview()
			}
			return err
		}
	}
	s.drafts = append(s.drafts, candidates...)
	return nil
}

// probeVideos measures every video candidate concurrently and fails the
// batch on the first over-long or unreadable one.
func (s *DraftSet) probeVideos(ctx context.Context, candidates []*Draft) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, d := range candidates {
		if d.Kind != model.MediaTypeVideo {
			continue
		}
		d := d
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			duration, err := ProbeDuration(d.Path)
			if err != nil {
				return &client.ValidationError{
					Reason: "could not read video metadata: " + err.Error(),
				}
			}
			if duration > MaxVideoSeconds {
				return &client.ValidationError{Reason: "videos must be 30 seconds or less"}
			}
			d.Duration = duration
			return nil
		})
	}
	return group.Wait()
}

// generatePreview creates the local preview reference: a downscaled
// thumbnail for images, the source file itself for videos.
func (s *DraftSet) generatePreview(d *Draft) error {
	if d.Kind == model.MediaTypeVideo {
		d.previewPath = d.Path
		return nil
	}
	img, err := imaging.Open(d.Path)
	if err != nil {
		return &client.ValidationError{Reason: "could not read image: " + err.Error()}
	}
	thumb := imaging.Fit(img, previewMaxDim, previewMaxDim, imaging.Lanczos)
	path := filepath.Join(s.dir, d.Id+".jpg")
	if err := imaging.Save(thumb, path); err != nil {
		return errors.Wrap(err, "write preview")
	}
	d.previewPath = path
	d.previewGenerated = true
	return nil
}

func (d *Draft) releasePreview() {
	if d.previewGenerated && d.previewPath != "" {
		if err := os.Remove(d.previewPath); err != nil && !os.IsNotExist(err) {
			Logger.Log.Warnf("failed to remove preview %s: %v", d.previewPath, err)
		}
	}
	d.previewPath = ""
	d.previewGenerated = false
}

// Remove drops one draft and revokes its preview reference immediately.
func (s *DraftSet) Remove(id string) error {
	for i, d := range s.drafts {
		if d.Id != id {
			continue
		}
		d.releasePreview()
		s.drafts = append(s.drafts[:i], s.drafts[i+1:]...)
		return nil
	}
	return errors.Errorf("no draft with id %s", id)
}

// Uploads materializes the accepted files for multipart submission.
func (s *DraftSet) Uploads() ([]client.MediaUpload, error) {
	uploads := make([]client.MediaUpload, 0, len(s.drafts))
	for _, d := range s.drafts {
		content, err := os.ReadFile(d.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "read draft %s", d.FileName)
		}
		uploads = append(uploads, client.MediaUpload{
			FileName:    d.FileName,
			ContentType: d.ContentType,
			Content:     content,
		})
	}
	return uploads, nil
}

// Close releases every remaining preview and the preview dir. Required on
// every form exit path (submit, cancel, unmount), safe to call twice.
func (s *DraftSet) Close() {
	s.closeOnce.Do(func() {
		for _, d := range s.drafts {
			d.releasePreview()
		}
		s.drafts = nil
		if err := os.RemoveAll(s.dir); err != nil {
			Logger.Log.Warnf("failed to remove preview dir %s: %v", s.dir, err)
		}
	})
}
