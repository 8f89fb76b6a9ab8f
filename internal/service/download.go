package service

import (
	"context"
	"fmt"

	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/media/codec"
	"github.com/inkwellpress/inkwell/internal/util"
)

// Download is a cover file ready to send.
type Download struct {
	Filename string
	MIME     string
	Data     []byte
}

// Download returns a candidate or archived cover with a filename built from
// the book title.
func (s *CoverService) Download(ctx context.Context, projectID, coverID string) (*Download, error) {
	project, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	set, err := s.Covers(ctx, projectID)
	if err != nil {
		return nil, err
	}

	index, saved := -1, false
	for i, c := range set.Candidates {
		if c.ID == coverID {
			index = i
			break
		}
	}
	if index < 0 {
		for i, c := range set.Archived {
			if c.ID == coverID {
				index, saved = i, true
				break
			}
		}
	}
	if index < 0 {
		return nil, errors.NotFoundf("cover %s not found", shortID(coverID))
	}

	data, mime, err := s.processor.Storage().Get(coverID)
	if err != nil {
		return nil, err
	}

	return &Download{
		Filename: DownloadFilename(project.Title, index+1, saved, mime),
		MIME:     mime,
		Data:     data,
	}, nil
}

// DownloadFilename names a cover file "<title-slug>-<n>.<ext>", or
// "<title-slug>-saved-<n>.<ext>" for an archived cover. n is 1-based.
func DownloadFilename(title string, n int, saved bool, mime string) string {
	slug := util.SlugOr(title, "cover")
	if saved {
		slug += "-saved"
	}
	return fmt.Sprintf("%s-%d.%s", slug, n, codec.Extension(mime))
}
