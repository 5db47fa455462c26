package catalog

import (
	"sort"
	"strings"

	"github.com/romariotrain/visiguard/internal/video/models"
)

// Visible reports whether u may see v. Records never cross organizations;
// viewers (and users with an unknown role) only see completed, safe videos.
func Visible(u models.User, v models.Video) bool {
	if u.OrgID == "" || v.OrgID != u.OrgID {
		return false
	}
	switch u.Role {
	case models.AdminRole, models.EditorRole:
		return true
	default:
		return v.Status == models.CompletedStatus && v.Sensitivity == models.SafeSensitivity
	}
}

func CanUpload(u models.User) bool {
	return u.OrgID != "" && (u.Role == models.AdminRole || u.Role == models.EditorRole)
}

// CanDelete allows admins to delete anything in their org and editors to
// delete their own uploads.
func CanDelete(u models.User, v models.Video) bool {
	if u.OrgID == "" || v.OrgID != u.OrgID {
		return false
	}
	switch u.Role {
	case models.AdminRole:
		return true
	case models.EditorRole:
		return v.UploadedBy == u.ID
	default:
		return false
	}
}

// matches is a case-insensitive substring search over the fields shown in the library.
func matches(v models.Video, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{v.Title, v.Description, string(v.Status), string(v.Sensitivity)} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// newestFirst sorts by creation time descending; later insertions win ties.
func newestFirst(videos []models.Video, positions []int) {
	sort.Sort(byNewest{videos: videos, positions: positions})
}

type byNewest struct {
	videos    []models.Video
	positions []int
}

func (b byNewest) Len() int { return len(b.videos) }

func (b byNewest) Less(i, j int) bool {
	ti, tj := b.videos[i].CreatedAt, b.videos[j].CreatedAt
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return b.positions[i] > b.positions[j]
}

func (b byNewest) Swap(i, j int) {
	b.videos[i], b.videos[j] = b.videos[j], b.videos[i]
	b.positions[i], b.positions[j] = b.positions[j], b.positions[i]
}
