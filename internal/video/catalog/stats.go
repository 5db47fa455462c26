package catalog

import "github.com/romariotrain/visiguard/internal/video/models"

// Stats summarizes the videos visible to one user.
type Stats struct {
	Total         int                        `json:"total"`
	ByStatus      map[models.Status]int      `json:"byStatus"`
	BySensitivity map[models.Sensitivity]int `json:"bySensitivity"`
	Bytes         int64                      `json:"bytes"`
}

func (s *Service) Stats(user models.User) Stats {
	st := Stats{
		ByStatus:      make(map[models.Status]int),
		BySensitivity: make(map[models.Sensitivity]int),
	}
	for _, v := range s.List(user) {
		st.Total++
		st.ByStatus[v.Status]++
		st.BySensitivity[v.Sensitivity]++
		st.Bytes += v.FileSize
	}
	return st
}
