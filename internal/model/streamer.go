package model

// Streamer is a candidate live channel.
type Streamer struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name,omitempty"`
	Live        bool   `json:"live"`
	Viewers     *int   `json:"viewers,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// ViewerRank returns the sort weight for the viewer count. Missing counts
// rank after every known count.
func (s Streamer) ViewerRank() int64 {
	if s.Viewers == nil {
		return 1<<62 - 1
	}
	return int64(*s.Viewers)
}
