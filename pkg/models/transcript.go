package models

// TranscriptSegment is a single timed caption line belonging to a video.
// Segments for a video are always replaced as a complete set, never patched.
type TranscriptSegment struct {
	ID             string  `json:"id" db:"id"`
	VideoID        string  `json:"video_id" db:"video_id"`
	StartSeconds   float64 `json:"start" db:"start_seconds"`
	EndSeconds     float64 `json:"end" db:"end_seconds"`
	Text           string  `json:"text" db:"text"`
	IsChapterStart bool    `json:"is_chapter_start" db:"is_chapter_start"`
	Position       int     `json:"position" db:"position"`
}

// TranscriptResult is the outcome of transcript resolution. Unavailable is set
// instead of an error when the provider has no transcript or cannot be
// reached, so the rest of the pipeline keeps advancing.
type TranscriptResult struct {
	Segments    []TranscriptSegment `json:"segments"`
	Unavailable bool                `json:"unavailable,omitempty"`
}

// PlainText returns the concatenated segment text, used as generation input.
func (r TranscriptResult) PlainText() string {
	if len(r.Segments) == 0 {
		return ""
	}
	out := make([]byte, 0, 64*len(r.Segments))
	for i, seg := range r.Segments {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, seg.Text...)
	}
	return string(out)
}
