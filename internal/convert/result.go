// result.go conversion statistics.
package convert

import (
	"path/filepath"
	"strings"

	"github.com/gearmap/gearmap-go/internal/mapping"
)

// Result holds the exact statistics of one conversion. The identifiers and
// the download URL are filled in by the transport layer, the engine provides
// the counts, names and timing.
type Result struct {
	UploadID         string   `json:"upload_id,omitempty"`
	FileID           string   `json:"file_id,omitempty"`
	OriginalName     string   `json:"original_filename"`
	ConvertedName    string   `json:"converted_filename"`
	Direction        string   `json:"direction"`
	Processed        int      `json:"annotations_processed"`
	Converted        int      `json:"annotations_converted"`
	Skipped          int      `json:"annotations_skipped"`
	SkippedSubjects  []string `json:"skipped_subjects"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	DownloadURL      string   `json:"download_url,omitempty"`

	seen map[string]struct{}
}

// skipSubject records one skipped annotation whose subject is known. Each
// distinct subject appears once in SkippedSubjects, in the order it was
// first encountered.
func (r *Result) skipSubject(subject string) {
	r.Skipped++
	if r.seen == nil {
		r.seen = make(map[string]struct{})
	}
	if _, ok := r.seen[subject]; ok {
		return
	}
	r.seen[subject] = struct{}{}
	r.SkippedSubjects = append(r.SkippedSubjects, subject)
}

// skipAnonymous records one skipped annotation that has no subject to name
// or whose subject was mapped but could not be placed.
func (r *Result) skipAnonymous() {
	r.Skipped++
}

// directionSuffix names the output file per target vocabulary.
var directionSuffix = map[mapping.Direction]string{
	mapping.BidToDeployment: "_deployment",
	mapping.DeploymentToBid: "_bid",
}

// convertedName derives the output file name from the uploaded one.
func convertedName(original string, direction mapping.Direction) string {
	base := filepath.Base(original)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "converted"
	}
	suffix, ok := directionSuffix[direction]
	if !ok {
		suffix = "_converted"
	}
	return base + suffix + ".pdf"
}
