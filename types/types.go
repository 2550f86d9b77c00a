package types

// ImageInfo holds what was learned about one successfully hashed image
type ImageInfo struct {
	Format      string      `json:"format"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Size        int64       `json:"size"`
	Fingerprint Fingerprint `json:"fingerprint"`
}

// Outcome is the result of processing one image path.
// A nil Err means Info is valid; otherwise the image failed and Info is zero.
type Outcome struct {
	Path string
	Info ImageInfo
	Err  error
}

// Success creates an outcome for an image that was hashed
func Success(path string, info ImageInfo) Outcome {
	return Outcome{Path: path, Info: info}
}

// Failure creates an outcome for an image that could not be hashed
func Failure(path string, err error) Outcome {
	return Outcome{Path: path, Err: err}
}

// OK reports whether the outcome carries a fingerprint
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Edge links an image to another image within the similarity threshold
type Edge struct {
	Path       string  `json:"path"`
	Distance   int     `json:"distance"`
	Difference float64 `json:"difference"`
}

// Entry is one outcome of a result set together with its similarity edges.
// Failures never carry edges.
type Entry struct {
	Outcome
	Edges []Edge
}

// HasSimilars reports whether at least one other image is within threshold
func (e Entry) HasSimilars() bool {
	return len(e.Edges) > 0
}
