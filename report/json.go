package report

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"imgdup/types"
)

type jsonSettings struct {
	Threads   int      `json:"threads"`
	Dir       string   `json:"dir"`
	Recurse   bool     `json:"recurse"`
	Exts      []string `json:"exts"`
	HashSize  int      `json:"hash_size"`
	Threshold float64  `json:"threshold"`
	Fast      bool     `json:"fast"`
	Limit     int      `json:"limit"`
	Hasher    string   `json:"hasher,omitempty"`
}

type jsonImage struct {
	Path        string       `json:"path"`
	Format      string       `json:"format"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Size        int64        `json:"size"`
	Fingerprint string       `json:"fingerprint"`
	Similars    []types.Edge `json:"similars"`
}

type jsonError struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type jsonReport struct {
	RunID     string       `json:"run_id,omitempty"`
	StartedAt *time.Time   `json:"started_at,omitempty"`
	ElapsedMS int64        `json:"elapsed_ms"`
	Settings  jsonSettings `json:"settings"`
	Images    []jsonImage  `json:"images"`
	Errors    []jsonError  `json:"errors"`
}

func writeJSON(w io.Writer, settings types.HashSettings, entries []types.Entry, info RunInfo, indent int) error {
	doc := jsonReport{
		RunID:     info.RunID,
		ElapsedMS: info.Elapsed.Milliseconds(),
		Settings: jsonSettings{
			Threads:   info.Threads,
			Dir:       info.Dir,
			Recurse:   info.Recursive,
			Exts:      append([]string{}, info.Extensions...),
			HashSize:  settings.Resolution,
			Threshold: info.Threshold,
			Fast:      settings.Mode == types.ModeFast,
			Limit:     info.Limit,
			Hasher:    info.Hasher,
		},
		Images: []jsonImage{},
		Errors: []jsonError{},
	}
	if !info.Started.IsZero() {
		started := info.Started.UTC()
		doc.StartedAt = &started
	}

	for _, e := range entries {
		if !e.OK() {
			doc.Errors = append(doc.Errors, jsonError{Path: e.Path, Kind: errorKind(e.Err), Error: e.Err.Error()})
			continue
		}
		similars := e.Edges
		if similars == nil {
			similars = []types.Edge{}
		}
		doc.Images = append(doc.Images, jsonImage{
			Path:        e.Path,
			Format:      e.Info.Format,
			Width:       e.Info.Width,
			Height:      e.Info.Height,
			Size:        e.Info.Size,
			Fingerprint: e.Info.Fingerprint.Hex(),
			Similars:    similars,
		})
	}

	enc := json.NewEncoder(w)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	return enc.Encode(doc)
}
