// Package manifest parses batch render manifests written in YAML or TOML.
//
// A manifest lists render jobs and shared defaults:
//
//	width: 400
//	height: 400
//	format: png
//	imagesDir: images
//	outDir: out
//	renders:
//	  - name: swirl
//	    expression: sin(x * y) + t
//	    frames: 12
//	    dt: 0.1
//	  - name: vase
//	    file: programs/vase.exp
//	    output: vase.jpg
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/picasso/pkg/raster"
	"github.com/lemonberrylabs/picasso/pkg/render"
)

// MaxSourceSize is the maximum manifest size in bytes.
const MaxSourceSize = 128 * 1024

// MaxJobs is the maximum number of renders per manifest.
const MaxJobs = 200

// Manifest is a parsed batch of render jobs.
type Manifest struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Format    string `toml:"format"`
	ImagesDir string `toml:"imagesDir"`
	OutDir    string `toml:"outDir"`
	Renders   []Job  `toml:"renders"`
}

// Job is one render. Exactly one of Expression and File is set.
type Job struct {
	Name       string  `toml:"name"`
	Expression string  `toml:"expression"`
	File       string  `toml:"file"`
	Output     string  `toml:"output"`
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
	Frames     int     `toml:"frames"`
	DT         float64 `toml:"dt"`
}

// ParseError represents an error encountered while reading a manifest.
type ParseError struct {
	Message  string
	Location string // e.g. "render 'swirl'" or "line 4"
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("manifest error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("manifest error: %s", e.Message)
}

// Load reads a manifest file, choosing the syntax from its extension
// (.toml for TOML, anything else YAML).
func Load(path string) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(src)
	}
	return Parse(src)
}

// Parse parses a YAML manifest.
func Parse(source []byte) (*Manifest, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("manifest size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, &ParseError{Message: "empty manifest"}
	}
	root := raw.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "manifest must be a mapping"}
	}

	m := &Manifest{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		val := root.Content[i+1]
		var err error
		switch key {
		case "width":
			m.Width, err = intFromNode(val)
		case "height":
			m.Height, err = intFromNode(val)
		case "format":
			m.Format, err = stringFromNode(val)
		case "imagesDir":
			m.ImagesDir, err = stringFromNode(val)
		case "outDir":
			m.OutDir, err = stringFromNode(val)
		case "renders":
			m.Renders, err = parseJobs(val)
		default:
			err = &ParseError{Message: fmt.Sprintf("unknown key '%s'", key), Location: line(root.Content[i])}
		}
		if err != nil {
			return nil, err
		}
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseTOML parses a TOML manifest.
func ParseTOML(source []byte) (*Manifest, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("manifest size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}
	m := &Manifest{}
	md, err := toml.Decode(string(source), m)
	if err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid TOML: %v", err)}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, &ParseError{Message: fmt.Sprintf("unknown key '%s'", undecoded[0])}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// parseJobs parses the renders sequence.
func parseJobs(node *yaml.Node) ([]Job, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, &ParseError{Message: "renders must be a sequence", Location: line(node)}
	}
	var jobs []Job
	for _, item := range node.Content {
		job, err := parseJob(item)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// parseJob parses a single render entry.
func parseJob(node *yaml.Node) (Job, error) {
	var job Job
	if node.Kind != yaml.MappingNode {
		return job, &ParseError{Message: "render entry must be a mapping", Location: line(node)}
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		var err error
		switch key {
		case "name":
			job.Name, err = stringFromNode(val)
		case "expression":
			job.Expression, err = stringFromNode(val)
		case "file":
			job.File, err = stringFromNode(val)
		case "output":
			job.Output, err = stringFromNode(val)
		case "width":
			job.Width, err = intFromNode(val)
		case "height":
			job.Height, err = intFromNode(val)
		case "frames":
			job.Frames, err = intFromNode(val)
		case "dt":
			job.DT, err = floatFromNode(val)
		default:
			err = &ParseError{Message: fmt.Sprintf("unknown key '%s' in render entry", key), Location: line(node.Content[i])}
		}
		if err != nil {
			return job, err
		}
	}
	return job, nil
}

// validate applies defaults and checks every job.
func (m *Manifest) validate() error {
	if m.Width == 0 {
		m.Width = render.DefaultWidth
	}
	if m.Height == 0 {
		m.Height = render.DefaultHeight
	}
	if m.Format == "" {
		m.Format = string(raster.FormatPNG)
	}
	format, err := raster.ParseFormat(m.Format)
	if err != nil {
		return &ParseError{Message: err.Error(), Location: "format"}
	}
	m.Format = string(format)
	if len(m.Renders) == 0 {
		return &ParseError{Message: "manifest must have at least one render"}
	}
	if len(m.Renders) > MaxJobs {
		return &ParseError{Message: fmt.Sprintf("%d renders exceeds maximum %d", len(m.Renders), MaxJobs)}
	}

	seen := make(map[string]bool, len(m.Renders))
	for i := range m.Renders {
		job := &m.Renders[i]
		loc := fmt.Sprintf("render %d", i+1)
		if job.Name == "" {
			return &ParseError{Message: "render must have a 'name'", Location: loc}
		}
		loc = fmt.Sprintf("render '%s'", job.Name)
		if seen[job.Name] {
			return &ParseError{Message: "duplicate render name", Location: loc}
		}
		seen[job.Name] = true
		if (job.Expression == "") == (job.File == "") {
			return &ParseError{Message: "exactly one of 'expression' or 'file' is required", Location: loc}
		}
		if job.Width == 0 {
			job.Width = m.Width
		}
		if job.Height == 0 {
			job.Height = m.Height
		}
		if err := render.CheckSize(job.Width, job.Height); err != nil {
			return &ParseError{Message: err.Error(), Location: loc}
		}
		if job.Frames < 0 {
			return &ParseError{Message: "frames must not be negative", Location: loc}
		}
		if job.Frames > 1 && job.DT == 0 {
			job.DT = 0.1
		}
		if job.Output == "" {
			ext := m.Format
			if job.Frames > 1 {
				ext = string(raster.FormatGIF)
			}
			job.Output = job.Name + "." + ext
		}
		if job.Frames <= 1 {
			if _, err := raster.FormatFromPath(job.Output); err != nil {
				return &ParseError{Message: err.Error(), Location: loc}
			}
		}
	}
	return nil
}

func line(node *yaml.Node) string {
	return fmt.Sprintf("line %d", node.Line)
}

// stringFromNode extracts a string from a scalar node.
func stringFromNode(node *yaml.Node) (string, error) {
	if node.Kind != yaml.ScalarNode {
		return "", &ParseError{Message: "expected a string", Location: line(node)}
	}
	return node.Value, nil
}

// intFromNode extracts an integer from a scalar node.
func intFromNode(node *yaml.Node) (int, error) {
	i, err := strconv.Atoi(node.Value)
	if node.Kind != yaml.ScalarNode || err != nil {
		return 0, &ParseError{Message: fmt.Sprintf("expected an integer, got %q", node.Value), Location: line(node)}
	}
	return i, nil
}

// floatFromNode extracts a float from a scalar node.
func floatFromNode(node *yaml.Node) (float64, error) {
	f, err := strconv.ParseFloat(node.Value, 64)
	if node.Kind != yaml.ScalarNode || err != nil {
		return 0, &ParseError{Message: fmt.Sprintf("expected a number, got %q", node.Value), Location: line(node)}
	}
	return f, nil
}
