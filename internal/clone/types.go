package clone

import (
	"time"
)

// JobStatus represents the lifecycle state of a clone job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusError    JobStatus = "error"
)

// IsTerminal reports whether the status permits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// Job represents the metadata persisted for each submitted clone request.
// Exactly one of ErrorDetail/ResultRef is set, and only once the job is
// terminal.
type Job struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	SourceURL   string     `json:"source_url"`
	ErrorDetail string     `json:"error_detail,omitempty"`
	ResultRef   string     `json:"result_ref,omitempty"`
	Submitted   time.Time  `json:"submitted_at"`
	Started     *time.Time `json:"started_at,omitempty"`
	Finished    *time.Time `json:"finished_at,omitempty"`
}

// Rect is an element bounding box in CSS pixels relative to the viewport
// origin at capture time.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the box area; zero for degenerate boxes.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// NodeStyle captures the computed style properties extracted per node.
type NodeStyle struct {
	FontFamily string  `json:"font_family"`
	FontSize   float64 `json:"font_size"`
	FontWeight string  `json:"font_weight"`
	Color      string  `json:"color"`
	Background string  `json:"background"`
	Display    string  `json:"display"`
}

// Node is a single extracted DOM element with its geometry and style.
type Node struct {
	Tag   string    `json:"tag"`
	Text  string    `json:"text"`
	Rect  Rect      `json:"rect"`
	Style NodeStyle `json:"style"`
	// Depth is the node's distance from the document root, used to order
	// blocks the way the document flows.
	Depth int `json:"depth"`
}

// Viewport holds the capture dimensions.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScrapeResult is the transient output of a headless scrape. It lives only
// for the duration of one orchestration task.
type ScrapeResult struct {
	URL            string
	FinalURL       string
	StatusCode     int
	Title          string
	DOM            string
	Nodes          []Node
	StylesheetURLs []string
	MetaTags       []string
	IconLinks      []string
	Viewport       Viewport
	FetchedAt      time.Time
	Duration       time.Duration
}

// Block is one representative region of the page after clustering.
type Block struct {
	// Role is a coarse hint: header, nav, main, section, footer.
	Role string `json:"role"`
	Tag  string `json:"tag"`
	Text string `json:"text"`
	Rect Rect   `json:"rect"`
	// Style is the representative node's style.
	Style NodeStyle `json:"style"`
	// Members counts how many extracted nodes collapsed into this block.
	Members int `json:"members"`
}

// LayoutSummary is the bounded structural digest handed to the synthesizer.
type LayoutSummary struct {
	Title    string   `json:"title"`
	Blocks   []Block  `json:"blocks"`
	Palette  []string `json:"palette"`
	Viewport Viewport `json:"viewport"`
}

// Empty reports whether the page yielded no usable structure. An empty
// summary is still a valid synthesizer input.
func (s LayoutSummary) Empty() bool {
	return len(s.Blocks) == 0
}

// Task is the unit of work carried on the queue for one job.
type Task struct {
	JobID     string `json:"job_id"`
	SourceURL string `json:"source_url"`
	Attempt   int    `json:"attempt"`
	Submitted int64  `json:"submitted"`
}

// Event is published when a job reaches a terminal state.
type Event struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Detail string    `json:"detail,omitempty"`
}
