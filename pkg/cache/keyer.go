package cache

import "time"

// Keyer builds cache keys for the artifacts derived from an assembly.
type Keyer interface {
	// TraceKey identifies a simulation trace.
	TraceKey(assemblyHash string, opts TraceKeyOpts) string
	// GraphKey identifies a rendered constraint graph.
	GraphKey(assemblyHash string, opts GraphKeyOpts) string
}

// TraceKeyOpts lists everything besides the assembly that changes a trace.
type TraceKeyOpts struct {
	Requests []string `json:"requests"` // canonical request descriptions, in order
	Speed    float64  `json:"speed"`
	Mode     string   `json:"mode"`
	Step     float64  `json:"step"` // tick duration in seconds
	MaxTicks int      `json:"max_ticks"`
}

// GraphKeyOpts lists everything besides the assembly that changes a graph
// rendering.
type GraphKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// DefaultKeyer hashes the assembly hash together with the options.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// TraceKey returns "trace:<sha256>".
func (DefaultKeyer) TraceKey(assemblyHash string, opts TraceKeyOpts) string {
	return hashKey("trace", assemblyHash, opts)
}

// GraphKey returns "graph:<sha256>".
func (DefaultKeyer) GraphKey(assemblyHash string, opts GraphKeyOpts) string {
	return hashKey("graph", assemblyHash, opts)
}

// Default TTLs per artifact type.
const (
	TTLTrace = 7 * 24 * time.Hour
	TTLGraph = 30 * 24 * time.Hour
)
