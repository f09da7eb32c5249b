package runmanager

import "astpatch.dev/astpatch/internal/applier"

// TouchedFile is spec.md §3's "Touched file": the full record of one
// file referenced during a run, keyed by canonical absolute path.
type TouchedFile struct {
	Path         string // canonical absolute path
	Rel          string // relative to root
	Before       []byte
	After        []byte
	CompileOK    bool
	CompileError string
	Mutated      bool // false for LIST_TARGETS and no-op skips
}

// ManifestEntry is one touched file's persisted record, spec.md §6.
type ManifestEntry struct {
	Rel          string `json:"rel"`
	SnapshotRel  string `json:"snapshot_rel"`
	BeforeSHA    string `json:"before_sha"`
	AfterSHA     string `json:"after_sha"`
	CompileOK    bool   `json:"compile_ok"`
	CompileError string `json:"compile_error,omitempty"`
}

// ResultRecord is one operation's manifest-facing record: an
// applier.Result plus the run-local fields spec.md §3 groups under
// "Operation result" (kind, target, file, range already live on
// applier.Result).
type ResultRecord struct {
	Kind       string `json:"kind"`
	Target     string `json:"target"`
	File       string `json:"file"`
	RangeStart int    `json:"range_start,omitempty"`
	RangeEnd   int    `json:"range_end,omitempty"`
	Status     string `json:"status"`
	HashBefore string `json:"hash_before,omitempty"`
	HashAfter  string `json:"hash_after,omitempty"`
	CompileOK  bool   `json:"compile_ok"`
	Message    string `json:"message,omitempty"`
}

func toResultRecord(r applier.Result) ResultRecord {
	return ResultRecord{
		Kind:       r.Kind.String(),
		Target:     r.Target,
		File:       r.File,
		RangeStart: r.Range.Start,
		RangeEnd:   r.Range.End,
		Status:     r.Status.String(),
		HashBefore: r.HashBefore,
		HashAfter:  r.HashAfter,
		CompileOK:  r.CompileOK,
		Message:    r.Message,
	}
}

// Manifest is spec.md §6's manifest.json shape.
type Manifest struct {
	Stamp     string          `json:"stamp"`
	Root      string          `json:"root"`
	BundleSHA string          `json:"bundle_sha"`
	Touched   []ManifestEntry `json:"touched"`
	Results   []ResultRecord  `json:"results"`
}
