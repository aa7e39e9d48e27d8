package pipeline

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bazokhan/arabic-itsm-dataset/internal/config"
	"github.com/bazokhan/arabic-itsm-dataset/internal/domain"
	"github.com/bazokhan/arabic-itsm-dataset/internal/fixes"
	"github.com/bazokhan/arabic-itsm-dataset/internal/observability"
	"github.com/bazokhan/arabic-itsm-dataset/internal/taxonomy"
	"github.com/bazokhan/arabic-itsm-dataset/internal/validate"
	"github.com/bazokhan/arabic-itsm-dataset/pkg/util"
)

// Driver runs the validation-and-merge pipeline: one pass over every part
// file, dedup and auto-repair, then the three output artifacts.
type Driver struct {
	cfg config.PipelineConfig
	log *zap.Logger
}

// Summary reports the outcome of one run.
type Summary struct {
	RunID        string
	Accepted     int
	Rejected     int
	Rejections   []*domain.RejectionRecord
	AllowedPaths []string
}

// NewDriver constructs the pipeline driver.
func NewDriver(cfg config.PipelineConfig, logger *zap.Logger) *Driver {
	return &Driver{cfg: cfg, log: logger}
}

// runState is the per-run mutable state: the seen-id set and the two
// accumulators. A fresh instance per invocation, nothing survives the run.
type runState struct {
	seen     map[string]struct{}
	accepted []*domain.Ticket
	rejected []*domain.RejectionRecord
	metrics  *observability.Metrics
}

// Run executes the pipeline. Fatal conditions (unloadable taxonomy, zero
// matching part files) abort before any artifact is written; every
// per-record problem becomes a rejection instead.
func (d *Driver) Run() (*Summary, error) {
	runID := uuid.NewString()
	log := d.log.With(zap.String("run_id", runID))

	if d.cfg.ApplyFixes {
		if err := fixes.NewMerger(log).Apply(d.cfg.InputGlob, d.cfg.OutRejected); err != nil {
			return nil, err
		}
	}

	idx, err := taxonomy.Load(d.cfg.TaxonomyPath)
	if err != nil {
		return nil, err
	}
	log.Info("taxonomy loaded",
		zap.String("source", d.cfg.TaxonomyPath), zap.Int("paths", idx.Len()))

	files, err := filepath.Glob(d.cfg.InputGlob)
	if err != nil {
		return nil, util.NewNoInputFilesError(d.cfg.InputGlob)
	}
	if len(files) == 0 {
		return nil, util.NewNoInputFilesError(d.cfg.InputGlob)
	}
	// Lexicographic file order decides which occurrence of a duplicate
	// ticket id wins arbitration.
	sort.Strings(files)

	state := &runState{
		seen:    map[string]struct{}{},
		metrics: observability.NewMetrics(),
	}
	for _, file := range files {
		if err := d.processFile(file, idx, state); err != nil {
			return nil, err
		}
		log.Debug("part file processed", zap.String("file", file))
	}

	if err := writeCleanJSONL(d.cfg.OutJSONL, state.accepted); err != nil {
		return nil, err
	}
	if err := writeCleanCSV(d.cfg.OutCSV, state.accepted); err != nil {
		return nil, err
	}
	if err := writeRejected(d.cfg.OutRejected, state.rejected); err != nil {
		return nil, err
	}

	log.Info("run complete",
		zap.Int("accepted", len(state.accepted)),
		zap.Int("rejected", len(state.rejected)),
		zap.Any("violation_counts", state.metrics.ViolationCounts()))

	return &Summary{
		RunID:        runID,
		Accepted:     len(state.accepted),
		Rejected:     len(state.rejected),
		Rejections:   state.rejected,
		AllowedPaths: idx.AllowedPaths(),
	}, nil
}

func (d *Driver) processFile(file string, idx *taxonomy.Index, state *runState) error {
	f, err := os.Open(file)
	if err != nil {
		return util.NewPipelineError("INPUT_READ_FAILED",
			"cannot read part file "+file, map[string]any{"file": file})
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++ // raw 1-based position, blanks included
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		rec, err := domain.ParseRecord(line)
		if err != nil {
			state.metrics.RecordViolations([]string{domain.CodeJSONParse})
			state.rejected = append(state.rejected,
				domain.NewParseRejection(file, lineNo, line))
			continue
		}

		errs := validate.Record(rec, idx)

		tid := rec.DedupKey()
		if _, dup := state.seen[tid]; dup {
			errs = append(errs, domain.CodeDuplicateTicketID)
		}

		// The one mutation allowed on an otherwise-invalid record:
		// recompute priority when the rule mismatch is the sole finding.
		if len(errs) == 1 && errs[0] == domain.CodePriorityRule {
			impact, impactOK := rec.IntField("impact")
			urgency, urgencyOK := rec.IntField("urgency")
			if impactOK && urgencyOK {
				fixed := validate.ComputePriority(impact, urgency)
				rec["priority"] = json.Number(strconv.Itoa(fixed))
				errs = nil
			}
		}

		if len(errs) > 0 {
			state.metrics.RecordViolations(errs)
			state.rejected = append(state.rejected,
				domain.NewRecordRejection(file, lineNo, errs, rec))
			continue
		}

		state.seen[tid] = struct{}{}

		ticket := domain.TicketFromRaw(rec)
		ticket.NormalizeTags()
		state.metrics.RecordAccepted()
		state.accepted = append(state.accepted, ticket)
	}
	if err := scanner.Err(); err != nil {
		return util.NewPipelineError("INPUT_READ_FAILED",
			"cannot read part file "+file, map[string]any{"file": file})
	}
	return nil
}
