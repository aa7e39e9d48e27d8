package fixes

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bazokhan/arabic-itsm-dataset/internal/domain"
)

// FixedSuffix is the naming convention marking a corrected part file:
// parts/part_001_fixed.jsonl holds replacements for parts/part_001.jsonl.
const FixedSuffix = "_fixed.jsonl"

// Merger applies externally corrected part files back into their origin
// files, then removes the stale correction and rejection artifacts.
//
// The merge is destructive and non-transactional: each origin file is
// committed independently, and a failure partway through leaves earlier
// files merged. With no fix files present the whole stage is a no-op.
type Merger struct {
	log *zap.Logger
}

// NewMerger constructs the stage.
func NewMerger(logger *zap.Logger) *Merger {
	return &Merger{log: logger}
}

// replacement is one corrected line keyed by ticket id; insertion order
// of the fix file is preserved so unmatched rows append deterministically.
type replacement struct {
	id       string
	line     string
	consumed bool
}

// Apply merges every fix file found next to the input glob into its
// origin file, deletes each fix file, and finally deletes the previous
// run's rejected artifact if present.
func (m *Merger) Apply(inputGlob, rejectedPath string) error {
	dir := filepath.Dir(inputGlob)
	fixFiles, err := filepath.Glob(filepath.Join(dir, "*"+FixedSuffix))
	if err != nil {
		return fmt.Errorf("discover fix files: %w", err)
	}
	if len(fixFiles) == 0 {
		m.log.Info("no fix files found, nothing to apply", zap.String("dir", dir))
		return nil
	}
	// Deterministic processing order, not left to glob internals.
	sort.Strings(fixFiles)

	for _, fixPath := range fixFiles {
		origin := strings.TrimSuffix(fixPath, FixedSuffix) + ".jsonl"
		if _, err := os.Stat(origin); err != nil {
			m.log.Warn("no origin found for fix file, skipping",
				zap.String("fix", fixPath))
			continue
		}

		if err := m.mergeOne(fixPath, origin); err != nil {
			return err
		}
		m.log.Info("merged fix file",
			zap.String("fix", fixPath), zap.String("origin", origin))
	}

	if _, err := os.Stat(rejectedPath); err == nil {
		if err := os.Remove(rejectedPath); err != nil {
			return fmt.Errorf("delete stale rejected file %s: %w", rejectedPath, err)
		}
		m.log.Info("deleted stale rejected file", zap.String("path", rejectedPath))
	}

	return nil
}

func (m *Merger) mergeOne(fixPath, origin string) error {
	replacements, err := loadReplacements(fixPath)
	if err != nil {
		return err
	}
	byID := make(map[string]*replacement, len(replacements))
	for _, r := range replacements {
		byID[r.id] = r
	}

	originFile, err := os.Open(origin)
	if err != nil {
		return fmt.Errorf("open origin %s: %w", origin, err)
	}

	var merged []string
	scanner := newLineScanner(originFile)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := domain.ParseRecord(line)
		if err != nil {
			// Malformed origin lines pass through verbatim.
			merged = append(merged, line)
			continue
		}
		if r, ok := byID[rec.TicketID()]; ok && !r.consumed {
			merged = append(merged, r.line)
			r.consumed = true
			continue
		}
		merged = append(merged, line)
	}
	scanErr := scanner.Err()
	originFile.Close()
	if scanErr != nil {
		return fmt.Errorf("read origin %s: %w", origin, scanErr)
	}

	// Corrected rows with new ticket ids append at the end, fix-file order.
	for _, r := range replacements {
		if !r.consumed {
			merged = append(merged, r.line)
		}
	}

	var sb strings.Builder
	for _, line := range merged {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(origin, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("rewrite origin %s: %w", origin, err)
	}
	if err := os.Remove(fixPath); err != nil {
		return fmt.Errorf("delete fix file %s: %w", fixPath, err)
	}
	return nil
}

// loadReplacements parses a fix file into insertion-ordered replacements.
// Unparseable lines and lines without a string ticket_id are dropped;
// fixes are best-effort by contract.
func loadReplacements(fixPath string) ([]*replacement, error) {
	f, err := os.Open(fixPath)
	if err != nil {
		return nil, fmt.Errorf("open fix file %s: %w", fixPath, err)
	}
	defer f.Close()

	var out []*replacement
	index := map[string]int{}
	scanner := newLineScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := domain.ParseRecord(line)
		if err != nil {
			continue
		}
		id := rec.TicketID()
		if id == "" {
			continue
		}
		if at, seen := index[id]; seen {
			// Later fixes for the same id win, keeping first position.
			out[at].line = line
			continue
		}
		index[id] = len(out)
		out = append(out, &replacement{id: id, line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fix file %s: %w", fixPath, err)
	}
	return out, nil
}

func newLineScanner(f *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return scanner
}
