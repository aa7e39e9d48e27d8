package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bazokhan/arabic-itsm-dataset/internal/config"
	"github.com/bazokhan/arabic-itsm-dataset/internal/domain"
	"github.com/bazokhan/arabic-itsm-dataset/pkg/util"
)

const driverTaxonomy = `{"taxonomy":[
  {"l1":"Network","l2":"VPN","l3":["Connection Drop"],"tags_pool":["vpn"]},
  {"l1":"Software","l2":"Office Apps","l3":["Crash"]}
]}`

// record renders a valid ticket line with overrides applied.
func record(t *testing.T, id string, overrides map[string]any) string {
	t.Helper()
	base := map[string]any{
		"ticket_id":        id,
		"created_at":       "2024-05-01T10:00:00+03:00",
		"updated_at":       "2024-05-01T11:00:00+03:00",
		"channel":          "email",
		"model":            "test-model",
		"dialect":          "egyptian",
		"title_ar":         "مشكلة في الشبكة",
		"description_ar":   "الاتصال بيقطع باستمرار أثناء الشغل.",
		"category_level_1": "Network",
		"category_level_2": "VPN",
		"category_level_3": "Connection Drop",
		"category_path":    "Network > VPN > Connection Drop",
		"tags":             []string{"vpn", "network"},
		"labels_json":      map[string]any{"l1": "Network", "l2": "VPN", "l3": "Connection Drop", "tags": []string{"vpn"}},
		"impact":           3,
		"urgency":          4,
		"priority":         4,
		"sentiment":        "negative",
	}
	for k, v := range overrides {
		base[k] = v
	}
	line, err := json.Marshal(base)
	require.NoError(t, err)
	return string(line)
}

type fixture struct {
	dir string
	cfg config.PipelineConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "parts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taxonomy.json"), []byte(driverTaxonomy), 0o644))

	return &fixture{
		dir: dir,
		cfg: config.PipelineConfig{
			TaxonomyPath: filepath.Join(dir, "taxonomy.json"),
			InputGlob:    filepath.Join(dir, "parts", "part_*.jsonl"),
			OutJSONL:     filepath.Join(dir, "dataset_clean.jsonl"),
			OutCSV:       filepath.Join(dir, "dataset_clean.csv"),
			OutRejected:  filepath.Join(dir, "dataset_rejected.jsonl"),
		},
	}
}

func (f *fixture) writePart(t *testing.T, name string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "parts", name), []byte(content), 0o644))
}

func (f *fixture) run(t *testing.T) *Summary {
	t.Helper()
	summary, err := NewDriver(f.cfg, zap.NewNop()).Run()
	require.NoError(t, err)
	return summary
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := strings.TrimSuffix(string(raw), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestRun_AcceptsValidRecords(t *testing.T) {
	f := newFixture(t)
	f.writePart(t, "part_001.jsonl",
		record(t, "T1", nil),
		record(t, "T2", map[string]any{
			"category_level_1": "Software",
			"category_level_2": "Office Apps",
			"category_level_3": "Crash",
			"category_path":    "Software > Office Apps > Crash",
			"labels_json":      map[string]any{"l1": "Software", "l2": "Office Apps", "l3": "Crash", "tags": []string{}},
		}),
	)

	summary := f.run(t)

	assert.Equal(t, 2, summary.Accepted)
	assert.Equal(t, 0, summary.Rejected)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, []string{
		"Network > VPN > Connection Drop",
		"Software > Office Apps > Crash",
	}, summary.AllowedPaths)

	lines := readLines(t, f.cfg.OutJSONL)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"ticket_id":"T1"`)
	assert.Contains(t, lines[1], `"ticket_id":"T2"`)
	// Arabic kept verbatim in the artifact.
	assert.Contains(t, lines[0], "مشكلة في الشبكة")

	assert.NoFileExists(t, f.cfg.OutRejected)
}

func TestRun_DuplicateArbitration(t *testing.T) {
	f := newFixture(t)
	// Sorted file order decides the winner: part_001 beats part_002.
	f.writePart(t, "part_002.jsonl", record(t, "T1", map[string]any{"model": "late"}))
	f.writePart(t, "part_001.jsonl", record(t, "T1", map[string]any{"model": "early"}))

	summary := f.run(t)

	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.Rejected)

	lines := readLines(t, f.cfg.OutJSONL)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"model":"early"`)

	require.Len(t, summary.Rejections, 1)
	assert.Equal(t, []string{domain.CodeDuplicateTicketID}, summary.Rejections[0].Reason)
	assert.Contains(t, summary.Rejections[0].Source, "part_002.jsonl")
}

func TestRun_NonStringTicketIDs(t *testing.T) {
	t.Run("distinct numeric ids are not duplicates", func(t *testing.T) {
		f := newFixture(t)
		f.writePart(t, "part_001.jsonl",
			record(t, "", map[string]any{"ticket_id": 5}),
			record(t, "", map[string]any{"ticket_id": 6}),
		)

		summary := f.run(t)

		assert.Equal(t, 2, summary.Accepted)
		assert.Equal(t, 0, summary.Rejected)
	})

	t.Run("repeated numeric id is a duplicate", func(t *testing.T) {
		f := newFixture(t)
		f.writePart(t, "part_001.jsonl",
			record(t, "", map[string]any{"ticket_id": 5}),
			record(t, "", map[string]any{"ticket_id": 5}),
		)

		summary := f.run(t)

		assert.Equal(t, 1, summary.Accepted)
		require.Len(t, summary.Rejections, 1)
		assert.Equal(t, []string{domain.CodeDuplicateTicketID}, summary.Rejections[0].Reason)
	})

	t.Run("numeric id does not collide with its string form", func(t *testing.T) {
		f := newFixture(t)
		f.writePart(t, "part_001.jsonl",
			record(t, "5", nil),
			record(t, "", map[string]any{"ticket_id": 5}),
		)

		summary := f.run(t)

		assert.Equal(t, 2, summary.Accepted)
		assert.Equal(t, 0, summary.Rejected)
	})
}

func TestRun_AutoRepairPriority(t *testing.T) {
	f := newFixture(t)

	t.Run("sole priority mismatch is repaired", func(t *testing.T) {
		f.writePart(t, "part_001.jsonl",
			record(t, "T1", map[string]any{"impact": 1, "urgency": 2, "priority": 1}),
		)

		summary := f.run(t)

		assert.Equal(t, 1, summary.Accepted)
		assert.Equal(t, 0, summary.Rejected)

		lines := readLines(t, f.cfg.OutJSONL)
		require.Len(t, lines, 1)
		// (1+2)/2 rounds half up to 2.
		assert.Contains(t, lines[0], `"priority":2`)
	})

	t.Run("second violation blocks repair", func(t *testing.T) {
		f.writePart(t, "part_001.jsonl",
			record(t, "T1", map[string]any{"impact": 1, "urgency": 2, "priority": 1, "channel": "fax"}),
		)

		summary := f.run(t)

		assert.Equal(t, 0, summary.Accepted)
		assert.Equal(t, 1, summary.Rejected)
		require.Len(t, summary.Rejections, 1)
		assert.Equal(t,
			[]string{domain.CodeChannel, domain.CodePriorityRule},
			summary.Rejections[0].Reason)
	})
}

func TestRun_ParseFailuresAndLineNumbers(t *testing.T) {
	f := newFixture(t)
	f.writePart(t, "part_001.jsonl",
		record(t, "T1", nil),
		"",
		"{not valid json",
		record(t, "T2", nil),
	)

	summary := f.run(t)

	assert.Equal(t, 2, summary.Accepted)
	assert.Equal(t, 1, summary.Rejected)

	require.Len(t, summary.Rejections, 1)
	r := summary.Rejections[0]
	// Blank line at 2 still counts toward raw numbering.
	assert.Equal(t, 3, r.Line)
	assert.Equal(t, []string{domain.CodeJSONParse}, r.Reason)
	assert.Equal(t, "{not valid json", r.Raw)
	assert.Nil(t, r.Ticket)

	rejectedLines := readLines(t, f.cfg.OutRejected)
	require.Len(t, rejectedLines, 1)
	assert.Contains(t, rejectedLines[0], `"line":3`)
	assert.Contains(t, rejectedLines[0], `"raw":"{not valid json"`)
}

func TestRun_TagNormalization(t *testing.T) {
	f := newFixture(t)
	f.writePart(t, "part_001.jsonl",
		record(t, "T1", map[string]any{"tags": []string{" vpn ", "", "  ", "network"}}),
	)

	f.run(t)

	lines := readLines(t, f.cfg.OutJSONL)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"tags":["vpn","network"]`)
}

func TestRun_FatalConditions(t *testing.T) {
	t.Run("no input files", func(t *testing.T) {
		f := newFixture(t)

		_, err := NewDriver(f.cfg, zap.NewNop()).Run()
		require.Error(t, err)

		var perr *util.PipelineError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "NO_INPUT_FILES", perr.Code)
		// Aborts before any artifact is written.
		assert.NoFileExists(t, f.cfg.OutJSONL)
		assert.NoFileExists(t, f.cfg.OutCSV)
	})

	t.Run("unreadable taxonomy", func(t *testing.T) {
		f := newFixture(t)
		f.writePart(t, "part_001.jsonl", record(t, "T1", nil))
		require.NoError(t, os.WriteFile(f.cfg.TaxonomyPath, []byte("{"), 0o644))

		_, err := NewDriver(f.cfg, zap.NewNop()).Run()
		require.Error(t, err)

		var perr *util.PipelineError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "TAXONOMY_LOAD_FAILED", perr.Code)
		assert.NoFileExists(t, f.cfg.OutJSONL)
	})
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.writePart(t, "part_001.jsonl",
		record(t, "T1", nil),
		record(t, "T2", map[string]any{"channel": "fax"}),
	)

	f.run(t)
	firstJSONL, err := os.ReadFile(f.cfg.OutJSONL)
	require.NoError(t, err)
	firstCSV, err := os.ReadFile(f.cfg.OutCSV)
	require.NoError(t, err)
	firstRejected, err := os.ReadFile(f.cfg.OutRejected)
	require.NoError(t, err)

	f.run(t)
	secondJSONL, err := os.ReadFile(f.cfg.OutJSONL)
	require.NoError(t, err)
	secondCSV, err := os.ReadFile(f.cfg.OutCSV)
	require.NoError(t, err)
	secondRejected, err := os.ReadFile(f.cfg.OutRejected)
	require.NoError(t, err)

	assert.Equal(t, firstJSONL, secondJSONL)
	assert.Equal(t, firstCSV, secondCSV)
	assert.Equal(t, firstRejected, secondRejected)
}

func TestRun_StaleRejectedRemoved(t *testing.T) {
	f := newFixture(t)
	f.writePart(t, "part_001.jsonl", record(t, "T1", nil))
	require.NoError(t, os.WriteFile(f.cfg.OutRejected, []byte("stale\n"), 0o644))

	summary := f.run(t)

	assert.Equal(t, 0, summary.Rejected)
	assert.NoFileExists(t, f.cfg.OutRejected)
}

func TestRun_CSVArtifact(t *testing.T) {
	f := newFixture(t)
	f.writePart(t, "part_001.jsonl",
		record(t, "T1", nil),
		record(t, "T2", map[string]any{"preprocessed_ar": "نص منقح"}),
	)

	f.run(t)

	raw, err := os.ReadFile(f.cfg.OutCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "\xef\xbb\xbf"), "CSV starts with UTF-8 BOM")

	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(string(raw), "\xef\xbb\xbf"), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t,
		"ticket_id,created_at,updated_at,channel,model,dialect,title_ar,description_ar,"+
			"preprocessed_ar,category_level_1,category_level_2,category_level_3,category_path,"+
			"tags,labels_json,impact,urgency,priority,sentiment",
		lines[0])
	// tags land as JSON text in the tabular artifact.
	assert.Contains(t, lines[1], `"[""vpn"",""network""]"`)
}

func TestRun_ApplyFixesPrePass(t *testing.T) {
	f := newFixture(t)
	f.cfg.ApplyFixes = true
	f.writePart(t, "part_001.jsonl",
		record(t, "T1", map[string]any{"channel": "fax"}),
	)
	// The fix replaces the bad record before the main pass.
	fixPath := filepath.Join(f.dir, "parts", "part_001_fixed.jsonl")
	require.NoError(t, os.WriteFile(fixPath, []byte(record(t, "T1", nil)+"\n"), 0o644))

	summary := f.run(t)

	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 0, summary.Rejected)
	assert.NoFileExists(t, fixPath)
}

func TestRun_EndToEndRepairExample(t *testing.T) {
	f := newFixture(t)
	f.writePart(t, "part_001.jsonl", record(t, "T1", map[string]any{
		"impact": 1, "urgency": 2, "priority": 1,
	}))

	summary := f.run(t)
	require.Equal(t, 1, summary.Accepted)

	lines := readLines(t, f.cfg.OutJSONL)
	require.Len(t, lines, 1)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &out))
	assert.Equal(t, float64(2), out["priority"])
}

func TestRun_MissingKeysExclusive(t *testing.T) {
	f := newFixture(t)
	line := fmt.Sprintf(`{"ticket_id":%q,"impact":1}`, "T1")
	f.writePart(t, "part_001.jsonl", line)

	summary := f.run(t)

	require.Len(t, summary.Rejections, 1)
	for _, code := range summary.Rejections[0].Reason {
		assert.True(t, strings.HasPrefix(code, "missing:"), "unexpected code %s", code)
	}
	assert.Len(t, summary.Rejections[0].Reason, len(domain.RequiredKeys)-2)
}
