package pipeline

import (
	"bufio"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/bazokhan/arabic-itsm-dataset/internal/domain"
	"github.com/bazokhan/arabic-itsm-dataset/pkg/util"
)

// utf8BOM makes the CSV open correctly in spreadsheet tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// baseColumns is the recommended tabular column order. preprocessed_ar is
// inserted after description_ar when any accepted record carries it.
var baseColumns = []string{
	"ticket_id", "created_at", "updated_at", "channel", "model",
	"dialect",
	"title_ar", "description_ar",
	"category_level_1", "category_level_2", "category_level_3", "category_path",
	"tags", "labels_json",
	"impact", "urgency", "priority", "sentiment",
}

func writeCleanJSONL(path string, tickets []*domain.Ticket) error {
	f, err := os.Create(path)
	if err != nil {
		return util.NewOutputWriteError(path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, t := range tickets {
		line, err := t.MarshalJSON()
		if err != nil {
			return util.NewOutputWriteError(path, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return util.NewOutputWriteError(path, err)
	}
	return nil
}

func writeCleanCSV(path string, tickets []*domain.Ticket) error {
	f, err := os.Create(path)
	if err != nil {
		return util.NewOutputWriteError(path, err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return util.NewOutputWriteError(path, err)
	}

	withPreprocessed := false
	for _, t := range tickets {
		if t.PreprocessedAr != nil {
			withPreprocessed = true
			break
		}
	}

	header := make([]string, 0, len(baseColumns)+1)
	for _, col := range baseColumns {
		header = append(header, col)
		if col == "description_ar" && withPreprocessed {
			header = append(header, domain.KeyPreprocessed)
		}
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return util.NewOutputWriteError(path, err)
	}
	for _, t := range tickets {
		row, err := csvRow(t, withPreprocessed)
		if err != nil {
			return util.NewOutputWriteError(path, err)
		}
		if err := w.Write(row); err != nil {
			return util.NewOutputWriteError(path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return util.NewOutputWriteError(path, err)
	}
	return nil
}

// csvRow flattens one ticket; tags and labels_json become their JSON text
// form in the tabular artifact only.
func csvRow(t *domain.Ticket, withPreprocessed bool) ([]string, error) {
	tagsJSON, err := domain.EncodeJSON(t.Tags)
	if err != nil {
		return nil, err
	}
	labelsJSON, err := domain.EncodeJSON(t.LabelsJSON)
	if err != nil {
		return nil, err
	}

	row := []string{
		t.TicketID, t.CreatedAt, t.UpdatedAt, string(t.Channel), t.Model,
		t.Dialect,
		t.TitleAr, t.DescriptionAr,
	}
	if withPreprocessed {
		pre := ""
		if t.PreprocessedAr != nil {
			pre = *t.PreprocessedAr
		}
		row = append(row, pre)
	}
	row = append(row,
		t.CategoryLevel1, t.CategoryLevel2, t.CategoryLevel3, t.CategoryPath,
		string(tagsJSON), string(labelsJSON),
		strconv.Itoa(t.Impact), strconv.Itoa(t.Urgency), strconv.Itoa(t.Priority),
		string(t.Sentiment),
	)
	return row, nil
}

// writeRejected emits the rejected artifact, or removes a stale one when
// the run had zero rejections.
func writeRejected(path string, rejected []*domain.RejectionRecord) error {
	if len(rejected) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return util.NewOutputWriteError(path, err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return util.NewOutputWriteError(path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range rejected {
		line, err := domain.EncodeJSON(r)
		if err != nil {
			return util.NewOutputWriteError(path, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return util.NewOutputWriteError(path, err)
	}
	return nil
}
