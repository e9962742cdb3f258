package faqrepo

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

// Column headers accepted in CSV corpora. The second pair matches the
// spreadsheet export used by support teams.
var (
	questionHeaders = []string{"question", "user query"}
	answerHeaders   = []string{"answer", "product responses"}
)

// FileSource reads the corpus from a .csv, .json or .yaml file.
type FileSource struct {
	path string
}

// NewFileSource constructs a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load parses the file according to its extension.
func (s *FileSource) Load(_ context.Context) ([]faq.Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var entries []faq.Entry
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".csv":
		entries, err = parseCSV(f)
	case ".json":
		err = json.NewDecoder(f).Decode(&entries)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&entries)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return nil, fmt.Errorf("unsupported corpus format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", s.path, err)
	}
	return clean(entries), nil
}

func parseCSV(r io.Reader) ([]faq.Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	qCol, aCol := -1, -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if qCol < 0 && slices.Contains(questionHeaders, name) {
			qCol = i
		}
		if aCol < 0 && slices.Contains(answerHeaders, name) {
			aCol = i
		}
	}
	if qCol < 0 {
		return nil, fmt.Errorf("missing question column in header %v", header)
	}

	var entries []faq.Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		entry := faq.Entry{Question: field(record, qCol)}
		if aCol >= 0 {
			entry.Answer = field(record, aCol)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func clean(entries []faq.Entry) []faq.Entry {
	out := make([]faq.Entry, 0, len(entries))
	for _, e := range entries {
		e.Question = strings.TrimSpace(e.Question)
		e.Answer = strings.TrimSpace(e.Answer)
		if e.Question == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

var _ faq.CorpusSource = (*FileSource)(nil)
