package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/blendex/internal/config"
	"github.com/kailas-cloud/blendex/internal/domain/record"
)

const maxLineBytes = 4 << 20

var (
	importBackend   string
	importBatchSize int
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Load JSON-lines records into a local backend",
	Long: `Reads one JSON record per line, {"id": ..., "title": ..., "fields": {...}},
from file or stdin and writes them into the primary or secondary backend.
Only bleve and redis backends accept writes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importBackend, "backend", rolePrimary, "target backend (primary, secondary)")
	importCmd.Flags().IntVar(&importBatchSize, "batch", 500, "records per write")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, logger, _, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var bc config.BackendConfig
	switch importBackend {
	case rolePrimary:
		bc = cfg.Backends.Primary
	case roleSecondary:
		bc = cfg.Backends.Secondary
	default:
		return fmt.Errorf("--backend must be primary or secondary, got %q", importBackend)
	}
	if importBatchSize <= 0 {
		return fmt.Errorf("--batch must be positive")
	}

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	w := newWiring(cfg, logger)
	defer w.Close()

	b, err := w.backend(cmd.Context(), importBackend, bc)
	if err != nil {
		return fmt.Errorf("%s backend: %w", importBackend, err)
	}
	if b.writer == nil {
		return fmt.Errorf("%s backend (%s) is read-only", importBackend, bc.Driver)
	}

	n, err := importRecords(cmd.Context(), in, b.writer, importBatchSize)
	if err != nil {
		return err
	}
	logger.Info("Import finished", zap.String("backend", importBackend), zap.Int("records", n))
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d records into %s\n", n, importBackend)
	return nil
}

// importRecords streams records from r into w in batches of size.
func importRecords(ctx context.Context, r io.Reader, w recordWriter, size int) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	var (
		batch []record.Record
		total int
		line  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.Write(ctx, batch); err != nil {
			return fmt.Errorf("write records ending at line %d: %w", line, err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		rec, err := parseRecordLine(raw)
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, rec)
		if len(batch) >= size {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return total, fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

type recordLine struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

// parseRecordLine decodes one record. Field values may be strings, numbers,
// booleans or arrays of those.
func parseRecordLine(raw []byte) (record.Record, error) {
	var rl recordLine
	if err := json.Unmarshal(raw, &rl); err != nil {
		return record.Record{}, fmt.Errorf("decode record: %w", err)
	}
	fields := make(map[string][]string, len(rl.Fields))
	for name, v := range rl.Fields {
		vals, err := fieldStrings(v)
		if err != nil {
			return record.Record{}, fmt.Errorf("field %s: %w", name, err)
		}
		if len(vals) > 0 {
			fields[name] = vals
		}
	}
	rec, err := record.New(rl.ID, rl.Title, rl.Score, fields)
	if err != nil {
		return record.Record{}, fmt.Errorf("record %q: %w", rl.ID, err)
	}
	return rec, nil
}

func fieldStrings(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{t}, nil
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}, nil
	case bool:
		return []string{strconv.FormatBool(t)}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, err := fieldStrings(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s...)
		}
		return out, nil
	default:
		return nil, errors.New("unsupported value type")
	}
}
