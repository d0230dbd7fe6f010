package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leengari/tablestore/internal/config"
	"github.com/leengari/tablestore/internal/domain/data"
	"github.com/leengari/tablestore/internal/domain/schema"
	"github.com/leengari/tablestore/internal/logging"
	"github.com/leengari/tablestore/internal/metrics"
	"github.com/leengari/tablestore/internal/ndarray"
	"github.com/leengari/tablestore/internal/storage/dialect"
	"github.com/leengari/tablestore/internal/storage/engine"
	"github.com/leengari/tablestore/internal/storage/sqlstore"
)

const usage = `usage: tablestore [global flags] <command> [flags]

commands:
  create  -table NAME -columns a:INT,b:NDARRAY
  drop    -table NAME
  write   -table NAME -columns ... < rows.jsonl
  read    -table NAME -columns ... [-batch-mem-size N]
  delete  -table NAME -columns ... -where '{"a": 5}'
  rename  -table NAME -to NEW

global flags:`

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	logger *slog.Logger
	eng    *sqlstore.Engine
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	global := flag.NewFlagSet("tablestore", flag.ContinueOnError)
	configPath := global.String("config", "", "YAML or TOML config file")
	dialectName := global.String("dialect", "", "override store.dialect")
	dsn := global.String("dsn", "", "override store.dsn")
	metricsOut := global.String("metrics-out", "", "write Prometheus metrics to this file after the command")
	global.Usage = func() {
		fmt.Fprintln(global.Output(), usage)
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	cfg, err := loadConfig(*configPath, *dialectName, *dsn)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.SetupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	conn, err := dialect.Open(cfg.Store.Dialect, cfg.Store.DSN, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	if cfg.Store.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.Store.MaxOpenConns)
	}

	var (
		m   *metrics.Metrics
		reg *prometheus.Registry
	)
	if *metricsOut != "" {
		reg = prometheus.NewRegistry()
		if m, err = metrics.New(cfg.Metrics.Namespace, reg); err != nil {
			return err
		}
	}
	codec, _ := ndarray.ByName(cfg.Array.Codec)

	eng, err := sqlstore.New(conn,
		sqlstore.WithLogger(logger),
		sqlstore.WithMetrics(m),
		sqlstore.WithArrayCodec(codec),
		sqlstore.WithBatchMemSize(cfg.Read.BatchMemSize),
		sqlstore.WithSampleRows(cfg.Read.SampleRows),
		sqlstore.WithCacheSize(cfg.Cache.Size),
		sqlstore.WithObserver(engine.NewLoggingObserver(logger)),
	)
	if err != nil {
		return err
	}

	c := &cli{stdin: stdin, stdout: stdout, logger: logger, eng: eng}
	err = c.dispatch(ctx, global.Arg(0), global.Args()[1:])
	if reg != nil {
		if werr := prometheus.WriteToTextfile(*metricsOut, reg); werr != nil {
			return errors.Join(err, fmt.Errorf("write metrics: %w", werr))
		}
	}
	return err
}

func (c *cli) dispatch(ctx context.Context, cmd string, rest []string) error {
	switch cmd {
	case "create":
		return c.create(ctx, rest)
	case "drop":
		return c.drop(ctx, rest)
	case "write":
		return c.write(ctx, rest)
	case "read":
		return c.read(ctx, rest)
	case "delete":
		return c.delete(ctx, rest)
	case "rename":
		return c.rename(ctx, rest)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func loadConfig(path, dialectName, dsn string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if dialectName != "" {
		cfg.Store.Dialect = dialectName
	}
	if dsn != "" {
		cfg.Store.DSN = dsn
	}
	return cfg, cfg.Validate()
}

// tableFlags registers the flags every command shares.
func tableFlags(name string) (*flag.FlagSet, *string, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	table := fs.String("table", "", "table name")
	columns := fs.String("columns", "", "comma separated name:TYPE list")
	return fs, table, columns
}

// parseTable builds a descriptor from "a:INT,b:NDARRAY".
func parseTable(name, columns string) (schema.Table, error) {
	if name == "" {
		return schema.Table{}, errors.New("-table is required")
	}
	tbl := schema.Table{Name: name}
	if strings.TrimSpace(columns) == "" {
		return tbl, nil
	}
	for _, def := range strings.Split(columns, ",") {
		colName, typ, ok := strings.Cut(strings.TrimSpace(def), ":")
		if !ok {
			return schema.Table{}, fmt.Errorf("column %q: want name:TYPE", def)
		}
		ct, err := schema.ParseColumnType(typ)
		if err != nil {
			return schema.Table{}, err
		}
		tbl.Columns = append(tbl.Columns, schema.Column{Name: colName, Type: ct})
	}
	return tbl, tbl.Validate()
}

func (c *cli) create(ctx context.Context, args []string) error {
	fs, table, columns := tableFlags("create")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tbl, err := parseTable(*table, *columns)
	if err != nil {
		return err
	}
	p, err := c.eng.Create(ctx, tbl)
	if err != nil {
		return err
	}
	return json.NewEncoder(c.stdout).Encode(p)
}

func (c *cli) drop(ctx context.Context, args []string) error {
	fs, table, columns := tableFlags("drop")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tbl, err := parseTable(*table, *columns)
	if err != nil {
		return err
	}
	return json.NewEncoder(c.stdout).Encode(map[string]bool{"dropped": c.eng.Drop(ctx, tbl)})
}

func (c *cli) write(ctx context.Context, args []string) error {
	fs, table, columns := tableFlags("write")
	chunk := fs.Int("chunk", 1000, "rows per write call")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tbl, err := parseTable(*table, *columns)
	if err != nil {
		return err
	}
	if *chunk <= 0 {
		return errors.New("-chunk must be positive")
	}

	dec := json.NewDecoder(bufio.NewReader(c.stdin))
	dec.UseNumber()

	total := 0
	rows := make([]data.Row, 0, *chunk)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if err := c.eng.Write(ctx, tbl, data.FromRows(rows)); err != nil {
			return err
		}
		total += len(rows)
		rows = make([]data.Row, 0, *chunk)
		return nil
	}
	for {
		var row map[string]interface{}
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("row %d: %w", total+len(rows)+1, err)
		}
		rows = append(rows, data.Row(row))
		if len(rows) == *chunk {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	c.logger.Info("rows written", "table", tbl.Name, "rows", total)
	return json.NewEncoder(c.stdout).Encode(map[string]int{"written": total})
}

func (c *cli) read(ctx context.Context, args []string) error {
	fs, table, columns := tableFlags("read")
	memSize := fs.Int64("batch-mem-size", 0, "batch ceiling in bytes (0 uses read.batch_mem_size)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tbl, err := parseTable(*table, *columns)
	if err != nil {
		return err
	}
	seq, err := c.eng.Read(ctx, tbl, *memSize)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.stdout)
	for b, err := range seq {
		if err != nil {
			return err
		}
		out := make([]map[string]interface{}, b.Len())
		for i, row := range b.Rows() {
			out[i] = jsonRow(row)
		}
		if err := enc.Encode(map[string]interface{}{"rows": out}); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) delete(ctx context.Context, args []string) error {
	fs, table, columns := tableFlags("delete")
	where := fs.String("where", "{}", "JSON object of column equality conditions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tbl, err := parseTable(*table, *columns)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(*where))
	dec.UseNumber()
	var predicate map[string]interface{}
	if err := dec.Decode(&predicate); err != nil {
		return fmt.Errorf("-where: %w", err)
	}
	return c.eng.Delete(ctx, tbl, predicate)
}

func (c *cli) rename(ctx context.Context, args []string) error {
	fs, table, columns := tableFlags("rename")
	to := fs.String("to", "", "new table name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tbl, err := parseTable(*table, *columns)
	if err != nil {
		return err
	}
	return c.eng.Rename(ctx, tbl, *to)
}

// jsonRow replaces arrays with nested slices so they encode as JSON arrays.
func jsonRow(row data.Row) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		if arr, ok := v.(*ndarray.Array); ok {
			out[k] = arr.ToSlice()
			continue
		}
		out[k] = v
	}
	return out
}
