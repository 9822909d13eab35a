// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/kv"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/exec"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/util/humanizeutil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var loadCmd = &cobra.Command{
	Use:   "load --schema <file> [--data <file>]",
	Short: "create the tables of a schema and insert rows",
	Long: `
Creates the tables declared in the schema file and inserts the rows of
the data file, all in one transaction. The data file lists, for each
table, its rows as lists of column values:

  - table: customer
    rows:
      - [1, alice]
      - [2, bob]
`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

// tableData is the rows of one table in a data file.
type tableData struct {
	Table string          `yaml:"table"`
	Rows  [][]interface{} `yaml:"rows"`
}

func parseData(in []byte) ([]tableData, error) {
	var data []tableData
	dec := yaml.NewDecoder(bytes.NewReader(in))
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return nil, errors.Wrap(err, "parsing data")
	}
	return data, nil
}

// makeInsert returns the operator inserting the rows of d.
func makeInsert(s *catalog.Schema, d tableData) (*exec.Insert, error) {
	t, err := s.TableByName(d.Table)
	if err != nil {
		return nil, err
	}
	rows := make([][]exec.Expr, len(d.Rows))
	for i, vals := range d.Rows {
		if len(vals) != len(t.Columns) {
			return nil, errors.Newf("row %d of %s has %d values, expected %d",
				i+1, t.Name, len(vals), len(t.Columns))
		}
		rows[i] = make([]exec.Expr, len(vals))
		for j, v := range vals {
			datum, err := tree.MakeDatum(t.Columns[j].Type, v)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d of %s, column %s", i+1, t.Name, t.Columns[j].Name)
			}
			rows[i][j] = &exec.Literal{Datum: datum}
		}
	}
	values, err := exec.NewValues(rowenc.NewTableRowType(t), rows)
	if err != nil {
		return nil, err
	}
	return exec.NewInsert(values, t), nil
}

func runLoad(cmd *cobra.Command, _ []string) error {
	if cliCtx.schemaFile == "" {
		return errors.New("no schema given: use --schema")
	}
	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "schema version %d: %d tables\n", e.schema().Version(), len(e.schema().Tables()))
	if cliCtx.dataFile == "" {
		return nil
	}

	in, err := os.ReadFile(cliCtx.dataFile)
	if err != nil {
		return errors.Wrap(err, "reading data")
	}
	data, err := parseData(in)
	if err != nil {
		return errors.Wrapf(err, "in %s", cliCtx.dataFile)
	}
	ops := make([]*exec.Insert, len(data))
	for i, d := range data {
		if ops[i], err = makeInsert(e.schema(), d); err != nil {
			return err
		}
	}

	var results []exec.UpdateResult
	if err := e.db.Txn(ctx, func(ctx context.Context, txn *kv.Txn) error {
		results = results[:0]
		for _, op := range ops {
			res, err := op.Run(ctx, e.newQueryContext(txn))
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	}); err != nil {
		return err
	}
	var total exec.UpdateResult
	for i, res := range results {
		fmt.Fprintf(w, "%s: %s\n", ops[i].Table.Name, res)
		total.RowsTouched += res.RowsTouched
		total.RowsModified += res.RowsModified
	}
	fmt.Fprintf(w, "total: %s rows inserted, store size %s\n",
		humanizeutil.Count(int64(total.RowsModified)), humanizeutil.IBytes(int64(e.eng.DiskUsage())))
	return nil
}
