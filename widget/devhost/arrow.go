// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devhost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/bureau-foundation/bureau-widget/widget/protocol"
)

// TableFromArrow converts an Arrow table to columnar table data. Cells
// of common primitive types keep their Go type; other types are
// rendered as strings. Nulls become nil.
func TableFromArrow(table arrow.Table) protocol.TableData {
	data := make(protocol.TableData, table.NumCols())
	schema := table.Schema()
	for i := range schema.NumFields() {
		data[schema.Field(i).Name] = make([]any, 0, table.NumRows())
	}

	reader := array.NewTableReader(table, table.NumRows())
	defer reader.Release()
	for reader.Next() {
		appendRecord(data, reader.Record())
	}
	return data
}

func appendRecord(data protocol.TableData, record arrow.Record) {
	for i, column := range record.Columns() {
		name := record.ColumnName(i)
		for row := range column.Len() {
			data[name] = append(data[name], cellValue(column, row))
		}
	}
}

func cellValue(column arrow.Array, row int) any {
	if column.IsNull(row) {
		return nil
	}
	switch typed := column.(type) {
	case *array.Int64:
		return typed.Value(row)
	case *array.Int32:
		return int64(typed.Value(row))
	case *array.Int16:
		return int64(typed.Value(row))
	case *array.Int8:
		return int64(typed.Value(row))
	case *array.Uint32:
		return int64(typed.Value(row))
	case *array.Float64:
		return typed.Value(row)
	case *array.Float32:
		return float64(typed.Value(row))
	case *array.Boolean:
		return typed.Value(row)
	case *array.String:
		return typed.Value(row)
	case *array.LargeString:
		return typed.Value(row)
	default:
		return column.ValueStr(row)
	}
}

// ReadArrowStream reads an Arrow IPC stream into table data.
func ReadArrowStream(r io.Reader) (protocol.TableData, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("opening arrow stream: %w", err)
	}
	defer reader.Release()

	schema := reader.Schema()
	data := make(protocol.TableData, schema.NumFields())
	for i := range schema.NumFields() {
		data[schema.Field(i).Name] = []any{}
	}
	for reader.Next() {
		appendRecord(data, reader.Record())
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading arrow stream: %w", err)
	}
	return data, nil
}

// LoadArrowFile reads an Arrow IPC stream file.
func LoadArrowFile(path string) (protocol.TableData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()
	data, err := ReadArrowStream(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// LoadParquetFile reads every row group of a Parquet file.
func LoadParquetFile(ctx context.Context, path string) (protocol.TableData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	parquetFile, err := file.NewParquetReader(f, file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, fmt.Errorf("opening parquet file %s: %w", path, err)
	}
	defer parquetFile.Close()

	mem := memory.NewGoAllocator()
	reader, err := pqarrow.NewFileReader(parquetFile, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow reader for %s: %w", path, err)
	}
	table, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading parquet table %s: %w", path, err)
	}
	defer table.Release()
	return TableFromArrow(table), nil
}
