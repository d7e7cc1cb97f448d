package etl

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// Parquet codecs for the silver and gold tables. Tables are encoded fully
// in memory and uploaded as one object, matching the lake's overwrite-only
// write semantics.

// silverColumnsMetaKey is the footer key carrying the silver column list.
// Presence of a column is a property of the projection, not of the values:
// a column can be present with every cell empty, and that distinction must
// survive the round trip.
const silverColumnsMetaKey = "ridelake.columns"

// EncodeSilver serializes the silver table to parquet bytes. The column list
// rides along in the file footer.
func EncodeSilver(clean *CleanTable) ([]byte, error) {
	meta := map[string]string{silverColumnsMetaKey: strings.Join(clean.Columns, ",")}
	return encodeParquet(clean.Records, new(CleanRecord), meta)
}

// DecodeSilver reads parquet bytes back into a CleanTable, restoring the
// column list from the footer.
func DecodeSilver(data []byte) (*CleanTable, error) {
	var records []CleanRecord
	meta, err := decodeParquet(data, new(CleanRecord), &records)
	if err != nil {
		return nil, err
	}

	var columns []string
	if joined, ok := meta[silverColumnsMetaKey]; ok && joined != "" {
		columns = strings.Split(joined, ",")
	}
	return &CleanTable{Columns: columns, Records: records}, nil
}

// EncodeGold serializes the gold feature table to parquet bytes.
func EncodeGold(rows []FeatureRow) ([]byte, error) {
	return encodeParquet(rows, new(FeatureRow), nil)
}

// DecodeGold reads parquet bytes back into gold feature rows.
func DecodeGold(data []byte) ([]FeatureRow, error) {
	var rows []FeatureRow
	if _, err := decodeParquet(data, new(FeatureRow), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// encodeParquet writes rows into an in-memory parquet file using prototype
// for schema reflection. meta entries are recorded as footer key-value
// metadata.
func encodeParquet[T any](rows []T, prototype *T, meta map[string]string) (data []byte, err error) {
	buf := new(bytes.Buffer)

	np := int64(len(rows))
	if np == 0 {
		np = 1
	}
	pw, werr := writer.NewParquetWriterFromWriter(buf, prototype, np)
	if werr != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", werr)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for key, value := range meta {
		value := value
		pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata,
			&parquet.KeyValue{Key: key, Value: &value})
	}

	var multiErr error
	for _, row := range rows {
		if werr := pw.Write(row); werr != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("failed to write parquet row: %w", werr))
			break
		}
	}

	// WriteStop can panic inside the library; convert that to an error
	// instead of taking the stage down with a raw trace.
	func() {
		defer func() {
			if r := recover(); r != nil {
				multiErr = multierror.Append(multiErr, fmt.Errorf("parquet writer panicked during WriteStop: %v", r))
			}
		}()
		if werr := pw.WriteStop(); werr != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("failed to stop parquet writer: %w", werr))
		}
	}()

	if multiErr != nil {
		return nil, multiErr
	}
	return buf.Bytes(), nil
}

// decodeParquet reads an in-memory parquet file into out, which must be a
// pointer to a slice of the prototype's type, and returns the footer
// key-value metadata.
func decodeParquet[T any](data []byte, prototype *T, out *[]T) (map[string]string, error) {
	fr, err := buffer.NewBufferFile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet buffer: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, prototype, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]T, num)
	if num > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	*out = rows

	meta := make(map[string]string)
	for _, kv := range pr.Footer.KeyValueMetadata {
		if kv != nil && kv.Value != nil {
			meta[kv.Key] = *kv.Value
		}
	}
	return meta, nil
}
