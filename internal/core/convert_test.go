package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return testTS }

func newTestConverter(opts ...ConverterOption) *Converter {
	return NewConverter(Options{Now: fixedNow}, opts...)
}

func csvFile(name, body string) UploadedFile {
	return UploadedFile{Name: name, Data: []byte(body), Size: int64(len(body))}
}

type recordingObserver struct {
	mu      sync.Mutex
	batches []*BatchResult
}

func (o *recordingObserver) ObserveBatch(b *BatchResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches = append(o.batches, b)
}

type failingRecorder struct {
	calls int
}

func (r *failingRecorder) RecordBatch(context.Context, *BatchResult) error {
	r.calls++
	return errors.New("database unavailable")
}

func TestConvertBatch_SingleFileNoArchive(t *testing.T) {
	batch, err := newTestConverter().ConvertBatch(context.Background(), []UploadedFile{
		csvFile("people.csv", "name,age\nAnn,30\nBo,\n"),
	})
	require.NoError(t, err)
	require.Len(t, batch.Files, 1)

	out := batch.Files[0]
	assert.Equal(t, StatusConverted, out.Status)
	assert.Nil(t, out.Err)
	assert.Equal(t, ',', out.Delimiter)
	assert.Equal(t, SummaryStats{RowCount: 2, ColumnCount: 2, MissingCount: 1}, out.Summary)
	require.NotNil(t, out.Result)
	assert.Equal(t, "people_20240102_030405.xlsx", out.Result.FileName)
	assert.Equal(t, MimeXLSX, out.Result.MimeType)

	assert.Nil(t, batch.Archive, "one converted file must not produce an archive")
	assert.Nil(t, batch.ArchiveErr)
	assert.Equal(t, testTS, batch.StartedAt)
}

func TestConvertBatch_TwoFilesArchive(t *testing.T) {
	batch, err := newTestConverter().ConvertBatch(context.Background(), []UploadedFile{
		csvFile("a.csv", "x;y\n1;2\n"),
		csvFile("b.csv", "x|y\n1|2\n"),
	})
	require.NoError(t, err)
	require.Len(t, batch.Converted(), 2)
	require.NotNil(t, batch.Archive)

	assert.Equal(t, "converted_files_20240102_030405.zip", batch.Archive.FileName)
	assert.Equal(t, MimeZIP, batch.Archive.MimeType)

	entries := readArchive(t, batch.Archive.Data)
	assert.Len(t, entries, 2)
	assert.True(t, bytes.Equal(batch.Files[0].Result.Data, entries["a_20240102_030405.xlsx"]))
	assert.True(t, bytes.Equal(batch.Files[1].Result.Data, entries["b_20240102_030405.xlsx"]))
}

func TestConvertBatch_MalformedMiddleFile(t *testing.T) {
	batch, err := newTestConverter().ConvertBatch(context.Background(), []UploadedFile{
		csvFile("one.csv", "a,b\n1,2\n"),
		csvFile("two.csv", "a,b\n1,2\n1,2,3\n"),
		csvFile("three.csv", "a,b\n3,4\n"),
	})
	require.NoError(t, err)
	require.Len(t, batch.Files, 3)

	assert.Equal(t, StatusConverted, batch.Files[0].Status)
	assert.Equal(t, StatusFailed, batch.Files[1].Status)
	assert.Equal(t, StatusConverted, batch.Files[2].Status)

	failed := batch.Files[1].Err
	require.NotNil(t, failed)
	assert.Equal(t, KindParse, failed.Kind)
	assert.Equal(t, "two.csv", failed.File)
	assert.Contains(t, failed.Detail(), "expected 2 fields, saw 3")

	require.NotNil(t, batch.Archive)
	entries := readArchive(t, batch.Archive.Data)
	assert.Len(t, entries, 2)
	assert.Contains(t, entries, "one_20240102_030405.xlsx")
	assert.Contains(t, entries, "three_20240102_030405.xlsx")
}

func TestConvertBatch_OversizeSkipped(t *testing.T) {
	big := UploadedFile{Name: "big.csv", Size: 6 << 20}
	batch, err := newTestConverter().ConvertBatch(context.Background(), []UploadedFile{
		big,
		csvFile("a.csv", "a\n1\n"),
		csvFile("b.csv", "a\n2\n"),
	})
	require.NoError(t, err)

	out := batch.Files[0]
	assert.Equal(t, StatusSkipped, out.Status)
	require.NotNil(t, out.Err)
	assert.Equal(t, KindSizeLimitExceeded, out.Err.Kind)
	assert.Nil(t, out.Result)

	require.NotNil(t, batch.Archive)
	entries := readArchive(t, batch.Archive.Data)
	assert.Len(t, entries, 2)
	for name := range entries {
		assert.False(t, strings.HasPrefix(name, "big"), "oversize file %q in archive", name)
	}
}

func TestConvertBatch_OversizeByContent(t *testing.T) {
	c := NewConverter(Options{MaxFileSize: 10, Now: fixedNow})
	batch, err := c.ConvertBatch(context.Background(), []UploadedFile{
		{Name: "x.csv", Data: []byte("a,b\n1,2\n3,4\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, KindSizeLimitExceeded, batch.Files[0].Err.Kind)
}

func TestConvertBatch_HeaderOnlySkipped(t *testing.T) {
	batch, err := newTestConverter().ConvertBatch(context.Background(), []UploadedFile{
		csvFile("headers.csv", "a,b,c\n"),
	})
	require.NoError(t, err)

	out := batch.Files[0]
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Equal(t, KindEmptyTable, out.Err.Kind)
	assert.Nil(t, out.Result)
	assert.Empty(t, batch.Converted())
	assert.Nil(t, batch.Archive)
}

func TestConvertBatch_EmptyFileFails(t *testing.T) {
	batch, err := newTestConverter().ConvertBatch(context.Background(), []UploadedFile{
		csvFile("empty.csv", ""),
	})
	require.NoError(t, err)

	out := batch.Files[0]
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, KindParse, out.Err.Kind)
	assert.ErrorIs(t, out.Err, ErrNoColumns)
}

func TestConvertBatch_EncodeErrorContinues(t *testing.T) {
	batch, err := newTestConverter().ConvertBatch(context.Background(), []UploadedFile{
		csvFile("bad.csv", "a\nbell\x07\n"),
		csvFile("good.csv", "a\nok\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, KindEncode, batch.Files[0].Err.Kind)
	assert.Equal(t, StatusConverted, batch.Files[1].Status)
	assert.Nil(t, batch.Archive)
}

func TestConvertBatch_DuplicateNames(t *testing.T) {
	batch, err := newTestConverter().ConvertBatch(context.Background(), []UploadedFile{
		csvFile("data.csv", "a\n1\n"),
		csvFile("data.csv", "a\n2\n"),
		csvFile("data.csv", "a\n3\n"),
	})
	require.NoError(t, err)

	names := []string{}
	for _, o := range batch.Converted() {
		names = append(names, o.Result.FileName)
	}
	assert.Equal(t, []string{
		"data_20240102_030405.xlsx",
		"data_20240102_030405_2.xlsx",
		"data_20240102_030405_3.xlsx",
	}, names)

	require.NotNil(t, batch.Archive)
	assert.Nil(t, batch.ArchiveErr)
	assert.Len(t, readArchive(t, batch.Archive.Data), 3)
}

func TestConvertBatch_PreviewAndDelimiter(t *testing.T) {
	var b strings.Builder
	b.WriteString("n\tsq\n")
	for i := 0; i < 10; i++ {
		b.WriteString("1\t1\n")
	}

	c := NewConverter(Options{PreviewRows: 3, Now: fixedNow})
	batch, err := c.ConvertBatch(context.Background(), []UploadedFile{csvFile("t.tsv", b.String())})
	require.NoError(t, err)

	out := batch.Files[0]
	assert.Equal(t, '\t', out.Delimiter)
	assert.Equal(t, "tab", out.DelimiterName())
	require.NotNil(t, out.Preview)
	assert.Len(t, out.Preview.Rows, 3)
	assert.Equal(t, 10, out.Summary.RowCount)
}

func TestConvertBatch_ObserverAndRecorder(t *testing.T) {
	obs := &recordingObserver{}
	rec := &failingRecorder{}
	c := newTestConverter(WithObserver(obs), WithRecorder(rec))

	batch, err := c.ConvertBatch(context.Background(), []UploadedFile{csvFile("a.csv", "a\n1\n")})
	require.NoError(t, err)

	require.Len(t, obs.batches, 1)
	assert.Same(t, batch, obs.batches[0])
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, StatusConverted, batch.Files[0].Status, "recorder failure must not fail the file")
}

func TestConvertBatch_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := newTestConverter().ConvertBatch(ctx, []UploadedFile{csvFile("a.csv", "a\n1\n")})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, batch)
	assert.Empty(t, batch.Files)
}

func TestConvertBatch_Empty(t *testing.T) {
	batch, err := newTestConverter().ConvertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, batch.Files)
	assert.Nil(t, batch.Archive)
	assert.NotEqual(t, [16]byte{}, [16]byte(batch.ID))
}

func TestConvertFile(t *testing.T) {
	out := newTestConverter().ConvertFile(csvFile("x.csv", "a;b\n1;2\n"))
	assert.Equal(t, StatusConverted, out.Status)
	assert.Equal(t, ';', out.Delimiter)
}

func TestOptions_Defaults(t *testing.T) {
	opts := NewConverter(Options{}).Options()
	assert.EqualValues(t, DefaultMaxFileSize, opts.MaxFileSize)
	assert.Equal(t, DefaultSniffSize, opts.SniffSize)
	assert.Equal(t, DefaultEncoding, opts.Encoding)
	assert.Equal(t, DefaultPreviewRows, opts.PreviewRows)
	assert.NotNil(t, opts.Now)
}
