package prep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	morph "github.com/jamesainslie/go-morph"
	"github.com/jamesainslie/go-morph/pool"
	"github.com/jamesainslie/go-morph/tokenizer"
)

func newAnalyzerPool(t *testing.T, workers int) *pool.Pool[*morph.Analyzer] {
	t.Helper()
	analyzers, err := pool.New(workers, func() (*morph.Analyzer, error) {
		return morph.New(tokenizer.Char)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = analyzers.Close() })
	return analyzers
}

func newProcessor(t *testing.T, workers int, opts ...Option) *Processor {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return New(newAnalyzerPool(t, workers), opts...)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", JSONLines, false},
		{"csv", CSV, false},
		{"squad_json", SQuAD, false},
		{" JSON ", JSONLines, false},
		{"tsv", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.ToLower(strings.TrimSpace(tt.in)), got.String())
		})
	}
}

func TestStats_Add(t *testing.T) {
	s := Stats{Records: 1, Written: 1}
	s.Add(Stats{Records: 2, Skipped: 2, Answers: 3, Relocated: 2, Dropped: 1})
	assert.Equal(t, Stats{Records: 3, Written: 1, Skipped: 2, Answers: 3, Relocated: 2, Dropped: 1}, s)
}

func TestProcess_Dispatch(t *testing.T) {
	p := newProcessor(t, 1, WithColumns("sentence"))

	var out bytes.Buffer
	stats, err := p.Process(context.Background(), JSONLines, strings.NewReader(`{"sentence":"猫"}`+"\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, `{"sentence":"猫"}`+"\n", out.String())

	_, err = p.Process(context.Background(), Format(42), strings.NewReader(""), &out)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestJSONLines(t *testing.T) {
	input := strings.Join([]string{
		`{"id":1,"sentence":"今日は","label":"pos"}`,
		`not json`,
		`{"id":2,"label":"neg"}`,
		``,
		`{"id":3,"sentence":"","label":"neg"}`,
		`{"id":4,"sentence":7,"label":"neg"}`,
		`{"id":5,"sentence":"a<b","label":"pos"}`,
	}, "\n")

	p := newProcessor(t, 1, WithColumns("sentence"))
	var out bytes.Buffer
	stats, err := p.JSONLines(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	want := `{"id":1,"sentence":"今 日 は","label":"pos"}` + "\n" +
		`{"id":5,"sentence":"a < b","label":"pos"}` + "\n"
	assert.Equal(t, want, out.String())
	assert.Equal(t, Stats{Records: 6, Written: 2, Skipped: 4}, stats)
}

func TestJSONLines_MultipleColumns(t *testing.T) {
	input := `{"sentence1":"猫だ","sentence2":"犬だ","label":"contradiction"}` + "\n"

	p := newProcessor(t, 1, WithColumns("sentence1", "sentence2"))
	var out bytes.Buffer
	_, err := p.JSONLines(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, `{"sentence1":"猫 だ","sentence2":"犬 だ","label":"contradiction"}`+"\n", out.String())
}

func TestJSONLines_NoColumnsPassesThrough(t *testing.T) {
	input := `{"a":"文"}` + "\n"
	p := newProcessor(t, 1)

	var out bytes.Buffer
	stats, err := p.JSONLines(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, input, out.String())
	assert.Equal(t, 1, stats.Written)
}

func TestJSONLines_ParallelKeepsOrder(t *testing.T) {
	var in, want strings.Builder
	for i := range 50 {
		fmt.Fprintf(&in, `{"n":%d,"s":"第%d"}`+"\n", i, i)
		tokenized := strings.Join(strings.Split(fmt.Sprintf("第%d", i), ""), " ")
		fmt.Fprintf(&want, `{"n":%d,"s":"%s"}`+"\n", i, tokenized)
	}

	p := newProcessor(t, 4, WithColumns("s"), WithChunkSize(7))
	var out bytes.Buffer
	stats, err := p.JSONLines(context.Background(), strings.NewReader(in.String()), &out)
	require.NoError(t, err)
	assert.Equal(t, want.String(), out.String())
	assert.Equal(t, 50, stats.Written)
}

func TestJSONLines_ClosedPool(t *testing.T) {
	analyzers := newAnalyzerPool(t, 1)
	require.NoError(t, analyzers.Close())

	p := New(analyzers, WithColumns("s"), WithLogger(slog.New(slog.DiscardHandler)))
	_, err := p.JSONLines(context.Background(), strings.NewReader(`{"s":"x"}`+"\n"), &bytes.Buffer{})
	require.ErrorIs(t, err, pool.ErrPoolClosed)
}

func TestCSV(t *testing.T) {
	input := "id,sentence1,sentence2\n" +
		"1,猫だ,犬だ\n" +
		"2,,犬\n" +
		"3,\"a,b\",c\n"

	p := newProcessor(t, 2, WithColumns("sentence1", "sentence2"), WithChunkSize(2))
	var out bytes.Buffer
	stats, err := p.CSV(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	want := "id,sentence1,sentence2\n" +
		"1,猫 だ,犬 だ\n" +
		"3,\"a , b\",c\n"
	assert.Equal(t, want, out.String())
	assert.Equal(t, Stats{Records: 3, Written: 2, Skipped: 1}, stats)
}

func TestCSV_ShortRow(t *testing.T) {
	input := "id,sentence\n1\n2,文\n"

	p := newProcessor(t, 1, WithColumns("sentence"))
	var out bytes.Buffer
	stats, err := p.CSV(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, "id,sentence\n2,文\n", out.String())
	assert.Equal(t, 1, stats.Skipped)
}

func TestCSV_UnknownColumn(t *testing.T) {
	p := newProcessor(t, 1, WithColumns("missing"))
	_, err := p.CSV(context.Background(), strings.NewReader("id,sentence\n1,x\n"), &bytes.Buffer{})
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestCSV_Empty(t *testing.T) {
	p := newProcessor(t, 1, WithColumns("sentence"))
	var out bytes.Buffer
	stats, err := p.CSV(context.Background(), strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, Stats{}, stats)
}

const squadInput = `{"version":"v1.0","data":[{"title":"東京","paragraphs":[{"context":"東京 [SEP] 東京は都","qas":[{"id":"q1","question":"どこ","answers":[{"text":"都","answer_start":7},{"text":"大阪","answer_start":0},{"text":"東京","answer_start":8}],"is_impossible":false}]}]}]}`

func decodeDocument(t *testing.T, data []byte) Document {
	t.Helper()
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestSQuAD(t *testing.T) {
	p := newProcessor(t, 1)
	var out bytes.Buffer
	stats, err := p.SQuAD(context.Background(), strings.NewReader(squadInput), &out)
	require.NoError(t, err)
	assert.Equal(t, Stats{Records: 1, Written: 1, Answers: 3, Relocated: 2, Dropped: 1}, stats)

	doc := decodeDocument(t, out.Bytes())
	assert.Equal(t, "v1.0", doc.Version)
	require.Len(t, doc.Data, 1)

	article := doc.Data[0]
	assert.Equal(t, "東 京", article.Title)
	require.Len(t, article.Paragraphs, 1)

	para := article.Paragraphs[0]
	assert.Equal(t, "東 京 [SEP] 東 京 は 都", para.Context)
	require.Len(t, para.QAs, 1)

	qa := para.QAs[0]
	assert.Equal(t, "q1", qa.ID)
	assert.Equal(t, "ど こ", qa.Question)
	require.NotNil(t, qa.IsImpossible)
	assert.False(t, *qa.IsImpossible)
	assert.Equal(t, []Answer{
		{Text: "都", AnswerStart: 16},
		{Text: "東 京", AnswerStart: 0},
	}, qa.Answers)

	for _, ans := range qa.Answers {
		runes := []rune(para.Context)
		assert.Equal(t, ans.Text, string(runes[ans.AnswerStart:ans.AnswerStart+len([]rune(ans.Text))]))
	}
}

func TestSQuAD_AllAnswersDropped(t *testing.T) {
	input := `{"data":[{"title":"t","paragraphs":[{"context":"t [SEP] 本文","qas":[{"question":"問","answers":[{"text":"無い","answer_start":0}]}]}]}]}`

	p := newProcessor(t, 1)
	var out bytes.Buffer
	stats, err := p.SQuAD(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Dropped)
	assert.Contains(t, out.String(), `"answers":[]`)

	doc := decodeDocument(t, out.Bytes())
	require.Len(t, doc.Data[0].Paragraphs[0].QAs, 1)
	assert.Empty(t, doc.Data[0].Paragraphs[0].QAs[0].Answers)
	assert.Empty(t, doc.Version)
}

func TestSQuAD_ContextWithoutSeparator(t *testing.T) {
	input := `{"data":[{"title":"東京","paragraphs":[{"context":"東京は都","qas":[]}]}]}`

	p := newProcessor(t, 1)
	var out bytes.Buffer
	_, err := p.SQuAD(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	doc := decodeDocument(t, out.Bytes())
	assert.Equal(t, "東 京 [SEP] 東 京 は 都", doc.Data[0].Paragraphs[0].Context)
}

func TestSQuAD_LastDocumentWins(t *testing.T) {
	input := `{"data":[{"title":"一","paragraphs":[]}]}` + "\n" +
		`{"data":[{"title":"二つ","paragraphs":[]}]}` + "\n"

	p := newProcessor(t, 1)
	var out bytes.Buffer
	_, err := p.SQuAD(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	doc := decodeDocument(t, out.Bytes())
	require.Len(t, doc.Data, 1)
	assert.Equal(t, "二 つ", doc.Data[0].Title)
}

func TestSQuAD_ParallelArticles(t *testing.T) {
	var articles []string
	for i := range 12 {
		articles = append(articles, fmt.Sprintf(`{"title":"題%d","paragraphs":[]}`, i))
	}
	input := `{"data":[` + strings.Join(articles, ",") + `]}`

	p := newProcessor(t, 3)
	var out bytes.Buffer
	_, err := p.SQuAD(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	doc := decodeDocument(t, out.Bytes())
	require.Len(t, doc.Data, 12)
	for i, article := range doc.Data {
		assert.Equal(t, strings.Join(strings.Split(fmt.Sprintf("題%d", i), ""), " "), article.Title)
	}
}

func TestSQuAD_Malformed(t *testing.T) {
	p := newProcessor(t, 1)

	_, err := p.SQuAD(context.Background(), strings.NewReader(""), &bytes.Buffer{})
	require.ErrorIs(t, err, ErrNoDocument)

	_, err = p.SQuAD(context.Background(), strings.NewReader(`{"version":"1"}`), &bytes.Buffer{})
	require.ErrorIs(t, err, ErrNoDocument)

	_, err = p.SQuAD(context.Background(), strings.NewReader(`{"data":`), &bytes.Buffer{})
	require.Error(t, err)
}

func TestJSONLines_DottedKey(t *testing.T) {
	input := `{"a.b":"猫だ","a":{"b":"x"}}` + "\n"

	p := newProcessor(t, 1, WithColumns("a.b"))
	var out bytes.Buffer
	_, err := p.JSONLines(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, `{"a.b":"猫 だ","a":{"b":"x"}}`+"\n", out.String())
}
