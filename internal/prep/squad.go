package prep

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	morph "github.com/jamesainslie/go-morph"
)

// ContextSeparator joins the title and body of a paragraph context.
const ContextSeparator = " [SEP] "

// Document is a SQuAD-style QA dataset.
type Document struct {
	Version string    `json:"version,omitempty"`
	Data    []Article `json:"data"`
}

// Article groups the paragraphs under one title.
type Article struct {
	Title      string      `json:"title"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Paragraph.Context is formatted "<title> [SEP] <body>".
type Paragraph struct {
	Context string `json:"context"`
	QAs     []QA   `json:"qas"`
}

// QA is one question with its gold answers.
type QA struct {
	ID           string   `json:"id,omitempty"`
	Question     string   `json:"question"`
	Answers      []Answer `json:"answers"`
	IsImpossible *bool    `json:"is_impossible,omitempty"`
}

// Answer.AnswerStart is a rune offset into the paragraph context.
type Answer struct {
	Text        string `json:"text"`
	AnswerStart int    `json:"answer_start"`
}

// SQuAD tokenizes a QA document: titles, paragraph bodies, questions and answers.
// Each answer is then relocated in the tokenized context; answers that cannot be
// found are removed from their list and everything around them is kept.
//
// When r holds several JSON documents the last one is processed.
func (p *Processor) SQuAD(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	doc, err := decodeLastDocument(r)
	if err != nil {
		return Stats{}, err
	}

	perArticle := make([]Stats, len(doc.Data))
	err = p.each(ctx, len(doc.Data), func(ctx context.Context, a *morph.Analyzer, i int) {
		perArticle[i] = p.article(ctx, a, &doc.Data[i])
	})
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, s := range perArticle {
		stats.Add(s)
	}

	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return stats, fmt.Errorf("encoding squad document: %w", err)
	}
	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("writing squad document: %w", err)
	}
	return stats, nil
}

func decodeLastDocument(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	var last *Document
	for {
		var doc Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding squad document: %w", err)
		}
		last = &doc
	}
	if last == nil {
		return nil, ErrNoDocument
	}
	if last.Data == nil {
		return nil, fmt.Errorf("%w: missing \"data\"", ErrNoDocument)
	}
	return last, nil
}

func (p *Processor) article(ctx context.Context, a *morph.Analyzer, art *Article) Stats {
	var stats Stats
	title := p.tokenizeOrEmpty(ctx, a, art.Title, "title", art.Title)

	for pi := range art.Paragraphs {
		para := &art.Paragraphs[pi]
		_, body, found := strings.Cut(para.Context, ContextSeparator)
		if !found {
			p.logger.Debug("context has no separator", "title", art.Title)
			body = para.Context
		}
		tokenizedContext := title + ContextSeparator + p.tokenizeOrEmpty(ctx, a, body, "title", art.Title, "field", "context")

		for qi := range para.QAs {
			qa := &para.QAs[qi]
			stats.Records++

			kept := qa.Answers[:0]
			for _, ans := range qa.Answers {
				stats.Answers++
				tokenized, ok := p.tokenize(ctx, a, ans.Text, "qa", qa.ID, "answer", ans.Text)
				if !ok {
					stats.Dropped++
					continue
				}
				text, start, err := morph.Relocate(tokenized, tokenizedContext)
				if err != nil {
					p.logger.Warn("skip: answer not found", "qa", qa.ID, "answer", ans.Text, "context", para.Context)
					stats.Dropped++
					continue
				}
				ans.Text, ans.AnswerStart = text, start
				kept = append(kept, ans)
				stats.Relocated++
			}
			qa.Answers = kept
			qa.Question = p.tokenizeOrEmpty(ctx, a, qa.Question, "qa", qa.ID, "field", "question")
			stats.Written++
		}
		para.Context = tokenizedContext
	}
	art.Title = title
	return stats
}

// tokenizeOrEmpty is tokenize for fields that are kept even when they fail.
func (p *Processor) tokenizeOrEmpty(ctx context.Context, a *morph.Analyzer, text string, attrs ...any) string {
	tokenized, ok := p.tokenize(ctx, a, text, attrs...)
	if !ok {
		return ""
	}
	return tokenized
}
