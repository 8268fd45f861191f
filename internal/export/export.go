// Package export publishes human-facing copies of migration runs to object storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/config"
	"github.com/yungbote/passage-migration/internal/platform/logger"
	"github.com/yungbote/passage-migration/internal/platform/objectstore"
	"github.com/yungbote/passage-migration/internal/verify"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/x-yaml"

	uploaderPassages = "passage-migration"
	uploaderPrompts  = "prompt-migration"

	timestampLayout = "2006-01-02T15:04:05.000000"
)

func PassagesKey(env config.Environment) string {
	return fmt.Sprintf("passage-migration-%s.json", env)
}

func VerificationKey(env config.Environment) string {
	return fmt.Sprintf("passage-verification-%s.json", env)
}

func PromptsKey(env config.Environment) string {
	return fmt.Sprintf("prompts.%s.yaml", env)
}

type Exporter struct {
	up         objectstore.Uploader
	env        config.Environment
	publicRead bool
	now        func() time.Time
	log        *logger.Logger
}

func New(up objectstore.Uploader, env config.Environment, publicRead bool, baseLog *logger.Logger) *Exporter {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Exporter{
		up:         up,
		env:        env,
		publicRead: publicRead,
		now:        func() time.Time { return time.Now().UTC() },
		log:        baseLog.With("component", "Exporter", "bucket", up.Bucket()),
	}
}

type passageExport struct {
	Environment   string                  `json:"environment"`
	GeneratedAt   string                  `json:"generated_at"`
	TotalPassages int                     `json:"total_passages"`
	Strategy      string                  `json:"strategy"`
	Passages      []types.PassageDocument `json:"passages"`
}

type verificationExport struct {
	Environment string        `json:"environment"`
	GeneratedAt string        `json:"generated_at"`
	Equal       bool          `json:"equal"`
	Report      verify.Report `json:"report"`
}

// ExportPassages uploads the assembled documents as one indented JSON file.
func (e *Exporter) ExportPassages(ctx context.Context, strategy string, docs []types.PassageDocument) (string, error) {
	if docs == nil {
		docs = []types.PassageDocument{}
	}
	ts := e.now().Format(timestampLayout)
	body, err := encodeJSON(passageExport{
		Environment:   string(e.env),
		GeneratedAt:   ts,
		TotalPassages: len(docs),
		Strategy:      strategy,
		Passages:      docs,
	})
	if err != nil {
		return "", fmt.Errorf("encode passage export: %w", err)
	}
	return e.put(ctx, objectstore.Object{
		Key:         PassagesKey(e.env),
		Body:        body,
		ContentType: ContentTypeJSON,
		Metadata:    e.metadata(uploaderPassages, ts, "data-comparison"),
	})
}

func (e *Exporter) ExportVerification(ctx context.Context, report verify.Report) (string, error) {
	ts := e.now().Format(timestampLayout)
	body, err := encodeJSON(verificationExport{
		Environment: string(e.env),
		GeneratedAt: ts,
		Equal:       report.Equal(),
		Report:      report,
	})
	if err != nil {
		return "", fmt.Errorf("encode verification export: %w", err)
	}
	return e.put(ctx, objectstore.Object{
		Key:         VerificationKey(e.env),
		Body:        body,
		ContentType: ContentTypeJSON,
		Metadata:    e.metadata(uploaderPassages, ts, "strategy-verification"),
	})
}

// ExportPrompts renders rows as the prompt-group YAML and uploads it.
func (e *Exporter) ExportPrompts(ctx context.Context, rows []types.PromptRow) (PromptSummary, error) {
	ts := e.now().Format(timestampLayout)
	body, sum, err := BuildPromptYAML(e.env, ts, rows)
	if err != nil {
		return sum, err
	}
	key, err := e.put(ctx, objectstore.Object{
		Key:         PromptsKey(e.env),
		Body:        body,
		ContentType: ContentTypeYAML,
		Metadata:    e.metadata(uploaderPrompts, ts, ""),
	})
	if err != nil {
		return sum, err
	}
	sum.Key = key
	return sum, nil
}

func (e *Exporter) metadata(uploadedBy, ts, purpose string) map[string]string {
	m := map[string]string{
		"uploaded-by":      uploadedBy,
		"environment":      string(e.env),
		"upload-timestamp": ts,
	}
	if purpose != "" {
		m["purpose"] = purpose
	}
	return m
}

func (e *Exporter) put(ctx context.Context, obj objectstore.Object) (string, error) {
	obj.PublicRead = e.publicRead
	e.log.Info("Uploading export", "key", obj.Key, "bytes", len(obj.Body))
	u, err := e.up.Upload(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", obj.Key, err)
	}
	e.log.Info("Export uploaded", "key", obj.Key, "url", u)
	return obj.Key, nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
