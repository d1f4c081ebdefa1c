package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ict-ryuma/document-ocr/internal/llm"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// DocAIConfig identifies a Document AI processor.
type DocAIConfig struct {
	ProjectID       string
	ProcessorID     string
	Location        string // "us" | "eu"
	CredentialsFile string // service-account JSON
}

// Configured reports whether ids are set and the credentials file exists.
func (c DocAIConfig) Configured() bool {
	if strings.TrimSpace(c.ProjectID) == "" || strings.TrimSpace(c.ProcessorID) == "" || c.CredentialsFile == "" {
		return false
	}
	st, err := os.Stat(c.CredentialsFile)
	return err == nil && !st.IsDir()
}

// ProcessorName is the resource path projects/{p}/locations/{l}/processors/{id}.
func (c DocAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.location(), c.ProcessorID)
}

func (c DocAIConfig) location() string {
	if c.Location == "" {
		return "us"
	}
	return c.Location
}

// DocAIClient calls the Document AI REST :process endpoint.
type DocAIClient struct {
	cfg     DocAIConfig
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewDocAIClient authenticates with the service-account file in cfg.
func NewDocAIClient(ctx context.Context, cfg DocAIConfig, logger *slog.Logger) (*DocAIClient, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, b, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	baseURL := fmt.Sprintf("https://%s-documentai.googleapis.com/v1", cfg.location())
	return NewDocAIClientWithHTTP(cfg, oauth2.NewClient(ctx, creds.TokenSource), baseURL, logger), nil
}

// NewDocAIClientWithHTTP uses an already-authorized client and base URL.
func NewDocAIClientWithHTTP(cfg DocAIConfig, hc *http.Client, baseURL string, logger *slog.Logger) *DocAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocAIClient{cfg: cfg, http: hc, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

type processRequest struct {
	RawDocument rawDocument `json:"rawDocument"`
}

type rawDocument struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

type processResponse struct {
	Document Document `json:"document"`
}

// Process sends content to the processor and returns the parsed document.
func (c *DocAIClient) Process(ctx context.Context, content []byte, mimeType string) (Document, error) {
	url := c.baseURL + "/" + c.cfg.ProcessorName() + ":process"
	body := processRequest{RawDocument: rawDocument{
		Content:  base64.StdEncoding.EncodeToString(content),
		MimeType: mimeType,
	}}

	raw, _, err := llm.PostJSON(ctx, c.http, url, body, nil, c.logger)
	if err != nil {
		return Document{}, err
	}
	var resp processResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	return resp.Document, nil
}

// Document is the subset of the Document AI response we read.
type Document struct {
	Text  string `json:"text"`
	Pages []Page `json:"pages"`
}

type Page struct {
	Tables     []Table     `json:"tables"`
	FormFields []FormField `json:"formFields"`
}

type Table struct {
	HeaderRows []TableRow `json:"headerRows"`
	BodyRows   []TableRow `json:"bodyRows"`
}

type TableRow struct {
	Cells []TableCell `json:"cells"`
}

type TableCell struct {
	Layout Layout `json:"layout"`
}

type FormField struct {
	FieldName  Layout `json:"fieldName"`
	FieldValue Layout `json:"fieldValue"`
}

type Layout struct {
	TextAnchor TextAnchor `json:"textAnchor"`
}

type TextAnchor struct {
	TextSegments []TextSegment `json:"textSegments"`
}

// TextSegment indexes into Document.Text by code point.
type TextSegment struct {
	StartIndex Index `json:"startIndex"`
	EndIndex   Index `json:"endIndex"`
}

// Index accepts int64 values encoded either as JSON strings or numbers.
type Index int64

func (i *Index) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("text index %q: %w", s, err)
	}
	*i = Index(n)
	return nil
}

// Resolve resolves a layout's segments against the document text.
func (d Document) Resolve(l Layout) string {
	if len(l.TextAnchor.TextSegments) == 0 {
		return ""
	}
	runes := []rune(d.Text)
	var sb strings.Builder
	for _, seg := range l.TextAnchor.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start >= end {
			continue
		}
		sb.WriteString(string(runes[start:end]))
	}
	return strings.TrimSpace(sb.String())
}
