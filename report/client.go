// Package report proxies document generation to the automation backend:
// LTCAT extraction and DOCX rendering, and the psychosocial PDF report.
package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/praiagrande/sst-portal/internal/webhook"
)

const (
	// MimeDOCX is the Word document content type.
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	// MimePDF is the PDF content type.
	MimePDF = "application/pdf"

	defaultLTCATName = "LTCAT.docx"
	defaultPDFName   = "documento.pdf"

	opExtract      = "ltcat_extract"
	opDOCX         = "ltcat_docx"
	opPsychosocial = "psychosocial_pdf"

	maxDocumentBytes = 64 << 20
)

var (
	// ErrMissingData means the backend answered with a dados object lacking its data field.
	ErrMissingData = errors.New("report: campo 'dados.data' ausente no JSON")
	// ErrTooLarge means the generated document exceeded maxDocumentBytes.
	ErrTooLarge = errors.New("report: document too large")
)

// Endpoints lists the document webhooks.
type Endpoints struct {
	LTCAT        string
	LTCATDocx    string
	Psychosocial string
}

// UpstreamError is a non-2xx answer from a document webhook.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("report: upstream status %d: %s", e.Status, e.Body)
}

// Result is either a file to download or, when JSON is set, structured data.
type Result struct {
	FileName    string
	ContentType string
	Body        []byte
	JSON        json.RawMessage
}

// IsFile reports whether the result carries a downloadable document.
func (r *Result) IsFile() bool {
	return r != nil && r.JSON == nil
}

// Client wraps the document webhooks.
type Client struct {
	caller    *webhook.Caller
	endpoints Endpoints
}

// NewClient constructs a new client.
func NewClient(caller *webhook.Caller, endpoints Endpoints) *Client {
	return &Client{caller: caller, endpoints: endpoints}
}

// ExtractLTCAT uploads an LTCAT PDF. The backend may answer with a base64
// document under dados.data, with extracted fields as plain JSON, or with
// the DOCX bytes directly.
func (c *Client) ExtractLTCAT(ctx context.Context, filename string, file io.Reader) (*Result, error) {
	resp, err := c.postFile(ctx, opExtract, c.endpoints.LTCAT, filename, file)
	if err != nil {
		return nil, err
	}
	defer webhook.Drain(resp)

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return &Result{FileName: defaultLTCATName, ContentType: MimeDOCX, Body: body}, nil
	}
	return decodeLTCAT(body)
}

type ltcatEnvelope struct {
	Dados *struct {
		Data     string `json:"data"`
		FileName string `json:"fileName"`
		MimeType string `json:"mimeType"`
	} `json:"dados"`
}

func decodeLTCAT(body []byte) (*Result, error) {
	var env ltcatEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("report: decode ltcat response: %w", err)
	}
	if env.Dados == nil {
		return &Result{JSON: json.RawMessage(body)}, nil
	}
	if env.Dados.Data == "" {
		return nil, ErrMissingData
	}
	decoded, err := base64.StdEncoding.DecodeString(env.Dados.Data)
	if err != nil {
		return nil, fmt.Errorf("report: decode dados.data: %w", err)
	}
	res := &Result{FileName: env.Dados.FileName, ContentType: env.Dados.MimeType, Body: decoded}
	if res.FileName == "" {
		res.FileName = defaultLTCATName
	}
	if res.ContentType == "" {
		res.ContentType = MimeDOCX
	}
	return res, nil
}

// GenerateDOCX renders extracted LTCAT fields into a Word document.
func (c *Client) GenerateDOCX(ctx context.Context, fields json.RawMessage) (*Result, error) {
	if !json.Valid(fields) {
		return nil, fmt.Errorf("report: invalid ltcat fields")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.LTCATDocx, bytes.NewReader(fields))
	if err != nil {
		return nil, &webhook.TransportError{Operation: opDOCX, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.caller.Do(ctx, opDOCX, req)
	if err != nil {
		return nil, err
	}
	defer webhook.Drain(resp)

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	return &Result{FileName: defaultLTCATName, ContentType: MimeDOCX, Body: body}, nil
}

// GeneratePsychosocial uploads the questionnaire spreadsheet and returns the
// PDF report, named by the backend's filename header when present.
func (c *Client) GeneratePsychosocial(ctx context.Context, filename string, file io.Reader) (*Result, error) {
	resp, err := c.postFile(ctx, opPsychosocial, c.endpoints.Psychosocial, filename, file)
	if err != nil {
		return nil, err
	}
	defer webhook.Drain(resp)

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(resp.Header.Get("filename"))
	if name == "" {
		name = defaultPDFName
	}
	return &Result{FileName: name, ContentType: MimePDF, Body: body}, nil
}

func (c *Client) postFile(ctx context.Context, operation, url, filename string, file io.Reader) (*http.Response, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, &webhook.TransportError{Operation: operation, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.caller.Do(ctx, operation, req)
}

func readBody(resp *http.Response) ([]byte, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: webhook.ReadError(resp)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, &webhook.TransportError{Operation: "read_document", Err: err}
	}
	if len(data) > maxDocumentBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json"
}
