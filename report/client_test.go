package report_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praiagrande/sst-portal/internal/webhook"
	"github.com/praiagrande/sst-portal/report"
)

func newClient(t *testing.T, handler http.HandlerFunc) *report.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	caller := webhook.NewCaller("internal-secret", time.Second, nil)
	return report.NewClient(caller, report.Endpoints{
		LTCAT:        srv.URL + "/ltcat",
		LTCATDocx:    srv.URL + "/ltcat-docx",
		Psychosocial: srv.URL + "/recebe-arquivo",
	})
}

func readUpload(t *testing.T, r *http.Request) (string, string) {
	t.Helper()
	file, header, err := r.FormFile("file")
	if !assert.NoError(t, err) {
		return "", ""
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	return header.Filename, string(data)
}

func TestExtractLTCATDecodesBase64Document(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "internal-secret", r.Header.Get(webhook.InternalTokenHeader))
		name, content := readUpload(t, r)
		assert.Equal(t, "laudo.pdf", name)
		assert.Equal(t, "%PDF-1.4", content)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, `{"dados":{"data":"`+base64.StdEncoding.EncodeToString([]byte("docx-bytes"))+`","fileName":"Empresa.docx"}}`)
	})

	res, err := client.ExtractLTCAT(context.Background(), "laudo.pdf", strings.NewReader("%PDF-1.4"))

	require.NoError(t, err)
	require.True(t, res.IsFile())
	assert.Equal(t, "Empresa.docx", res.FileName)
	assert.Equal(t, report.MimeDOCX, res.ContentType)
	assert.Equal(t, "docx-bytes", string(res.Body))
}

func TestExtractLTCATPassesPlainJSONThrough(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"nome_empresa":"ACME","cnpj":"00.000.000/0001-00"}`)
	})

	res, err := client.ExtractLTCAT(context.Background(), "laudo.pdf", strings.NewReader("x"))

	require.NoError(t, err)
	assert.False(t, res.IsFile())
	assert.JSONEq(t, `{"nome_empresa":"ACME","cnpj":"00.000.000/0001-00"}`, string(res.JSON))
}

func TestExtractLTCATBinaryBody(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("PK\x03\x04"))
	})

	res, err := client.ExtractLTCAT(context.Background(), "laudo.pdf", strings.NewReader("x"))

	require.NoError(t, err)
	assert.Equal(t, "LTCAT.docx", res.FileName)
	assert.Equal(t, report.MimeDOCX, res.ContentType)
	assert.Equal(t, []byte("PK\x03\x04"), res.Body)
}

func TestExtractLTCATMissingData(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"dados":{"fileName":"x.docx"}}`)
	})

	_, err := client.ExtractLTCAT(context.Background(), "laudo.pdf", strings.NewReader("x"))

	assert.ErrorIs(t, err, report.ErrMissingData)
}

func TestExtractLTCATUpstreamError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow falhou", http.StatusUnprocessableEntity)
	})

	_, err := client.ExtractLTCAT(context.Background(), "laudo.pdf", strings.NewReader("x"))

	var upstream *report.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusUnprocessableEntity, upstream.Status)
	assert.Equal(t, "workflow falhou", upstream.Body)
}

func TestGenerateDOCXPostsFields(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ltcat-docx", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"nome_empresa":"ACME"}`, string(body))
		_, _ = w.Write([]byte("docx"))
	})

	res, err := client.GenerateDOCX(context.Background(), []byte(`{"nome_empresa":"ACME"}`))

	require.NoError(t, err)
	assert.Equal(t, "LTCAT.docx", res.FileName)
	assert.Equal(t, "docx", string(res.Body))
}

func TestGeneratePsychosocialUsesFilenameHeader(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		name, _ := readUpload(t, r)
		assert.Equal(t, "questionario.xlsx", name)
		w.Header().Set("filename", "Relat%C3%B3rio%20ACME.pdf")
		_, _ = w.Write([]byte("%PDF"))
	})

	res, err := client.GeneratePsychosocial(context.Background(), "questionario.xlsx", strings.NewReader("xlsx"))

	require.NoError(t, err)
	assert.Equal(t, "Relat%C3%B3rio%20ACME.pdf", res.FileName)
	assert.Equal(t, report.MimePDF, res.ContentType)
}

func TestGeneratePsychosocialDefaultName(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF"))
	})

	res, err := client.GeneratePsychosocial(context.Background(), "q.xlsx", strings.NewReader("xlsx"))

	require.NoError(t, err)
	assert.Equal(t, "documento.pdf", res.FileName)
}
