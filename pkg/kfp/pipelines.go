package kfp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	tracerName = "github.com/nais/kfp-deploy/pkg/kfp"

	// Multipart form field the pipelines service reads the definition from.
	uploadField = "uploadfile"

	ResourceTypePipeline = "PIPELINE"
	RelationshipOwner    = "OWNER"
)

type Pipeline struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type ResourceKey struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type ResourceReference struct {
	Key          ResourceKey `json:"key"`
	Name         string      `json:"name,omitempty"`
	Relationship string      `json:"relationship"`
}

type PipelineVersion struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	CreatedAt          time.Time           `json:"created_at,omitempty"`
	ResourceReferences []ResourceReference `json:"resource_references,omitempty"`
}

// PipelineID returns the ID of the pipeline owning this version, if the
// service reported one.
func (v *PipelineVersion) PipelineID() string {
	for _, ref := range v.ResourceReferences {
		if ref.Key.Type == ResourceTypePipeline && ref.Relationship == RelationshipOwner {
			return ref.Key.ID
		}
	}
	return ""
}

// PipelineList is one page of a pipeline listing. An empty NextPageToken
// marks the last page.
type PipelineList struct {
	Pipelines     []*Pipeline `json:"pipelines"`
	TotalSize     int         `json:"total_size"`
	NextPageToken string      `json:"next_page_token"`
}

type ListPipelinesOptions struct {
	PageSize  int    `url:"page_size,omitempty"`
	PageToken string `url:"page_token,omitempty"`
}

type uploadOptions struct {
	Name       string `url:"name"`
	PipelineID string `url:"pipelineid,omitempty"`
}

// Healthz checks that the pipelines service answers.
func (c *Client) Healthz(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, apiPrefix+"/healthz", nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, "healthz", nil)
}

func (c *Client) ListPipelines(ctx context.Context, pageSize int, pageToken string) (*PipelineList, error) {
	u, err := addOptions(apiPrefix+"/pipelines", &ListPipelinesOptions{
		PageSize:  pageSize,
		PageToken: pageToken,
	})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	list := &PipelineList{}
	err = c.doRequest(req, "list_pipelines", list)
	if err != nil {
		return nil, err
	}

	return list, nil
}

// UploadPipeline registers a new pipeline from the definition at filePath.
func (c *Client) UploadPipeline(ctx context.Context, filePath, name string) (*Pipeline, error) {
	pipeline := &Pipeline{}
	err := c.upload(ctx, "upload_pipeline", apiPrefix+"/pipelines/upload", filePath, &uploadOptions{
		Name: name,
	}, pipeline)
	if err != nil {
		return nil, err
	}
	return pipeline, nil
}

// UploadPipelineVersion adds a version named name to an existing pipeline.
func (c *Client) UploadPipelineVersion(ctx context.Context, filePath, pipelineID, name string) (*PipelineVersion, error) {
	version := &PipelineVersion{}
	err := c.upload(ctx, "upload_pipeline_version", apiPrefix+"/pipelines/upload_version", filePath, &uploadOptions{
		Name:       name,
		PipelineID: pipelineID,
	}, version)
	if err != nil {
		return nil, err
	}
	return version, nil
}

// The definition is sent verbatim as a multi-part HTTP form upload.
func (c *Client) upload(ctx context.Context, operation, path, filePath string, opt *uploadOptions, v any) error {
	body, contentType, err := multipartBody(filePath)
	if err != nil {
		return err
	}

	u, err := addOptions(path, opt)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	return c.doRequest(req, operation, v)
}

func multipartBody(filePath string) (*bytes.Buffer, string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("open pipeline file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fileName := filepath.Base(filePath)

	// Calculate the mime type based on the filename
	contentType := mime.TypeByExtension(filepath.Ext(fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	part, err := createFormFileWithContentType(writer, uploadField, fileName, contentType)
	if err != nil {
		return nil, "", err
	}

	_, err = io.Copy(part, file)
	if err != nil {
		return nil, "", fmt.Errorf("read pipeline file: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func createFormFileWithContentType(w *multipart.Writer, fieldname, filename, contentType string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(fieldname), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}
