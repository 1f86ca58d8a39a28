package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	Logger "github.com/techblogs/skillfeed/utils/log"
)

// Client talks to the skill-sharing platform REST API. It owns nothing but
// transport concerns: header and cookie injection, request encoding, and
// mapping non-2xx responses into the typed error taxonomy. All state lives
// behind the API, the workflow layer keeps the local view.
type Client struct {
	baseUrl string
	header  http.Header
	cookies []http.Cookie

	client *http.Client
}

func NewClient(baseUrl string) *Client {
	return NewClientWithHeader(baseUrl, http.Header{}, []http.Cookie{})
}

func NewClientWithHeader(baseUrl string, header http.Header, cookies []http.Cookie) *Client {
	return &Client{
		baseUrl: strings.TrimRight(baseUrl, "/"),
		header:  header,
		cookies: cookies,
		client:  &http.Client{},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) (*http.Response, error) {
	uri := c.baseUrl + path
	if len(query) > 0 {
		uri = uri + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(&cookie)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if res.StatusCode >= 300 {
		err := responseError(res)
		res.Body.Close()
		Logger.Log.Errorf("%s %s failed: %v", method, path, err)
		return nil, err
	}

	return res, nil
}

// readBody fully drains and closes the response body.
func readBody(res *http.Response) ([]byte, error) {
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	return body, nil
}

func (c *Client) getBody(ctx context.Context, path string, query url.Values) ([]byte, error) {
	res, err := c.do(ctx, http.MethodGet, path, query, "", nil)
	if err != nil {
		return nil, err
	}
	return readBody(res)
}

func (c *Client) sendJson(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	res, err := c.do(ctx, method, path, nil, "application/json", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	return readBody(res)
}

// sendText submits the body verbatim as text/plain, for the endpoints that
// bind a raw string instead of a JSON document.
func (c *Client) sendText(ctx context.Context, method, path, body string) ([]byte, error) {
	res, err := c.do(ctx, method, path, nil, "text/plain", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return readBody(res)
}

func (c *Client) delete(ctx context.Context, path string, query url.Values) error {
	res, err := c.do(ctx, http.MethodDelete, path, query, "", nil)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
	return nil
}

// MediaUpload is one file part of a multipart post submission.
type MediaUpload struct {
	FileName    string
	ContentType string
	Content     []byte
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// postMultipart encodes fields plus 0..n "files" parts the way the upload
// endpoints expect, keeping each part's own content type intact.
func (c *Client) postMultipart(ctx context.Context, path string, fields map[string]string, files []MediaUpload) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, &NetworkError{Err: err}
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			`form-data; name="files"; filename="`+quoteEscaper.Replace(f.FileName)+`"`)
		header.Set("Content-Type", f.ContentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, &NetworkError{Err: err}
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, &NetworkError{Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &NetworkError{Err: err}
	}

	res, err := c.do(ctx, http.MethodPost, path, nil, writer.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	return readBody(res)
}
