package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	tapi "github.com/airenas/wardrep/internal/pkg/transcriber/api"
	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/viper"
)

// Client calls a speech to text backend with multipart audio upload.
// The backend responds with {"text": "..."}.
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	model      string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates a transcriber client
func NewClient(url, key, model string, timeout time.Duration) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if !strings.HasPrefix(url, "http") {
		return nil, fmt.Errorf("no http in url '%s'", url)
	}
	res := Client{}
	res.url = url
	res.key = key
	res.model = model
	res.timeout = timeout
	if res.timeout <= 0 {
		res.timeout = time.Minute * 2
	}
	res.httpclient = asrHTTPClient()
	res.backoff = newSimpleBackoff
	return &res, nil
}

// NewClientFromConfig creates client from transcriber.* config, returns nil if no url is configured
func NewClientFromConfig(cfg *viper.Viper) (*Client, error) {
	url := cfg.GetString("transcriber.url")
	if url == "" {
		return nil, nil
	}
	return NewClient(url, cfg.GetString("transcriber.key"), cfg.GetString("transcriber.model"),
		cfg.GetDuration("transcriber.timeout"))
}

// Transcribe sends audio to the backend and returns recognized text
func (sp *Client) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	body, contentType, err := sp.prepareBody(fileName, audio)
	if err != nil {
		return "", err
	}
	return goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.url, bytes.NewReader(body))
		if err != nil {
			return "", false, err
		}
		req.Header.Set("Content-Type", contentType)
		if sp.key != "" {
			req.Header.Set("Authorization", "Bearer "+sp.key)
		}
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Int("size", len(body)).Msg("call")
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return "", goapp.IsRetryableCode(resp.StatusCode), err
		}
		var respData tapi.Response
		if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
			return "", false, fmt.Errorf("can't decode response: %w", err)
		}
		return respData.Text, false, nil
	}, sp.backoff())
}

func (sp *Client) prepareBody(fileName string, audio io.Reader) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(tapi.PrmFile, filepath.Base(fileName))
	if err != nil {
		return nil, "", fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err = io.Copy(part, audio); err != nil {
		return nil, "", fmt.Errorf("can't add file content to request: %w", err)
	}
	if sp.model != "" {
		if err := writer.WriteField(tapi.PrmModel, sp.model); err != nil {
			return nil, "", fmt.Errorf("can't add param: %w", err)
		}
	}
	if err := writer.WriteField(tapi.PrmFormat, "json"); err != nil {
		return nil, "", fmt.Errorf("can't add param: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("can't close multipart writer: %w", err)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

func asrHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 20
	res.MaxIdleConns = 10
	res.MaxIdleConnsPerHost = 10
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
