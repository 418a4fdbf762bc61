// Package classify wraps the external image-classification service.
//
// The model itself runs out of process. This package holds the client side of
// that boundary: raw image bytes in, an ordered list of labeled predictions
// out. The client is constructed once at startup and reused across requests.
package classify

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Sentinel errors for classification outcomes.
var (
	// ErrNoPredictions is returned when the inference server answers with an
	// empty prediction list. An image that produces no predictions is treated
	// as a failed classification, never as a silently empty result.
	ErrNoPredictions = errors.New("classifier returned no predictions")
)

// Prediction is a single labeled classification output.
type Prediction struct {
	Label string
	Score float64
}

// Classifier produces predictions for raw image bytes.
type Classifier interface {
	Classify(ctx context.Context, image []byte) ([]Prediction, error)
}

// Config holds the inference server connection settings.
type Config struct {
	// Endpoint is the base URL of the inference server, e.g.
	// http://localhost:8501.
	Endpoint string
	// Model is the model name sent with every request.
	Model string
	// TopK limits how many predictions the server returns per image.
	TopK int
	// Timeout bounds a single classification round trip.
	Timeout time.Duration
}

// Client calls a remote inference server over HTTP. It implements Classifier.
type Client struct {
	http     *http.Client
	endpoint string
	model    string
	topK     int
}

// NewClient builds a Client from cfg. The underlying HTTP client is shared by
// all requests.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		topK:     cfg.TopK,
	}
}

// Classify sends the image to the inference server and decodes the returned
// prediction list. Transport errors, non-2xx statuses, malformed responses,
// and empty prediction lists all surface as errors; order creation must not
// proceed on a half-classified image.
func (c *Client) Classify(ctx context.Context, image []byte) ([]Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictURL(), bytes.NewReader(image))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call inference server")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("inference server returned %d: %s", resp.StatusCode, body)
	}

	preds, err := decodePredictions(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode predictions")
	}
	if len(preds) == 0 {
		return nil, ErrNoPredictions
	}
	return preds, nil
}

// Ping checks that the inference server is reachable. Used by the readiness
// probe.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/healthz", nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "call inference server")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("inference server health returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) predictURL() string {
	q := url.Values{}
	if c.model != "" {
		q.Set("model", c.model)
	}
	if c.topK > 0 {
		q.Set("top_k", strconv.Itoa(c.topK))
	}
	u := c.endpoint + "/predict"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// decodePredictions parses the server response, an array of
// {"label": string, "score": number} objects.
func decodePredictions(body []byte) ([]Prediction, error) {
	var preds []Prediction
	d := jx.DecodeBytes(body)
	if err := d.Arr(func(d *jx.Decoder) error {
		var p Prediction
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "label":
				s, err := d.Str()
				if err != nil {
					return err
				}
				p.Label = s
			case "score":
				f, err := d.Float64()
				if err != nil {
					return err
				}
				p.Score = f
			default:
				return d.Skip()
			}
			return nil
		}); err != nil {
			return err
		}
		preds = append(preds, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return preds, nil
}
