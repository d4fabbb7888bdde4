package figma

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/fadilmartias/cv-builder/internal/service"
)

const figmaProvider = "figma"

// Client reads files from the Figma REST API. Timeouts and network errors
// are retried twice with exponential backoff; HTTP errors are not retried.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return NewClientWith(resty.New(), baseURL, token, timeout)
}

func NewClientWith(rc *resty.Client, baseURL, token string, timeout time.Duration) *Client {
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("X-Figma-Token", token).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(4 * time.Second).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return isTransient(err)
		})
	return &Client{http: rc}
}

func (c *Client) Name() string { return figmaProvider }

func (c *Client) Check(ctx context.Context) error {
	_, err := c.get(ctx, "/me", nil)
	return err
}

func (c *Client) GetFile(ctx context.Context, fileKey string) (*File, error) {
	body, err := c.get(ctx, "/files/"+fileKey, nil)
	if err != nil {
		return nil, err
	}
	doc := gjson.GetBytes(body, "document")
	if !doc.Exists() {
		return nil, &service.ProviderError{Provider: figmaProvider, Message: "file response has no document"}
	}
	return &File{
		Key:          fileKey,
		Name:         gjson.GetBytes(body, "name").String(),
		LastModified: gjson.GetBytes(body, "lastModified").String(),
		Version:      gjson.GetBytes(body, "version").String(),
		Document:     parseNode(doc),
	}, nil
}

func (c *Client) GetNodes(ctx context.Context, fileKey string, ids []string) ([]*Node, error) {
	body, err := c.get(ctx, "/files/"+fileKey+"/nodes", map[string]string{"ids": strings.Join(ids, ",")})
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		// node ids may contain gjson path characters
		doc := gjson.GetBytes(body, "nodes."+gjson.Escape(id)+".document")
		if !doc.Exists() {
			return nil, &service.ProviderError{Provider: figmaProvider, StatusCode: 404, Message: "node " + id + " not found"}
		}
		nodes = append(nodes, parseNode(doc))
	}
	return nodes, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &service.ProviderError{Provider: figmaProvider, Message: err.Error(), Cause: err}
	}
	if resp.IsError() {
		msg := gjson.GetBytes(resp.Body(), "err").String()
		if msg == "" {
			msg = gjson.GetBytes(resp.Body(), "message").String()
		}
		if msg == "" {
			msg = resp.Status()
		}
		return nil, &service.ProviderError{Provider: figmaProvider, StatusCode: resp.StatusCode(), Message: msg}
	}
	return resp.Body(), nil
}

func parseNode(r gjson.Result) *Node {
	n := &Node{
		ID:         r.Get("id").String(),
		Name:       r.Get("name").String(),
		Type:       r.Get("type").String(),
		Characters: r.Get("characters").String(),
	}
	r.Get("fills").ForEach(func(_, f gjson.Result) bool {
		p := Paint{Type: f.Get("type").String(), Visible: true}
		if v := f.Get("visible"); v.Exists() {
			p.Visible = v.Bool()
		}
		if c := f.Get("color"); c.Exists() {
			p.Color = &Color{R: c.Get("r").Float(), G: c.Get("g").Float(), B: c.Get("b").Float(), A: c.Get("a").Float()}
		}
		n.Fills = append(n.Fills, p)
		return true
	})
	if s := r.Get("style"); s.Exists() {
		n.Style = &TypeStyle{
			FontFamily:   s.Get("fontFamily").String(),
			FontWeight:   s.Get("fontWeight").Float(),
			FontSize:     s.Get("fontSize").Float(),
			LineHeightPx: s.Get("lineHeightPx").Float(),
		}
	}
	r.Get("children").ForEach(func(_, child gjson.Result) bool {
		n.Children = append(n.Children, parseNode(child))
		return true
	})
	return n
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}
