package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"DanmakuAnalysis/internal/config"

	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout      = 30 * time.Second
	maxIdleConns        = 100
	idleConnTimeout     = 30 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

// NewHTTPClient 推理后端共用的 HTTP 客户端。
// 超时取 cfg.Timeout（秒，<=0 用 30s），代理地址非法时直连
func NewHTTPClient(cfg *config.InferenceConfig, logger *logrus.Logger) *http.Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &gzipTransport{next: newTransport(cfg.Proxy, logger), logger: logger},
	}
}

func newTransport(proxy string, logger *logrus.Logger) *http.Transport {
	t := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
	}
	if proxy == "" {
		return t
	}
	u, err := url.Parse(proxy)
	if err != nil {
		logger.WithError(err).WithField("proxy", proxy).Warn("推理服务代理地址非法，改为直连")
		return t
	}
	t.Proxy = http.ProxyURL(u)
	logger.WithField("proxy", u.Redacted()).Info("推理服务走代理")
	return t
}

// gzipTransport 显式声明 Accept-Encoding 后，net/http 不再自动解压，这里自己解
type gzipTransport struct {
	next   http.RoundTripper
	logger *logrus.Logger
}

func (t *gzipTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return resp, nil
	}

	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.logger.WithError(err).WithField("url", req.URL.Redacted()).Warn("响应声明gzip但无法解压，按原样返回")
		return resp, nil
	}
	resp.Body = &gzipBody{Reader: zr, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

type gzipBody struct {
	*gzip.Reader
	raw io.ReadCloser
}

func (b *gzipBody) Close() error {
	zerr := b.Reader.Close()
	if err := b.raw.Close(); err != nil {
		return err
	}
	return zerr
}
