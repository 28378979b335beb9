// Package http builds the outbound HTTP clients shared by storage providers,
// presigned transfers and registry calls.
package http

import (
	"crypto/tls"
	"net"
	nethttp "net/http"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http2"

	"github.com/ipdata/ipdata/internal/config"
	"github.com/ipdata/ipdata/internal/constants"
	"github.com/ipdata/ipdata/internal/logging"
)

// NewClient returns a client tuned for large object transfers through the
// configured proxy. It has no overall timeout; callers bound each request
// with a context. HTTP/2 is used unless a proxy is active or
// DISABLE_HTTP2=true, since proxies often mishandle multiplexed streams.
//
// A basic or ntlm proxy without a host falls back to a direct connection so
// "credentials show" still works while the environment is being fixed.
func NewClient(cfg config.ProxyConfig, logger *logging.Logger) (*nethttp.Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	mode, err := parseProxyMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	tr := newTransport()
	if http2Disabled(cfg) {
		tr.TLSNextProto = map[string]func(string, *tls.Conn) nethttp.RoundTripper{}
	} else {
		tr.ForceAttemptHTTP2 = true
		_ = http2.ConfigureTransport(tr)
	}

	client := &nethttp.Client{Transport: tr}

	switch {
	case mode == proxySystem:
		tr.Proxy = nethttp.ProxyFromEnvironment
	case mode.authenticated() && cfg.Host == "":
		logger.Warn().Str("mode", cfg.Mode).Msg("proxy host missing, connecting directly")
	case mode.authenticated():
		tr.Proxy = bypassing(proxyURL(cfg), cfg.NoProxy, logger)
		if cfg.User != "" && cfg.Password == "" {
			logger.Warn().Msg("proxy user configured but password missing, proxy auth disabled")
		}
		if mode == proxyNTLM {
			client.Transport = ntlmssp.Negotiator{RoundTripper: tr}
		}
	}
	return client, nil
}

func newTransport() *nethttp.Transport {
	dialer := &net.Dialer{
		Timeout:   constants.HTTPDialTimeout,
		KeepAlive: constants.HTTPDialKeepAlive,
	}
	return &nethttp.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
		// Datasets are usually compressed already.
		DisableCompression: true,
	}
}
