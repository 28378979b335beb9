package http

import (
	"fmt"
	nethttp "net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpproxy"

	"github.com/ipdata/ipdata/internal/config"
	"github.com/ipdata/ipdata/internal/logging"
)

type proxyMode int

const (
	proxyNone proxyMode = iota
	proxySystem
	proxyBasic
	proxyNTLM
)

const defaultProxyPort = 8080

func parseProxyMode(s string) (proxyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "no-proxy":
		return proxyNone, nil
	case "system":
		return proxySystem, nil
	case "basic":
		return proxyBasic, nil
	case "ntlm":
		return proxyNTLM, nil
	}
	return proxyNone, fmt.Errorf("unsupported proxy mode: %s", s)
}

// authenticated modes talk to an explicit host and may carry user/password.
func (m proxyMode) authenticated() bool {
	return m == proxyBasic || m == proxyNTLM
}

type proxyFunc func(*nethttp.Request) (*url.URL, error)

// proxyURL returns the explicit proxy endpoint. Credentials are embedded only
// when both user and password are set; an empty password breaks some proxies.
func proxyURL(cfg config.ProxyConfig) *url.URL {
	port := cfg.Port
	if port == 0 {
		port = defaultProxyPort
	}
	u := &url.URL{Scheme: "http", Host: cfg.Host + ":" + strconv.Itoa(port)}
	if cfg.User != "" && cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u
}

// bypassing wraps a fixed proxy with a NO_PROXY style list (hosts, *.domain,
// CIDR ranges).
func bypassing(proxy *url.URL, noProxy string, logger *logging.Logger) proxyFunc {
	if strings.TrimSpace(noProxy) == "" {
		return nethttp.ProxyURL(proxy)
	}
	resolve := (&httpproxy.Config{
		HTTPProxy:  proxy.String(),
		HTTPSProxy: proxy.String(),
		NoProxy:    noProxy,
	}).ProxyFunc()

	return func(req *nethttp.Request) (*url.URL, error) {
		u, err := resolve(req.URL)
		ev := logger.Debug().Str("host", req.URL.Host)
		if u == nil {
			ev.Msg("proxy bypass")
		} else {
			ev.Str("proxy", u.Host).Msg("proxied")
		}
		return u, err
	}
}

// NeedsProxyPassword reports whether an authenticated proxy has a user but no
// password, so the CLI should prompt for one.
func NeedsProxyPassword(cfg config.ProxyConfig) bool {
	mode, err := parseProxyMode(cfg.Mode)
	return err == nil && mode.authenticated() && cfg.User != "" && cfg.Password == ""
}

var proxyEnvVars = []string{"HTTP_PROXY", "HTTPS_PROXY", "http_proxy", "https_proxy"}

// proxyActive reports whether outbound traffic will go through a proxy.
func proxyActive(cfg config.ProxyConfig, getenv func(string) string) bool {
	mode, err := parseProxyMode(cfg.Mode)
	if err != nil {
		return false
	}
	switch mode {
	case proxyNone:
		return false
	case proxySystem:
		for _, k := range proxyEnvVars {
			if getenv(k) != "" {
				return true
			}
		}
		return false
	default:
		return cfg.Host != ""
	}
}

func http2Disabled(cfg config.ProxyConfig) bool {
	return os.Getenv("DISABLE_HTTP2") == "true" || proxyActive(cfg, os.Getenv)
}
