package extras

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Endpoint is a passthrough route served next to the dashboard API.
type Endpoint struct {
	// Path is the prefix of requests to be proxied.
	//
	// This should be a clean absolute path (start with / and do not contain . or ..).
	Path string

	// ProxyTo is the root URL which receives proxied requests.
	//
	// Sub-path in original request is appended to this path.
	ProxyTo *url.URL

	// Methods proxied. Empty means any method.
	Methods []string
}

var (
	ErrInvalidEndpointPath = errors.New("extras: endpoint path is invalid")
	ErrInvalidProxyTo      = errors.New("extras: proxy_to is invalid")
	ErrInvalidMethod       = errors.New("extras: method is not supported")
	ErrReservedPath        = errors.New("extras: endpoint path is reserved by dashboard")
	ErrDuplicatedPath      = errors.New("extras: endpoint path is duplicated")
)

// Reserved are path prefixes the dashboard serves by itself.
var Reserved = []string{
	"/api/policy", "/api/transactions", "/api/sessions", "/metrics",
}

var knownMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// Accepts tells the endpoint proxies the method.
func (e Endpoint) Accepts(method string) bool {
	return len(e.Methods) == 0 || slices.Contains(e.Methods, strings.ToUpper(method))
}

func (e *Endpoint) UnmarshalYAML(node *yaml.Node) error {
	raw := struct {
		Path    string   `yaml:"path"`
		ProxyTo string   `yaml:"proxy_to"`
		Methods []string `yaml:"methods,omitempty"`
	}{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.Path == "" {
		return fmt.Errorf("%w: path is empty (line %d)", ErrInvalidEndpointPath, node.Line)
	}
	if !path.IsAbs(raw.Path) {
		return fmt.Errorf("%w: not absolute: %s", ErrInvalidEndpointPath, raw.Path)
	}
	if path.Clean(raw.Path) != raw.Path {
		return fmt.Errorf("%w: not clean: %s", ErrInvalidEndpointPath, raw.Path)
	}
	for _, r := range Reserved {
		if raw.Path == "/" || under(raw.Path, r) {
			return fmt.Errorf("%w: %s", ErrReservedPath, raw.Path)
		}
	}

	to, err := url.Parse(raw.ProxyTo)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProxyTo, err)
	}
	if !to.IsAbs() {
		return fmt.Errorf("%w: not absolute: %s", ErrInvalidProxyTo, raw.ProxyTo)
	}
	if to.Hostname() == "" {
		return fmt.Errorf("%w: no hostname: %s", ErrInvalidProxyTo, raw.ProxyTo)
	}

	methods := make([]string, 0, len(raw.Methods))
	for _, m := range raw.Methods {
		m = strings.ToUpper(m)
		if !slices.Contains(knownMethods, m) {
			return fmt.Errorf("%w: %s", ErrInvalidMethod, m)
		}
		if !slices.Contains(methods, m) {
			methods = append(methods, m)
		}
	}

	e.Path = raw.Path
	e.ProxyTo = to
	if len(methods) != 0 {
		e.Methods = methods
	}
	return nil
}

// under tells p is prefix itself or below it.
func under(p string, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/") || strings.HasPrefix(prefix, p+"/")
}

type Config struct {
	Endpoints []Endpoint
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	raw := struct {
		Endpoints []*Endpoint `yaml:"endpoints,omitempty"`
	}{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	seen := map[string]struct{}{}
	for _, e := range raw.Endpoints {
		if _, ok := seen[e.Path]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicatedPath, e.Path)
		}
		seen[e.Path] = struct{}{}
		c.Endpoints = append(c.Endpoints, *e)
	}
	return nil
}

// Load loads configuration from the file.
//
// An empty file is an empty config.
func Load(file string) (Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	cfg := Config{}
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}
