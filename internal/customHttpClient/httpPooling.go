package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/PDFChat/internal/config"
)

var (
	once   sync.Once
	client *http.Client
)

// GetPooledClient returns the http client shared by the LLM and embedding SDKs so they reuse connections.
func GetPooledClient() *http.Client {
	once.Do(func() {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        config.MaxIdleConns,
				MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
				IdleConnTimeout:     config.IdleConnTimeout,
			},
		}
	})
	return client
}
